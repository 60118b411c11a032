package cmd

import (
	"errors"

	"github.com/byterings/noter/internal/apperr"
	"github.com/byterings/noter/internal/ui"
)

// Process exit codes
const (
	ExitOK              = 0
	ExitGeneral         = 1
	ExitConfigCorrupt   = 2
	ExitVersionNotFound = 3
	ExitTemplate        = 4
	ExitUnknownCourse   = 5
	ExitIO              = 6
)

// exitCode maps an error chain onto a process exit code
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, apperr.ErrUnknownCourse),
		errors.Is(err, apperr.ErrInvalidCourseID):
		return ExitUnknownCourse
	case errors.Is(err, apperr.ErrConfigCorrupt),
		errors.Is(err, apperr.ErrUnsupportedSchema),
		errors.Is(err, apperr.ErrInvalidConfig):
		return ExitConfigCorrupt
	case errors.Is(err, apperr.ErrVersionNotFound),
		errors.Is(err, apperr.ErrManifestCorrupt):
		return ExitVersionNotFound
	case errors.Is(err, apperr.ErrUnknownTemplateType),
		errors.Is(err, apperr.ErrMissingRequiredToken),
		errors.Is(err, apperr.ErrUnusedCustomField),
		errors.Is(err, apperr.ErrCompile):
		return ExitTemplate
	case errors.Is(err, apperr.ErrIO):
		return ExitIO
	}
	return ExitGeneral
}

// reportError prints err and its hint, and returns the exit code
func reportError(err error) int {
	ui.Error(err.Error())
	if hint := apperr.HintOf(err); hint != "" {
		ui.Info(hint)
	}
	return exitCode(err)
}
