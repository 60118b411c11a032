package ui

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

// ConfigAnswers are the values collected by PromptConfig
type ConfigAnswers struct {
	Author          string
	PreferredEditor string
	SemesterFormat  string
	NotesDir        string
	StrictCourses   bool
	AutoOpenFile    bool
}

// PromptConfig walks through the commonly edited settings, starting from current values
func PromptConfig(current ConfigAnswers, semesterFormats []string) (ConfigAnswers, error) {
	answers := current

	questions := []*survey.Question{
		{
			Name: "author",
			Prompt: &survey.Input{
				Message: "Author name:",
				Help:    "Printed on every generated document",
				Default: current.Author,
			},
			Validate: survey.Required,
		},
		{
			Name: "editor",
			Prompt: &survey.Input{
				Message: "Preferred editor command (blank for $EDITOR):",
				Default: current.PreferredEditor,
			},
		},
		{
			Name: "semester",
			Prompt: &survey.Select{
				Message: "Semester format:",
				Options: semesterFormats,
				Default: defaultOption(current.SemesterFormat, semesterFormats),
			},
		},
		{
			Name: "notes",
			Prompt: &survey.Input{
				Message: "Notes directory:",
				Default: current.NotesDir,
			},
			Validate: survey.Required,
		},
		{
			Name: "strict",
			Prompt: &survey.Confirm{
				Message: "Refuse to generate notes for courses not in your config?",
				Default: current.StrictCourses,
			},
		},
		{
			Name: "open",
			Prompt: &survey.Confirm{
				Message: "Open new notes in your editor?",
				Default: current.AutoOpenFile,
			},
		},
	}

	raw := struct {
		Author   string `survey:"author"`
		Editor   string `survey:"editor"`
		Semester string `survey:"semester"`
		Notes    string `survey:"notes"`
		Strict   bool   `survey:"strict"`
		Open     bool   `survey:"open"`
	}{}
	if err := survey.Ask(questions, &raw); err != nil {
		return current, err
	}

	answers.Author = strings.TrimSpace(raw.Author)
	answers.PreferredEditor = strings.TrimSpace(raw.Editor)
	answers.SemesterFormat = raw.Semester
	answers.NotesDir = strings.TrimSpace(raw.Notes)
	answers.StrictCourses = raw.Strict
	answers.AutoOpenFile = raw.Open
	return answers, nil
}

func defaultOption(value string, options []string) string {
	for _, o := range options {
		if o == value {
			return o
		}
	}
	if len(options) > 0 {
		return options[0]
	}
	return ""
}

// PromptCourseName asks for the display name of a course id
func PromptCourseName(courseID string) (string, error) {
	var name string
	prompt := &survey.Input{
		Message: fmt.Sprintf("Name for course %s:", courseID),
		Help:    "Shown in the document header, e.g. Introduction to Programming",
	}
	if err := survey.AskOne(prompt, &name, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return strings.TrimSpace(name), nil
}

// PromptConfirmation prompts for yes/no confirmation
func PromptConfirmation(message string) (bool, error) {
	var confirmed bool
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
