// Package template turns a course id and document type into Typst source.
package template

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/byterings/noter/internal/apperr"
)

//go:embed skeletons/*.typ
var skeletonFS embed.FS

// OverrideDir is the directory inside a template package holding skeleton overrides
const OverrideDir = "noter"

// DocType is the kind of document being generated
type DocType struct {
	name string
}

var (
	Lecture    = DocType{name: "lecture"}
	Assignment = DocType{name: "assignment"}
)

// Custom returns a document type backed by a package-provided skeleton
func Custom(name string) DocType {
	return DocType{name: strings.ToLower(strings.TrimSpace(name))}
}

// ParseDocType maps a user-supplied name onto a document type
func ParseDocType(s string) DocType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lecture", "note", "notes":
		return Lecture
	case "assignment", "hw", "homework":
		return Assignment
	}
	return Custom(s)
}

func (d DocType) String() string {
	return d.name
}

// IsCustom reports whether d is neither Lecture nor Assignment
func (d DocType) IsCustom() bool {
	return d != Lecture && d != Assignment
}

// Skeleton is the token-bearing text backing one document type
type Skeleton struct {
	DocType DocType
	Text    string
	Path    string // Override file, empty for built-in skeletons
}

// LoadSkeleton returns the skeleton for docType, preferring
// <packageDir>/noter/<type>.typ over the built-in one
func LoadSkeleton(docType DocType, packageDir string) (*Skeleton, error) {
	if docType.name == "" || strings.ContainsAny(docType.name, `/\`) || strings.Contains(docType.name, "..") {
		return nil, &apperr.Error{Kind: apperr.ErrUnknownTemplateType, Op: "load skeleton", Field: docType.name}
	}
	file := docType.name + ".typ"

	if packageDir != "" {
		path := filepath.Join(packageDir, OverrideDir, file)
		data, err := os.ReadFile(path)
		if err == nil {
			return &Skeleton{DocType: docType, Text: string(data), Path: path}, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.IO("read skeleton", path, err)
		}
	}

	data, err := skeletonFS.ReadFile("skeletons/" + file)
	if err != nil {
		return nil, &apperr.Error{
			Kind:  apperr.ErrUnknownTemplateType,
			Op:    "load skeleton",
			Field: docType.name,
			Hint:  "available types: " + strings.Join(AvailableTypes(packageDir), ", "),
		}
	}
	return &Skeleton{DocType: docType, Text: string(data)}, nil
}

// AvailableTypes lists the built-in document types plus any the package adds
func AvailableTypes(packageDir string) []string {
	seen := map[string]bool{}
	if entries, err := fs.ReadDir(skeletonFS, "skeletons"); err == nil {
		for _, e := range entries {
			seen[strings.TrimSuffix(e.Name(), ".typ")] = true
		}
	}
	if packageDir != "" {
		if entries, err := os.ReadDir(filepath.Join(packageDir, OverrideDir)); err == nil {
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".typ") {
					seen[strings.TrimSuffix(e.Name(), ".typ")] = true
				}
			}
		}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
