package template

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

const (
	// Extension of generated documents
	Extension = ".typ"

	// MaxSlugLength bounds the title part of a filename, in bytes
	MaxSlugLength = 48

	hashSuffixLength = 6
)

// Slugify lower-cases title and collapses every run of characters that are
// not letters or digits into a single "-". Any title the slug does not spell
// out exactly (case, punctuation, spacing or length lost) gets a short hash
// of the full title appended, so distinct titles never share a slug. Slugs
// are bounded by MaxSlugLength.
func Slugify(title string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	slug := b.String()
	if slug == title && len(slug) <= MaxSlugLength {
		return slug
	}

	cut := min(len(slug), MaxSlugLength-hashSuffixLength-1)
	for cut > 0 && cut < len(slug) && !utf8.RuneStart(slug[cut]) {
		cut--
	}
	sum := fmt.Sprintf("%016x", xxhash.Sum64String(title))[:hashSuffixLength]
	if prefix := strings.TrimRight(slug[:cut], "-"); prefix != "" {
		return prefix + "-" + sum
	}
	return sum
}

// Filename builds {date}-{course_id}-{doc_type}[-{slug}].typ
func Filename(date, courseID string, docType DocType, title string) string {
	name := date + "-" + courseID + "-" + docType.String()
	if slug := Slugify(title); slug != "" {
		name += "-" + slug
	}
	return name + Extension
}
