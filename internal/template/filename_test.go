package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in     string
		prefix string // readable part before the hash suffix
		exact  bool   // title is already a slug, no suffix
	}{
		{"week-3-loops", "week-3-loops", true},
		{"recursion", "recursion", true},
		{"Week 3: Loops", "week-3-loops", false},
		{"  Leading and trailing  ", "leading-and-trailing", false},
		{"Fourier -- Series!!", "fourier-series", false},
		{"Übung 2", "übung-2", false},
		{"???", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			slug := Slugify(tt.in)
			if tt.exact {
				assert.Equal(t, tt.prefix, slug)
				return
			}
			rest := strings.TrimPrefix(slug, tt.prefix)
			if tt.prefix != "" {
				require.True(t, strings.HasPrefix(slug, tt.prefix+"-"), slug)
				rest = strings.TrimPrefix(rest, "-")
			}
			assert.Regexp(t, `^[0-9a-f]{6}$`, rest)
			assert.Equal(t, slug, Slugify(tt.in))
		})
	}

	assert.Equal(t, "", Slugify(""))
}

func TestSlugify_Bounded(t *testing.T) {
	long := strings.Repeat("very long lecture title ", 10)
	slug := Slugify(long)
	assert.LessOrEqual(t, len(slug), MaxSlugLength)
	assert.False(t, strings.HasSuffix(slug, "--"))

	// same prefix, different endings
	a := Slugify(long + "part one")
	b := Slugify(long + "part two")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Slugify(long+"part one"))

	exact := strings.Repeat("a", MaxSlugLength+10)
	assert.Len(t, Slugify(exact), MaxSlugLength)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "2024-03-10-02101-lecture.typ", Filename("2024-03-10", "02101", Lecture, ""))
	assert.Equal(t, "2024-03-10-02101-lecture-recursion.typ", Filename("2024-03-10", "02101", Lecture, "recursion"))
	assert.Regexp(t, `^2024-03-10-01005-assignment-problem-set-1-[0-9a-f]{6}\.typ$`,
		Filename("2024-03-10", "01005", Assignment, "Problem Set 1"))
	assert.Regexp(t, `^2024-03-10-01005-thesis-[0-9a-f]{6}\.typ$`,
		Filename("2024-03-10", "01005", Custom("Thesis"), "!!"))

	assert.Equal(t,
		Filename("2024-03-10", "02101", Lecture, "Recursion"),
		Filename("2024-03-10", "02101", Lecture, "Recursion"))
}

func TestFilename_DistinctTitlesDistinctNames(t *testing.T) {
	titles := []string{
		"", "C", "C++", "c", "C#",
		"Week 1", "week-1", "week 1", "Week  1",
		"!!!", "???", "Recursion", "recursion", "Recursion!",
	}

	seen := map[string]string{}
	for _, title := range titles {
		name := Filename("2024-03-10", "02101", Lecture, title)
		if prev, ok := seen[name]; ok {
			t.Errorf("titles %q and %q both give %s", prev, title, name)
		}
		seen[name] = title
	}
}

func TestSectionRules(t *testing.T) {
	tests := []struct {
		courseID string
		kind     string
		ok       bool
	}{
		{"01005", "mathematics", true},
		{"02101", "programming", true},
		{"25200", "physics", true},
		{"22100", "electronics", true},
		{"42000", "", false},
		{"01", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.courseID, func(t *testing.T) {
			rule, ok := MatchRule(AssignmentRules, tt.courseID)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, rule.Kind)
		})
	}
}

func TestParseDocType(t *testing.T) {
	assert.Equal(t, Lecture, ParseDocType("Note"))
	assert.Equal(t, Assignment, ParseDocType("assignment"))
	assert.Equal(t, Custom("thesis"), ParseDocType(" Thesis "))
	assert.True(t, ParseDocType("thesis").IsCustom())
	assert.False(t, Lecture.IsCustom())
}
