package config

import (
	"fmt"
	"strings"
	"time"
)

// SemesterFormat selects how the semester string is derived from a date.
// Any value other than the named formats is a custom pattern using
// {year}, {yy}, {season} and {s}.
type SemesterFormat string

const (
	SemesterYearSeason SemesterFormat = "year-season" // 2024 Spring
	SemesterSeasonYear SemesterFormat = "season-year" // Spring 2024
	SemesterShort      SemesterFormat = "short"       // S24
)

// Season is one half of the academic year
type Season string

const (
	Spring Season = "Spring"
	Fall   Season = "Fall"
)

// FallStartMonth is the first month of the fall semester. Dates before it are spring.
const FallStartMonth = time.July

// SeasonOf maps a date onto its academic semester
func SeasonOf(t time.Time) (int, Season) {
	if t.Month() < FallStartMonth {
		return t.Year(), Spring
	}
	return t.Year(), Fall
}

// IsNamed reports whether f is one of the built-in formats
func (f SemesterFormat) IsNamed() bool {
	switch f {
	case SemesterYearSeason, SemesterSeasonYear, SemesterShort:
		return true
	}
	return false
}

// Valid reports whether f is a named format or a custom pattern naming the season
func (f SemesterFormat) Valid() bool {
	if f.IsNamed() {
		return true
	}
	s := string(f)
	return strings.Contains(s, "{season}") || strings.Contains(s, "{s}")
}

// Format renders a semester using f
func (f SemesterFormat) Format(year int, season Season) string {
	switch f {
	case SemesterYearSeason, "":
		return fmt.Sprintf("%d %s", year, season)
	case SemesterSeasonYear:
		return fmt.Sprintf("%s %d", season, year)
	case SemesterShort:
		return fmt.Sprintf("%s%02d", string(season)[:1], year%100)
	}

	r := strings.NewReplacer(
		"{year}", fmt.Sprintf("%d", year),
		"{yy}", fmt.Sprintf("%02d", year%100),
		"{season}", string(season),
		"{s}", string(season)[:1],
	)
	return r.Replace(string(f))
}

// Semester returns the semester string for t under the configured format
func (c *Config) Semester(t time.Time) string {
	year, season := SeasonOf(t)
	return c.SemesterFormat.Format(year, season)
}
