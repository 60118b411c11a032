package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeasonOf(t *testing.T) {
	tests := []struct {
		date   time.Time
		year   int
		season Season
	}{
		{time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 2024, Spring},
		{time.Date(2024, time.June, 30, 23, 59, 0, 0, time.UTC), 2024, Spring},
		{time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), 2024, Fall},
		{time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), 2024, Fall},
	}

	for _, tt := range tests {
		t.Run(tt.date.Format("2006-01-02"), func(t *testing.T) {
			year, season := SeasonOf(tt.date)
			assert.Equal(t, tt.year, year)
			assert.Equal(t, tt.season, season)
		})
	}
}

func TestSemesterFormat_Format(t *testing.T) {
	tests := []struct {
		format SemesterFormat
		season Season
		want   string
	}{
		{SemesterYearSeason, Spring, "2024 Spring"},
		{SemesterSeasonYear, Fall, "Fall 2024"},
		{SemesterShort, Spring, "S24"},
		{SemesterShort, Fall, "F24"},
		{"{s}{yy}", Fall, "F24"},
		{"{season}-{year}", Spring, "Spring-2024"},
		{"", Spring, "2024 Spring"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.format.Format(2024, tt.season))
		})
	}
}

func TestSemesterFormat_Valid(t *testing.T) {
	assert.True(t, SemesterShort.Valid())
	assert.True(t, SemesterFormat("{season} {year}").Valid())
	assert.True(t, SemesterFormat("{s}{yy}").Valid())
	assert.False(t, SemesterFormat("{year}").Valid())
	assert.False(t, SemesterFormat("quarterly").Valid())
}

func TestConfig_Semester(t *testing.T) {
	cfg := NewConfig(fixedNow)
	assert.Equal(t, "2024 Spring", cfg.Semester(fixedNow))

	cfg.SemesterFormat = SemesterShort
	assert.Equal(t, "F25", cfg.Semester(time.Date(2025, time.September, 2, 0, 0, 0, 0, time.UTC)))
}
