package config

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// LoadState describes where a load stopped
type LoadState int

const (
	StateUnloaded LoadState = iota
	StateCurrent
	StateStale
	StateMigrated
	StateCorrupt
)

func (s LoadState) String() string {
	switch s {
	case StateCurrent:
		return "current"
	case StateStale:
		return "stale"
	case StateMigrated:
		return "migrated"
	case StateCorrupt:
		return "corrupt"
	default:
		return "unloaded"
	}
}

// Report lists what a migration did, by dotted field path
type Report struct {
	From        string
	To          string
	Added       []string // absent fields filled with defaults
	Transformed []string // fields rewritten by a named transform
	Reset       []string // fields with an incompatible value replaced by the default
	Dropped     []string // top-level keys the current schema does not know
}

// Changed reports whether the migration altered anything beyond the schema tag
func (r *Report) Changed() bool {
	return len(r.Added)+len(r.Transformed)+len(r.Reset)+len(r.Dropped) > 0
}

// fieldRule describes one field of the current schema.
// A present value passing check is kept; one failing check goes through
// transform, and falls back to the default when there is none or it fails.
type fieldRule struct {
	path      string
	check     func(any) bool
	transform func(any) (any, bool)
}

var schemaRules = []fieldRule{
	{path: "author", check: isString},
	{path: "preferred_editor", check: isString},
	{path: "semester_format", check: isSemesterFormat, transform: semesterPlaceholders},
	{path: "strict_courses", check: isBool},
	{path: "default_repository", check: isString},
	{path: "paths.notes_dir", check: isString},
	{path: "paths.obsidian_dir", check: isString},
	{path: "paths.templates_dir", check: isString},
	{path: "paths.typst_packages_dir", check: isString},
	{path: "courses", check: isStringTable},
	{path: "template_repositories", check: isRepositoryTable, transform: repositoryFromString},
	{path: "course_repositories", check: isStringTable},
	{path: "note_preferences.auto_open_file", check: isBool},
	{path: "note_preferences.auto_open_dir", check: isBool},
	{path: "note_preferences.include_date_in_title", check: isBool},
	{path: "note_preferences.lecture_sections", check: isStringList},
	{path: "note_preferences.assignment_sections", check: isStringList},
	{path: "note_preferences.create_backups", check: isBool},
	{path: "obsidian_integration.enabled", check: isBool},
	{path: "obsidian_integration.create_course_index", check: isBool},
	{path: "obsidian_integration.link_format", check: isString},
	{path: "obsidian_integration.tag_format", check: isString},
	{path: "typst.compile_args", check: isStringList},
	{path: "typst.watch_args", check: isStringList},
	{path: "typst.output_dir", check: isString},
	{path: "search.file_extensions", check: isExtensionList, transform: extensionsWithoutDots},
	{path: "search.max_results", check: isPositiveInt},
	{path: "search.context_lines", check: isContextLines},
	{path: "search.case_sensitive", check: isBool},
	{path: "metadata.created_at", check: isString},
}

// knownPackages maps well-known repository sources to their Typst package name
var knownPackages = map[string]string{
	"HollowNumber/dtu-note-template": "dtu-template",
}

// Migrator upgrades raw config records to the current schema
type Migrator struct {
	Now    func() time.Time
	Logger *log.Logger
}

func (m *Migrator) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Migrator) logger() *log.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return log.Default()
}

// SchemaOf returns the schema tag of a raw record. Records without a numeric
// tag predate versioning and are schema "1".
func SchemaOf(raw map[string]any) string {
	tag, _ := raw["template_version"].(string)
	if _, err := strconv.Atoi(tag); err != nil {
		return "1"
	}
	return tag
}

// CompareSchema orders two schema tags
func CompareSchema(a, b string) int {
	ai, _ := strconv.Atoi(a)
	bi, _ := strconv.Atoi(b)
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	}
	return 0
}

// Migrate upgrades a raw record to the current schema.
// A record already at the current schema is decoded unchanged.
func (m *Migrator) Migrate(raw map[string]any) (*Config, *Report, error) {
	from := SchemaOf(raw)
	if from == CurrentSchema {
		cfg, err := decodeRaw(raw)
		if err != nil {
			return nil, nil, err
		}
		return cfg, &Report{From: from, To: CurrentSchema}, nil
	}
	return m.apply(raw, from)
}

// MigrateConfig upgrades an in-memory record. Current records are returned as is.
func (m *Migrator) MigrateConfig(c *Config) (*Config, *Report, error) {
	if c.TemplateVersion == CurrentSchema {
		return c, &Report{From: CurrentSchema, To: CurrentSchema}, nil
	}
	raw, err := encodeRaw(c)
	if err != nil {
		return nil, nil, err
	}
	return m.apply(raw, SchemaOf(raw))
}

// Cleanse runs every field rule over a record regardless of its schema tag,
// dropping unknown keys and resetting values of the wrong shape
func (m *Migrator) Cleanse(raw map[string]any) (*Config, *Report, error) {
	return m.apply(raw, SchemaOf(raw))
}

func (m *Migrator) apply(raw map[string]any, from string) (*Config, *Report, error) {
	now := m.now()
	defaults, err := encodeRaw(NewConfig(now))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build defaults: %w", err)
	}

	report := &Report{From: from, To: CurrentSchema}
	out := map[string]any{}
	known := map[string]bool{"template_version": true}

	for _, rule := range schemaRules {
		known[strings.SplitN(rule.path, ".", 2)[0]] = true

		def, hasDef := lookup(defaults, rule.path)
		value, present := lookup(raw, rule.path)

		switch {
		case !present:
			if hasDef {
				setPath(out, rule.path, def)
				report.Added = append(report.Added, rule.path)
			}
		case rule.check(value):
			setPath(out, rule.path, value)
		default:
			if rule.transform != nil {
				if converted, ok := rule.transform(value); ok && rule.check(converted) {
					setPath(out, rule.path, converted)
					report.Transformed = append(report.Transformed, rule.path)
					continue
				}
			}
			if hasDef {
				setPath(out, rule.path, def)
			}
			report.Reset = append(report.Reset, rule.path)
			m.logger().Warn("config field reset to default", "field", rule.path, "value", value)
		}
	}

	for key := range raw {
		if !known[key] {
			report.Dropped = append(report.Dropped, key)
		}
	}
	sort.Strings(report.Dropped)

	stamp := now.UTC().Format(time.RFC3339)
	out["template_version"] = CurrentSchema
	setPath(out, "metadata.last_updated", stamp)
	if from != CurrentSchema {
		setPath(out, "metadata.migration_notes", fmt.Sprintf("migrated from schema %s to %s", from, CurrentSchema))
	} else if notes, ok := lookup(raw, "metadata.migration_notes"); ok && isString(notes) {
		setPath(out, "metadata.migration_notes", notes)
	}
	if len(report.Reset) > 0 {
		setPath(out, "metadata.reset_fields", append([]string(nil), report.Reset...))
	}

	cfg, err := decodeRaw(out)
	if err != nil {
		return nil, nil, err
	}

	m.logger().Info("config migrated", "from", from, "to", CurrentSchema,
		"added", len(report.Added), "transformed", len(report.Transformed), "reset", len(report.Reset))
	return cfg, report, nil
}

// lookup resolves a dotted path. A parent that exists but is not a table
// counts as present with a nil value, so the rule's check rejects it.
func lookup(raw map[string]any, path string) (any, bool) {
	var cur any = raw
	for _, part := range strings.Split(path, ".") {
		table, ok := cur.(map[string]any)
		if !ok {
			return nil, true
		}
		cur, ok = table[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(out map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	table := out
	for _, part := range parts[:len(parts)-1] {
		next, ok := table[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			table[part] = next
		}
		table = next
	}
	table[parts[len(parts)-1]] = value
}

func encodeRaw(c *Config) (map[string]any, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	raw := map[string]any{}
	if _, err := toml.Decode(buf.String(), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return raw, nil
}

func decodeRaw(raw map[string]any) (*Config, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	var cfg Config
	if _, err := toml.Decode(buf.String(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isStringList(v any) bool {
	switch list := v.(type) {
	case []string:
		return true
	case []any:
		for _, item := range list {
			if !isString(item) {
				return false
			}
		}
		return true
	}
	return false
}

func isPositiveInt(v any) bool {
	n, ok := v.(int64)
	return ok && n > 0
}

// MaxContextLines bounds search.context_lines
const MaxContextLines = 10

func isContextLines(v any) bool {
	n, ok := v.(int64)
	return ok && n >= 0 && n <= MaxContextLines
}

func isExtensionList(v any) bool {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return false
	}
	for _, item := range list {
		ext, ok := item.(string)
		if !ok || !validExtension(ext) {
			return false
		}
	}
	return true
}

// extensionsWithoutDots accepts ".typ" style entries
func extensionsWithoutDots(v any) (any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]any, 0, len(list))
	for _, item := range list {
		ext, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
	}
	return out, true
}

func isStringTable(v any) bool {
	table, ok := v.(map[string]any)
	if !ok {
		return false
	}
	for _, item := range table {
		if !isString(item) {
			return false
		}
	}
	return true
}

func isRepositoryTable(v any) bool {
	table, ok := v.(map[string]any)
	if !ok {
		return false
	}
	for _, item := range table {
		repo, ok := item.(map[string]any)
		if !ok {
			return false
		}
		if !isString(repo["source"]) || !isString(repo["package"]) || !isBool(repo["enabled"]) {
			return false
		}
		if version, ok := repo["version"]; ok && !isString(version) {
			return false
		}
	}
	return true
}

var legacySemesterFormats = map[string]SemesterFormat{
	"YearSeason": SemesterYearSeason,
	"SeasonYear": SemesterSeasonYear,
	"Short":      SemesterShort,
}

func isSemesterFormat(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	if _, legacy := legacySemesterFormats[s]; legacy {
		return false
	}
	return !strings.Contains(s, "{}")
}

// semesterPlaceholders rewrites schema 1 formats: enum names become the
// named formats, {Custom = "..."} tables become their pattern and the bare
// {} year placeholder becomes {year}
func semesterPlaceholders(v any) (any, bool) {
	switch f := v.(type) {
	case string:
		if named, ok := legacySemesterFormats[f]; ok {
			return string(named), true
		}
		return strings.ReplaceAll(f, "{}", "{year}"), true
	case map[string]any:
		if custom, ok := f["Custom"].(string); ok {
			return strings.ReplaceAll(custom, "{}", "{year}"), true
		}
	}
	return nil, false
}

// repositoryFromString turns schema 1 "owner/repo" entries into repository
// tables and completes partial tables
func repositoryFromString(v any) (any, bool) {
	table, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}

	out := make(map[string]any, len(table))
	for alias, item := range table {
		switch entry := item.(type) {
		case string:
			out[alias] = map[string]any{
				"source":  entry,
				"package": packageFromSource(entry),
				"enabled": true,
			}
		case map[string]any:
			source, ok := entry["source"].(string)
			if !ok {
				return nil, false
			}
			repo := map[string]any{"source": source, "enabled": true}
			if pkg, ok := entry["package"].(string); ok && pkg != "" {
				repo["package"] = pkg
			} else {
				repo["package"] = packageFromSource(source)
			}
			if enabled, ok := entry["enabled"].(bool); ok {
				repo["enabled"] = enabled
			}
			if version, ok := entry["version"].(string); ok {
				repo["version"] = version
			}
			out[alias] = repo
		default:
			return nil, false
		}
	}
	return out, true
}

func packageFromSource(source string) string {
	if pkg, ok := knownPackages[source]; ok {
		return pkg
	}
	name := strings.TrimSuffix(strings.TrimRight(source, "/"), ".git")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
