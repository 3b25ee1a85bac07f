// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package header

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"go.astrophena.name/addheader/syncx"
	"go.astrophena.name/addheader/txtar"
	"go.astrophena.name/addheader/unwrap"
)

// Category names a family of files sharing the same comment syntax and
// therefore the same header template.
type Category string

// Built-in categories.
const (
	Script Category = "script" // JavaScript and TypeScript
	Hash   Category = "hash"   // Python and other #-commented languages
	Style  Category = "style"  // CSS and SCSS
	Markup Category = "markup" // HTML
)

// Options is the editable form of a [Config].
type Options struct {
	// Holder is the copyright holder rendered into headers.
	Holder string `yaml:"holder"`
	// URL is an optional link rendered below the copyright line.
	URL string `yaml:"url"`
	// Year is the copyright year. If zero, the current year at the time the
	// Config is created is used.
	Year int `yaml:"year"`
	// YearFromModTime makes each header use the year of the file's last
	// modification instead of Year.
	YearFromModTime bool `yaml:"year_from_mtime"`
	// Markers identify an existing copyright notice. Each one is a
	// text/template source rendered with the same data as headers and then
	// matched as a substring.
	Markers []string `yaml:"markers"`
	// Extensions maps file extensions to categories. Mapping an extension
	// to an empty category removes it.
	Extensions map[string]Category `yaml:"extensions"`
	// IgnoreDirs are directory names that are never descended into.
	IgnoreDirs []string `yaml:"ignore_dirs"`
	// IgnoreFiles are file names that are never processed.
	IgnoreFiles []string `yaml:"ignore_files"`
	// Exclude are doublestar glob patterns matched against slash-separated
	// paths relative to the root directory.
	Exclude []string `yaml:"exclude"`
	// Templates maps categories to text/template sources of their headers.
	Templates map[Category]string `yaml:"-"`
}

// configFile is the name of the YAML file inside a configuration archive.
const configFile = "config.yaml"

// templatePrefix prefixes template file names inside a configuration archive.
const templatePrefix = "template."

//go:embed default.txtar
var defaultConfig []byte

var defaultArchive = txtar.Parse(defaultConfig)

// now is replaced in tests.
var now = time.Now

// DefaultOptions returns the built-in options. Each call returns a fresh
// value that the caller may modify.
func DefaultOptions() Options {
	return unwrap.Value(parseOptions(defaultArchive, Options{}))
}

// ReadOptions reads a configuration archive from path and layers it over
// the built-in options.
//
// The archive is in txtar format. Its config.yaml file overrides scalar and
// list options and adds to the extension table; each template.<category>
// file adds or replaces the template of that category.
func ReadOptions(path string) (Options, error) {
	ar, err := txtar.ParseFile(path)
	if err != nil {
		return Options{}, err
	}
	opts, err := parseOptions(ar, DefaultOptions())
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

func parseOptions(ar *txtar.Archive, opts Options) (Options, error) {
	if opts.Extensions == nil {
		opts.Extensions = make(map[string]Category)
	}
	if opts.Templates == nil {
		opts.Templates = make(map[Category]string)
	}
	for _, f := range ar.Files {
		switch {
		case f.Name == configFile:
			if err := yaml.Unmarshal(f.Data, &opts); err != nil {
				return Options{}, fmt.Errorf("parsing %s: %w", configFile, err)
			}
		case strings.HasPrefix(f.Name, templatePrefix):
			cat := Category(strings.TrimPrefix(f.Name, templatePrefix))
			opts.Templates[cat] = string(f.Data)
		}
	}
	return opts, nil
}

// Config is an immutable, validated configuration created by [New].
// It is safe for concurrent use.
type Config struct {
	holder      string
	url         string
	year        int
	fromModTime bool
	markers     []*template.Template
	templates   map[Category]*template.Template
	extensions  map[string]Category
	ignoreDirs  map[string]bool
	ignoreFiles map[string]bool
	exclude     []string

	rendered        syncx.Map[renderKey, []byte]
	renderedMarkers syncx.Map[int, [][]byte]
}

type renderKey struct {
	cat  Category
	year int
}

type templateData struct {
	Year   int
	Holder string
	URL    string
}

// New validates opts and returns the configuration they describe.
func New(opts Options) (*Config, error) {
	c := &Config{
		holder:      opts.Holder,
		url:         opts.URL,
		year:        opts.Year,
		fromModTime: opts.YearFromModTime,
		templates:   make(map[Category]*template.Template),
		extensions:  make(map[string]Category),
		ignoreDirs:  make(map[string]bool),
		ignoreFiles: make(map[string]bool),
	}

	if c.year < 0 {
		return nil, fmt.Errorf("invalid year %d", c.year)
	}
	if c.year == 0 {
		c.year = now().Year()
	}

	for _, m := range opts.Markers {
		if m == "" {
			continue
		}
		tmpl, err := template.New("marker").Parse(m)
		if err != nil {
			return nil, fmt.Errorf("marker %q: %w", m, err)
		}
		if err := tmpl.Execute(io.Discard, c.data(c.year)); err != nil {
			return nil, fmt.Errorf("marker %q: %w", m, err)
		}
		c.markers = append(c.markers, tmpl)
	}
	if len(c.markers) == 0 {
		return nil, errors.New("at least one copyright marker is required")
	}

	for _, cat := range slices.Sorted(maps.Keys(opts.Templates)) {
		tmpl, err := template.New(string(cat)).Parse(opts.Templates[cat])
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", cat, err)
		}
		c.templates[cat] = tmpl
		// A header without a marker would be added again on every run.
		hdr, err := c.render(cat, c.year)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", cat, err)
		}
		if !c.HasMarker(hdr, c.year) {
			return nil, fmt.Errorf("template %q: rendered header contains none of the copyright markers %q", cat, opts.Markers)
		}
	}

	for _, ext := range slices.Sorted(maps.Keys(opts.Extensions)) {
		cat := opts.Extensions[ext]
		if cat == "" {
			continue
		}
		if _, ok := c.templates[cat]; !ok {
			return nil, fmt.Errorf("extension %q: no template for category %q", ext, cat)
		}
		c.extensions[normalizeExt(ext)] = cat
	}

	for _, name := range opts.IgnoreDirs {
		c.ignoreDirs[name] = true
	}
	for _, name := range opts.IgnoreFiles {
		c.ignoreFiles[name] = true
	}

	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclusion pattern %q", pattern)
		}
		c.exclude = append(c.exclude, pattern)
	}

	return c, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// extension returns the lower-cased extension of a file name. Names like
// ".gitignore", whose only dot is the leading one, have no extension.
func extension(name string) string {
	ext := filepath.Ext(name)
	if ext == name {
		return ""
	}
	return strings.ToLower(ext)
}

// Category returns the category of the file name based on its extension.
func (c *Config) Category(name string) (Category, bool) {
	cat, ok := c.extensions[extension(name)]
	return cat, ok
}

// IgnoresDir reports whether directories with this name are pruned.
func (c *Config) IgnoresDir(name string) bool { return c.ignoreDirs[name] }

// IgnoresFile reports whether files with this name are skipped.
func (c *Config) IgnoresFile(name string) bool { return c.ignoreFiles[name] }

// Excludes reports whether the slash-separated path, relative to the root
// directory, matches one of the exclusion patterns.
func (c *Config) Excludes(rel string) bool {
	for _, pattern := range c.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// HasMarker reports whether text contains any of the copyright markers
// rendered for year.
func (c *Config) HasMarker(text []byte, year int) bool {
	for _, m := range c.markersFor(year) {
		if bytes.Contains(text, m) {
			return true
		}
	}
	return false
}

func (c *Config) markersFor(year int) [][]byte {
	if ms, ok := c.renderedMarkers.Load(year); ok {
		return ms
	}
	var ms [][]byte
	for _, tmpl := range c.markers {
		var buf bytes.Buffer
		// Markers were executed with the same data in New.
		if err := tmpl.Execute(&buf, c.data(year)); err != nil || buf.Len() == 0 {
			continue
		}
		ms = append(ms, buf.Bytes())
	}
	ms, _ = c.renderedMarkers.LoadOrStore(year, ms)
	return ms
}

// Holder returns the copyright holder rendered into headers.
func (c *Config) Holder() string { return c.holder }

// Year returns the copyright year of new headers. It is fixed when the
// Config is created.
func (c *Config) Year() int { return c.year }

// YearFromModTime reports whether headers use the year of each file's last
// modification instead of [Config.Year].
func (c *Config) YearFromModTime() bool { return c.fromModTime }

// Header returns the rendered header of a category for the given year.
func (c *Config) Header(cat Category, year int) ([]byte, error) {
	key := renderKey{cat, year}
	if hdr, ok := c.rendered.Load(key); ok {
		return hdr, nil
	}
	hdr, err := c.render(cat, year)
	if err != nil {
		return nil, err
	}
	hdr, _ = c.rendered.LoadOrStore(key, hdr)
	return hdr, nil
}

func (c *Config) render(cat Category, year int) ([]byte, error) {
	tmpl, ok := c.templates[cat]
	if !ok {
		return nil, fmt.Errorf("no template for category %q", cat)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, c.data(year)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Config) data(year int) templateData {
	return templateData{Year: year, Holder: c.holder, URL: c.url}
}
