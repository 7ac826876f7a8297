// Package registry models the per-directory build registry: the persisted record of which
// Markdown sources were converted, where their artifacts live, and the fingerprints
// observed at the last successful conversion.
package registry

import (
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FileName is the conventional registry file name inside a source directory.
const FileName = ".md2tex.settings.json"

// DefaultPython is the interpreter used for the post-processor when nothing else is configured.
const DefaultPython = "python3"

// DefaultExclude lists the file-name globs skipped in a freshly created registry.
var DefaultExclude = []string{"README.md", "draft-*"}

// BuildChaptersDir is the project-relative parent of every default output directory.
var BuildChaptersDir = filepath.Join("docs", "tex", "build", "chapters")

// Defaults is the tool configuration recorded alongside the entries.
// Fields are declared in JSON key order so the encoded form is sorted.
type Defaults struct {
	Exclude []string `json:"exclude"`
	OutDir  string   `json:"out_dir"`
	Pandoc  string   `json:"pandoc,omitempty"`
	Python  string   `json:"python"`
}

// Entry links one source file to its artifact.
type Entry struct {
	InputHash     string `json:"input_hash"`
	LastConverted string `json:"last_converted"`
	OutputHash    string `json:"output_hash"`
	TexFilepath   string `json:"tex_filepath"`
}

// Registry is the in-memory form of a registry file. Files is keyed by bare source file name.
type Registry struct {
	Defaults Defaults         `json:"defaults"`
	Files    map[string]Entry `json:"files"`
}

// DefaultOutDir maps a source directory to its sibling build-output directory, e.g.
// <root>/docs/ADR -> <root>/docs/tex/build/chapters/adr.
func DefaultOutDir(root, sourceDir string) string {
	name := cases.Lower(language.Und).String(filepath.Base(filepath.Clean(sourceDir)))
	return filepath.Join(root, BuildChaptersDir, name)
}

// DefaultsFor computes the defaults of a registry that has never been saved.
func DefaultsFor(root, sourceDir string) Defaults {
	return Defaults{
		Exclude: append([]string(nil), DefaultExclude...),
		OutDir:  DefaultOutDir(root, sourceDir),
		Python:  DefaultPython,
	}
}

// New returns an empty registry with the given defaults.
func New(defaults Defaults) *Registry {
	return &Registry{Defaults: defaults, Files: map[string]Entry{}}
}

// Lookup returns the entry recorded for a source file name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.Files[name]
	return e, ok
}

// Record stores or replaces the entry for a source file name.
func (r *Registry) Record(name string, e Entry) {
	if r.Files == nil {
		r.Files = map[string]Entry{}
	}
	r.Files[name] = e
}

// Names returns the tracked source names in lexicographic order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Files))
	for name := range r.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		Defaults: r.Defaults,
		Files:    make(map[string]Entry, len(r.Files)),
	}
	if r.Defaults.Exclude != nil {
		c.Defaults.Exclude = append([]string{}, r.Defaults.Exclude...)
	}
	for k, v := range r.Files {
		c.Files[k] = v
	}
	return c
}

// fillDefaults completes members a persisted file left out. A missing exclude list
// means no exclusions.
func (d *Defaults) fillDefaults(computed Defaults) {
	if strings.TrimSpace(d.OutDir) == "" {
		d.OutDir = computed.OutDir
	}
	if strings.TrimSpace(d.Python) == "" {
		d.Python = computed.Python
	}
	if d.Exclude == nil {
		d.Exclude = []string{}
	}
}
