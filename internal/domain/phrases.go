package domain

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// PlaceholderSentence is rendered when neither the requested nor the base
// language defines a key.
const PlaceholderSentence = "Information unavailable."

//go:embed phrases/*.yaml
var embeddedPhrases embed.FS

// placeholderRe matches {name} template variables.
var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// phraseDocument is one YAML document: the templates of a single language.
type phraseDocument struct {
	Language string            `yaml:"language"`
	Phrases  map[string]string `yaml:"phrases"`
}

// PhraseTable holds templates per language. It is read-only once built.
type PhraseTable struct {
	base    string
	phrases map[string]map[string]string
}

var defaultPhrases = sync.OnceValues(func() (*PhraseTable, error) {
	return LoadPhraseTable(embeddedPhrases, BaseLanguage)
})

// DefaultPhraseTable returns the embedded fr/nl/de/en tables.
func DefaultPhraseTable() *PhraseTable {
	table, err := defaultPhrases()
	if err != nil {
		// Embedded files are compiled in; a parse failure is a build defect.
		panic(fmt.Sprintf("embedded phrase tables: %v", err))
	}
	return table
}

// LoadPhraseTable reads phrases/*.yaml from fsys, or *.yaml at its root when
// there is no phrases directory.
func LoadPhraseTable(fsys fs.FS, base string) (*PhraseTable, error) {
	files, err := fs.Glob(fsys, "phrases/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list phrase files: %w", err)
	}
	if len(files) == 0 {
		files, err = fs.Glob(fsys, "*.yaml")
		if err != nil {
			return nil, fmt.Errorf("list phrase files: %w", err)
		}
	}

	table := NewPhraseTable(base, nil)
	for _, name := range files {
		f, err := fsys.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		err = table.Merge(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return table, nil
}

// PhraseTableWithOverrides returns the embedded tables with the YAML
// documents in path merged over them. An empty path returns the defaults.
func PhraseTableWithOverrides(path string) (*PhraseTable, error) {
	if path == "" {
		return DefaultPhraseTable(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open phrases: %w", err)
	}
	defer f.Close()

	table := DefaultPhraseTable().Clone()
	if err := table.Merge(f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return table, nil
}

// NewPhraseTable builds a table from an in-memory map of language → key →
// template. The map is copied.
func NewPhraseTable(base string, phrases map[string]map[string]string) *PhraseTable {
	t := &PhraseTable{base: base, phrases: make(map[string]map[string]string, len(phrases))}
	for lang, dict := range phrases {
		t.phrases[lang] = maps.Clone(dict)
	}
	return t
}

// Merge decodes a YAML stream of phrase documents, overriding existing keys.
func (t *PhraseTable) Merge(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	for {
		var doc phraseDocument
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		lang := strings.ToLower(strings.TrimSpace(doc.Language))
		if lang == "" {
			return errors.New("phrase document without language")
		}
		if t.phrases[lang] == nil {
			t.phrases[lang] = make(map[string]string, len(doc.Phrases))
		}
		maps.Copy(t.phrases[lang], doc.Phrases)
	}
}

// Clone returns an independent copy, useful before merging overrides.
func (t *PhraseTable) Clone() *PhraseTable {
	return NewPhraseTable(t.base, t.phrases)
}

// Base returns the fallback language.
func (t *PhraseTable) Base() string {
	return t.base
}

// Languages lists the languages with at least one template, sorted.
func (t *PhraseTable) Languages() []string {
	return slices.Sorted(maps.Keys(t.phrases))
}

// Keys lists the keys defined for lang, sorted.
func (t *PhraseTable) Keys(lang string) []string {
	return slices.Sorted(maps.Keys(t.phrases[lang]))
}

// Has reports whether lang itself defines key, without fallback.
func (t *PhraseTable) Has(lang, key string) bool {
	v, ok := t.phrases[lang][key]
	return ok && strings.TrimSpace(v) != ""
}

// Lookup returns the template for key in lang, falling back to the base
// language and then to PlaceholderSentence. It never returns "".
func (t *PhraseTable) Lookup(lang, key string) string {
	if t != nil {
		if t.Has(lang, key) {
			return t.phrases[lang][key]
		}
		if t.Has(t.base, key) {
			return t.phrases[t.base][key]
		}
	}
	return PlaceholderSentence
}

// Render looks up key and substitutes vars into its {name} placeholders.
// Unknown placeholders are left as-is.
func (t *PhraseTable) Render(lang, key string, vars map[string]string) string {
	return renderTemplate(t.Lookup(lang, key), vars)
}

// Placeholders returns the variable names a template refers to, in order of
// first appearance.
func Placeholders(tmpl string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

func renderTemplate(tmpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tmpl
	}
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}
