// Command phrasecheck validates narrative phrase tables: every supported
// language must define every key of the base language, templates may only
// use placeholders the base template uses, and rendering a sample forecast
// must leave no unresolved placeholder behind.
//
// Usage:
//
//	go run ./cmd/phrasecheck
//	go run ./cmd/phrasecheck -phrases overrides.yaml \
//	  -fixture internal/pipeline/testdata/brussels_2024-03-12.json -now 2024-03-12T10:30
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	phrasesPath := flag.String("phrases", "", "YAML overrides merged over the embedded tables")
	fixture := flag.String("fixture", "", "forecast payload JSON used for the render phase")
	now := flag.String("now", "", "reference time for -fixture, 2006-01-02T15:04 Europe/Brussels")
	flag.Parse()

	os.Exit(run(*phrasesPath, *fixture, *now))
}

func run(phrasesPath, fixture, now string) int {
	fmt.Println("=== Phrase Table Validation ===")
	fmt.Println()

	table, err := domain.PhraseTableWithOverrides(phrasesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load phrases: %v\n", err)
		return 1
	}

	phases := []*phase{
		checkCoverage(table),
		checkPlaceholders(table),
	}
	if fixture != "" {
		p, ref, err := loadFixture(fixture, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
			return 1
		}
		phases = append(phases, checkRendering(table, p, ref))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Languages: %s (base %s), %d keys\n",
		strings.Join(table.Languages(), ", "), table.Base(), len(table.Keys(table.Base())))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Coverage ──

func checkCoverage(table *domain.PhraseTable) *phase {
	p := &phase{name: "Phase 1: Key coverage"}
	base := table.Keys(table.Base())

	for _, lang := range domain.SupportedLanguages {
		if lang == table.Base() {
			continue
		}
		keys := table.Keys(lang)
		for _, key := range base {
			if !table.Has(lang, key) {
				p.errorf("%s: missing key %q", lang, key)
			}
		}
		for _, key := range keys {
			if !slices.Contains(base, key) {
				p.errorf("%s: key %q is not defined in %s", lang, key, table.Base())
			}
		}
	}
	return p
}

// ── Phase 2: Placeholders ──

func checkPlaceholders(table *domain.PhraseTable) *phase {
	p := &phase{name: "Phase 2: Placeholder consistency"}
	base := table.Base()

	for _, lang := range domain.SupportedLanguages {
		for _, key := range table.Keys(lang) {
			if !table.Has(base, key) {
				continue
			}
			allowed := domain.Placeholders(table.Lookup(base, key))
			for _, name := range domain.Placeholders(table.Lookup(lang, key)) {
				if !slices.Contains(allowed, name) {
					p.errorf("%s/%s: unknown placeholder {%s}", lang, key, name)
				}
			}
		}
	}
	return p
}

// ── Phase 3: Rendering ──

func checkRendering(table *domain.PhraseTable, payload domain.Payload, now time.Time) *phase {
	p := &phase{name: "Phase 3: Sample rendering"}

	for _, lang := range domain.SupportedLanguages {
		n := domain.BuildNarrative(payload, domain.NarrativeRequest{
			Location: "Bruxelles",
			Language: lang,
			Now:      now,
			Loc:      now.Location(),
			Phrases:  table,
		})
		if !n.HasData() {
			p.errorf("%s: fixture produced no narrative", lang)
			continue
		}
		texts := append([]string{n.Title, n.Headline, n.ConfidenceLabel}, n.Paragraphs...)
		for _, text := range texts {
			if len(domain.Placeholders(text)) > 0 {
				p.errorf("%s: unresolved placeholder in %q", lang, text)
			}
			if strings.Contains(text, domain.PlaceholderSentence) {
				p.errorf("%s: missing template rendered as %q", lang, text)
			}
		}
	}
	return p
}

func loadFixture(path, now string) (domain.Payload, time.Time, error) {
	loc, err := time.LoadLocation("Europe/Brussels")
	if err != nil {
		return domain.Payload{}, time.Time{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Payload{}, time.Time{}, err
	}
	var p domain.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Payload{}, time.Time{}, err
	}
	ref := time.Now().In(loc)
	if now != "" {
		if ref, err = time.ParseInLocation("2006-01-02T15:04", now, loc); err != nil {
			return domain.Payload{}, time.Time{}, err
		}
	}
	return p, ref, nil
}
