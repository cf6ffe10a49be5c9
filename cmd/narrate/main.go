// Command narrate prints forecast narratives from the command line, for one
// place, for every built-in city, or for a saved forecast payload.
//
// Usage:
//
//	go run ./cmd/narrate -city gent -lang nl
//	go run ./cmd/narrate -q Wavre -lang fr
//	go run ./cmd/narrate -all -lang en -parallel 4
//	go run ./cmd/narrate -fixture internal/pipeline/testdata/brussels_2024-03-12.json \
//	  -now 2024-03-12T10:30 -city brussels -lang de
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/forecast-narrative-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/forecast-narrative-service/internal/adapter/synthetic"
	"github.com/couchcryptid/forecast-narrative-service/internal/config"
	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/couchcryptid/forecast-narrative-service/internal/observability"
	"github.com/couchcryptid/forecast-narrative-service/internal/pipeline"
)

type options struct {
	city      string
	query     string
	lat, lon  float64
	all       bool
	fixture   string
	synthetic bool
	lang      string
	now       string
	parallel  int
	asJSON    bool
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var o options
	flag.StringVar(&o.city, "city", "", "built-in city id or name")
	flag.StringVar(&o.query, "q", "", "free-text Belgian place search")
	flag.Float64Var(&o.lat, "lat", 0, "latitude (with -lon)")
	flag.Float64Var(&o.lon, "lon", 0, "longitude (with -lat)")
	flag.BoolVar(&o.all, "all", false, "narrate every built-in city")
	flag.StringVar(&o.fixture, "fixture", "", "read the forecast payload from this JSON file")
	flag.BoolVar(&o.synthetic, "synthetic", false, "use a generated forecast instead of the API")
	flag.StringVar(&o.lang, "lang", "", "narrative language (fr, nl, de, en)")
	flag.StringVar(&o.now, "now", "", "reference time, 2006-01-02T15:04 in the forecast timezone")
	flag.IntVar(&o.parallel, "parallel", 4, "concurrent requests with -all")
	flag.BoolVar(&o.asJSON, "json", false, "print narrative events as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	lang := cfg.DefaultLanguage
	if o.lang != "" {
		l, ok := domain.NormalizeLanguage(o.lang)
		if !ok {
			return fmt.Errorf("unsupported language %q", o.lang)
		}
		lang = l
	}

	clock := clockwork.NewRealClock()
	if o.now != "" {
		t, err := time.ParseInLocation("2006-01-02T15:04", o.now, cfg.Timezone)
		if err != nil {
			return fmt.Errorf("invalid -now: %w", err)
		}
		clock = clockwork.NewFakeClockAt(t)
	}

	reqs, err := requests(o, lang)
	if err != nil {
		flag.Usage()
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()
	phrases, err := domain.PhraseTableWithOverrides(cfg.PhrasesFile)
	if err != nil {
		return err
	}

	client := openmeteo.NewClient(cfg, metrics, logger)
	var primary domain.ForecastFetcher = client
	switch {
	case o.fixture != "":
		payload, err := readPayload(o.fixture)
		if err != nil {
			return err
		}
		primary = staticFetcher{payload: payload}
	case o.synthetic:
		primary = synthetic.NewGenerator(1, cfg.Timezone, clock)
	}

	narrator := pipeline.NewNarrator(
		pipeline.NewFallbackFetcher(primary, nil, metrics, logger),
		client,
		pipeline.NarratorOptions{
			Phrases:         phrases,
			Location:        cfg.Timezone,
			DefaultLanguage: lang,
			Clock:           clock,
		},
		metrics, logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events, err := pipeline.RefreshAll(ctx, narrator, reqs, o.parallel)
	if err != nil {
		return err
	}
	return printEvents(os.Stdout, events, o.asJSON)
}

func requests(o options, lang string) ([]domain.RefreshRequest, error) {
	if o.all {
		return pipeline.CityRequests(lang), nil
	}
	req := domain.RefreshRequest{ID: "cli", City: o.city, Query: o.query, Language: lang}
	if o.lat != 0 || o.lon != 0 {
		req.Lat, req.Lon = &o.lat, &o.lon
	}
	if err := domain.ValidateRefreshRequest(req); err != nil {
		return nil, fmt.Errorf("one of -city, -q, -lat/-lon or -all is required: %w", err)
	}
	return []domain.RefreshRequest{req}, nil
}

func readPayload(path string) (domain.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Payload{}, err
	}
	var p domain.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Payload{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return p, nil
}

// staticFetcher serves one payload for every coordinate.
type staticFetcher struct {
	payload domain.Payload
}

func (f staticFetcher) FetchForecast(context.Context, float64, float64) (domain.Payload, error) {
	return f.payload, nil
}

func printEvents(w io.Writer, events []domain.NarrativeEvent, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}
	for i, e := range events {
		if i > 0 {
			fmt.Fprintln(w, strings.Repeat("─", 60))
		}
		n := e.Narrative
		if !n.HasData() {
			fmt.Fprintf(w, "%s %s: no forecast data available\n", n.Emoji, e.Location.Label(e.Language))
			continue
		}
		fmt.Fprintf(w, "%s %s\n%s\n\n", n.Emoji, n.Title, n.Headline)
		for _, p := range n.Paragraphs {
			fmt.Fprintf(w, "%s\n\n", p)
		}
		if e.Synthetic {
			fmt.Fprintln(w, "(synthetic forecast)")
		}
	}
	return nil
}
