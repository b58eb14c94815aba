package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/locas/locas-backend/internal/environment"
	"github.com/locas/locas-backend/internal/location"
	"github.com/locas/locas-backend/internal/places"
	"github.com/locas/locas-backend/internal/providers"
)

// maxCategoryParallelism caps concurrent category fetches per analysis
// so one request cannot exhaust the adapters' connection budget.
const maxCategoryParallelism = 4

// Request carries everything an analyzer needs for one run.
type Request struct {
	Coordinates  location.Coordinates
	Query        string
	RadiusMeters int
	BusinessType string
}

// Analyzer produces a prose assessment of a location for one query kind.
type Analyzer interface {
	// Kind returns the analyzer's registration label
	Kind() string

	// Analyze gathers category data and synthesizes a text answer
	Analyze(ctx context.Context, req Request) (string, error)
}

// AnalysisError carries a human-readable cause for a failed analysis.
type AnalysisError struct {
	Cause string
}

func (e *AnalysisError) Error() string {
	return "analysis failed: " + e.Cause
}

// PlacesFinder is the slice of the places adapter analyzers depend on.
type PlacesFinder interface {
	FindPlaces(ctx context.Context, req places.SearchRequest) (*places.Results, error)
}

// EnvironmentFetcher is the slice of the environment adapter analyzers depend on.
type EnvironmentFetcher interface {
	GetEnvironmentalData(ctx context.Context, lat, lng float64, dataType environment.DataType) (*environment.Data, error)
}

// CategoryResult records the outcome of one category fetch. A failed
// fetch is kept as an explicit marker instead of aborting the run.
type CategoryResult struct {
	Category   string
	Places     []places.Place
	TotalFound int
	Err        error
}

// Failed reports whether this category's fetch failed.
func (r CategoryResult) Failed() bool {
	return r.Err != nil
}

// categoryQuery pairs a result label with its search request. The label
// usually equals the category but diverges for probes like competition.
type categoryQuery struct {
	label  string
	search places.SearchRequest
}

// collector implements the shared fan-out/aggregate half of every analyzer.
type collector struct {
	finder PlacesFinder
	env    EnvironmentFetcher
	log    *logrus.Logger
}

// collect fans out one Places lookup per query with bounded parallelism.
// Results come back in query order regardless of completion order, with
// per-category failures recorded in place.
func (c *collector) collect(ctx context.Context, queries []categoryQuery) []CategoryResult {
	results := make([]CategoryResult, len(queries))
	sem := semaphore.NewWeighted(maxCategoryParallelism)

	var g errgroup.Group
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = CategoryResult{Category: q.label, Err: err}
				return nil
			}
			defer sem.Release(1)

			found, err := c.finder.FindPlaces(ctx, q.search)
			if err != nil {
				c.log.WithError(err).WithField("category", q.label).Warn("category fetch failed")
				results[i] = CategoryResult{Category: q.label, Err: err}
				return nil
			}
			results[i] = CategoryResult{
				Category:   q.label,
				Places:     found.Places,
				TotalFound: found.TotalFound,
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines record failures in their slots

	return results
}

// collectEnvironment fetches environmental data with the same
// partial-failure tolerance as category fetches.
func (c *collector) collectEnvironment(ctx context.Context, coords location.Coordinates) *environment.Data {
	if c.env == nil {
		return nil
	}
	data, err := c.env.GetEnvironmentalData(ctx, coords.Latitude, coords.Longitude, environment.DataTypeBoth)
	if err != nil {
		c.log.WithError(err).Warn("environmental data fetch failed")
		return nil
	}
	return data
}

// usableCount returns how many categories produced data.
func usableCount(results []CategoryResult) int {
	n := 0
	for _, r := range results {
		if !r.Failed() {
			n++
		}
	}
	return n
}

// buildSummary renders collected data as structured text for the model.
// Output order follows the input order, so it is deterministic.
func buildSummary(coords location.Coordinates, results []CategoryResult, env *environment.Data) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis results for location (Lat: %g, Lng: %g):\n", coords.Latitude, coords.Longitude)

	for _, r := range results {
		name := titleize(r.Category)
		switch {
		case r.Failed():
			fmt.Fprintf(&b, "\n%s: lookup failed\n", name)
		case r.TotalFound == 0:
			fmt.Fprintf(&b, "\n%s: none found nearby\n", name)
		default:
			fmt.Fprintf(&b, "\n%s (%d):\n", name, r.TotalFound)
			for i, p := range r.Places {
				if i == 3 {
					break
				}
				fmt.Fprintf(&b, "- %s: %s", p.Name, p.Address)
				if p.Rating > 0 {
					fmt.Fprintf(&b, " (Rating: %.1f/5)", p.Rating)
				}
				b.WriteString("\n")
			}
		}
	}

	if env != nil {
		fmt.Fprintf(&b, "\nEnvironmental Data:\n%s\n", env.Describe())
	}

	return b.String()
}

// titleize turns a category label like "water_bodies" into "Water Bodies".
func titleize(label string) string {
	words := strings.Split(strings.ReplaceAll(label, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// summarize asks the language model to turn the structured summary into prose.
func summarize(ctx context.Context, provider providers.Provider, model, systemPrompt, userPrompt string) (string, error) {
	temperature := float32(0.7)
	maxTokens := 1500

	resp, err := provider.Complete(ctx, providers.CompletionRequest{
		Model:       model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Messages: []providers.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("model summarization: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("model returned an empty summary")
	}
	return resp.Choices[0].Message.Content, nil
}
