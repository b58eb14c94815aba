package analyzer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/locas/locas-backend/internal/places"
	"github.com/locas/locas-backend/internal/providers"
)

// KindLand labels the land-suitability analyzer.
const KindLand = "land"

// landCategories are the amenity classes relevant to a land purchase.
var landCategories = []string{
	"police", "schools", "hospitals", "transportation",
	"shopping", "parks", "restaurants", "banks",
	"government", "water_bodies",
}

const landSystemPrompt = `You are a real estate location analyst providing insights about locations.
Your analysis should be detailed, balanced, and objective, focusing on both
advantages and potential concerns for land purchase decisions.`

// LandAnalyzer assesses location suitability for buying land.
type LandAnalyzer struct {
	collector
	provider providers.Provider
	model    string
}

// NewLandAnalyzer wires the land analyzer to its service adapters.
func NewLandAnalyzer(finder PlacesFinder, env EnvironmentFetcher, provider providers.Provider, model string, log *logrus.Logger) *LandAnalyzer {
	if log == nil {
		log = logrus.New()
	}
	return &LandAnalyzer{
		collector: collector{finder: finder, env: env, log: log},
		provider:  provider,
		model:     model,
	}
}

// Kind returns the analyzer's registration label
func (a *LandAnalyzer) Kind() string {
	return KindLand
}

// Analyze gathers amenity and environmental data around the location and
// asks the model for a land-purchase assessment. Individual category
// failures degrade gracefully; only a total data loss is an error.
func (a *LandAnalyzer) Analyze(ctx context.Context, req Request) (string, error) {
	queries := make([]categoryQuery, 0, len(landCategories))
	for _, category := range landCategories {
		queries = append(queries, categoryQuery{
			label: category,
			search: places.SearchRequest{
				Latitude:     req.Coordinates.Latitude,
				Longitude:    req.Coordinates.Longitude,
				Category:     category,
				RadiusMeters: req.RadiusMeters,
			},
		})
	}

	results := a.collect(ctx, queries)
	envData := a.collectEnvironment(ctx, req.Coordinates)

	if usableCount(results) == 0 && envData == nil {
		return "", &AnalysisError{Cause: "no location data could be collected for this area"}
	}

	summary := buildSummary(req.Coordinates, results, envData)
	prompt := fmt.Sprintf(`A user at coordinates (%g, %g) is asking: %q

They want to know if this is a good place to buy land.

Here is data about the surrounding area:

%s

Please provide a detailed analysis of the suitability of this location for land purchase. Consider:
1. Proximity to essential services (schools, hospitals, police)
2. Access to amenities (shopping, restaurants, parks)
3. Transportation options
4. Environmental factors
5. Overall neighborhood profile

Highlight both advantages and potential concerns. Be balanced and objective.
Conclude with a summary assessment of whether this location would be good for land purchase.`,
		req.Coordinates.Latitude, req.Coordinates.Longitude, req.Query, summary)

	analysis, err := summarize(ctx, a.provider, a.model, landSystemPrompt, prompt)
	if err != nil {
		return "", &AnalysisError{Cause: err.Error()}
	}
	return analysis, nil
}
