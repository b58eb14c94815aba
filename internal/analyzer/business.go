package analyzer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/locas/locas-backend/internal/places"
	"github.com/locas/locas-backend/internal/providers"
)

// KindBusiness labels the business-viability analyzer.
const KindBusiness = "business"

// businessCategories are foot-traffic generators relevant to a local business.
var businessCategories = []string{
	"schools", "hospitals", "transportation", "shopping",
	"parks", "government", "cafes", "restaurants",
}

const businessSystemPrompt = `You are a small business location analyst specializing in retail and food service businesses.
You provide insights about locations for business opportunities, with
consideration for foot traffic, competition, and business viability.`

// BusinessAnalyzer assesses location viability for opening a local business.
type BusinessAnalyzer struct {
	collector
	provider providers.Provider
	model    string
}

// NewBusinessAnalyzer wires the business analyzer to its service adapters.
func NewBusinessAnalyzer(finder PlacesFinder, env EnvironmentFetcher, provider providers.Provider, model string, log *logrus.Logger) *BusinessAnalyzer {
	if log == nil {
		log = logrus.New()
	}
	return &BusinessAnalyzer{
		collector: collector{finder: finder, env: env, log: log},
		provider:  provider,
		model:     model,
	}
}

// Kind returns the analyzer's registration label
func (a *BusinessAnalyzer) Kind() string {
	return KindBusiness
}

// competitionProbe maps a business type onto the place category and
// keyword used to find competing businesses.
func competitionProbe(businessType string) places.SearchRequest {
	switch businessType {
	case "tea stall":
		return places.SearchRequest{Category: "cafe", Keyword: "tea"}
	case "coffee shop":
		return places.SearchRequest{Category: "cafe", Keyword: "coffee"}
	case "restaurant":
		return places.SearchRequest{Category: "restaurant"}
	default:
		return places.SearchRequest{Category: "store", Keyword: businessType}
	}
}

// Analyze gathers foot-traffic, competition, and environmental data and
// asks the model for a viability assessment of the given business type.
func (a *BusinessAnalyzer) Analyze(ctx context.Context, req Request) (string, error) {
	businessType := req.BusinessType
	if businessType == "" {
		businessType = "business"
	}

	queries := make([]categoryQuery, 0, len(businessCategories)+1)
	for _, category := range businessCategories {
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

	probe := competitionProbe(businessType)
	probe.Latitude = req.Coordinates.Latitude
	probe.Longitude = req.Coordinates.Longitude
	probe.RadiusMeters = req.RadiusMeters
	queries = append(queries, categoryQuery{label: "competition", search: probe})

	results := a.collect(ctx, queries)
	envData := a.collectEnvironment(ctx, req.Coordinates)

	if usableCount(results) == 0 && envData == nil {
		return "", &AnalysisError{Cause: "no location data could be collected for this area"}
	}

	summary := buildSummary(req.Coordinates, results, envData)
	prompt := fmt.Sprintf(`A user at coordinates (%g, %g) is asking: %q

They want to know if this is a good place to open a %s.

Here is data about the surrounding area:

%s

Please provide a detailed analysis of the viability of opening a %s at this location. Consider:
1. Foot traffic generators (schools, offices, transit stations, etc.)
2. Existing competition (other similar businesses)
3. Demographics of the area
4. Environmental factors
5. Business potential

Highlight both advantages and potential challenges. Be balanced and objective.
Conclude with a summary assessment of whether this location would be good for a %s business.`,
		req.Coordinates.Latitude, req.Coordinates.Longitude, req.Query,
		businessType, summary, businessType, businessType)

	analysis, err := summarize(ctx, a.provider, a.model, businessSystemPrompt, prompt)
	if err != nil {
		return "", &AnalysisError{Cause: err.Error()}
	}
	return analysis, nil
}
