package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/locas/locas-backend/internal/analyzer"
	"github.com/locas/locas-backend/internal/environment"
	"github.com/locas/locas-backend/internal/location"
	"github.com/locas/locas-backend/internal/places"
)

// PlacesFinder is the slice of the places adapter tools depend on.
type PlacesFinder interface {
	FindPlaces(ctx context.Context, req places.SearchRequest) (*places.Results, error)
}

// EnvironmentFetcher is the slice of the environment adapter tools depend on.
type EnvironmentFetcher interface {
	GetEnvironmentalData(ctx context.Context, lat, lng float64, dataType environment.DataType) (*environment.Data, error)
}

// Dependencies carries the adapters and analyzers the default tools call.
type Dependencies struct {
	Places      PlacesFinder
	Environment EnvironmentFetcher
	Land        analyzer.Analyzer
	Business    analyzer.Analyzer
}

// DefaultRegistry declares the built-in tool set exposed to the model.
func DefaultRegistry(deps Dependencies) (*Registry, error) {
	r := NewRegistry()

	defs := []Definition{
		{
			Name:        "find_places",
			Description: "Find places of a specific type near the specified location.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"latitude":   numberParam("The latitude coordinate"),
					"longitude":  numberParam("The longitude coordinate"),
					"place_type": stringParam(`Type of place to search for (e.g., "park", "hospital", "gym")`),
					"radius":     integerParam("Search radius in meters (default: 1500)"),
					"keyword":    stringParam("Additional keywords to refine the search (optional)"),
				},
				"required": []string{"latitude", "longitude", "place_type"},
			},
			Handler: findPlacesHandler(deps.Places),
		},
		{
			Name:        "analyze_location_suitability",
			Description: "Analyze the suitability of a location for land purchase by checking multiple categories of nearby amenities.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"latitude":  numberParam("The latitude coordinate"),
					"longitude": numberParam("The longitude coordinate"),
					"radius":    integerParam("Search radius in meters (default: 1500)"),
				},
				"required": []string{"latitude", "longitude"},
			},
			Handler: analyzerHandler(deps.Land, "Can I buy land here?", ""),
		},
		{
			Name:        "analyze_business_viability",
			Description: "Analyze the viability of opening a business at the specified location by checking foot traffic generators and competition.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"latitude":      numberParam("The latitude coordinate"),
					"longitude":     numberParam("The longitude coordinate"),
					"radius":        integerParam("Search radius in meters (default: 1500)"),
					"business_type": stringParam(`Type of business to analyze (e.g., "tea stall", "coffee shop", "restaurant")`),
				},
				"required": []string{"latitude", "longitude"},
			},
			Handler: businessHandler(deps.Business),
		},
		{
			Name:        "get_environmental_data",
			Description: "Get environmental data for the specified location.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"latitude":  numberParam("The latitude coordinate"),
					"longitude": numberParam("The longitude coordinate"),
					"data_type": map[string]interface{}{
						"type":        "string",
						"description": `Type of data to return - "air" for air quality, "pollen" for pollen data, or "both" (default)`,
						"enum":        []string{"air", "pollen", "both"},
					},
				},
				"required": []string{"latitude", "longitude"},
			},
			Handler: environmentHandler(deps.Environment),
		},
	}

	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func numberParam(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

func stringParam(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func integerParam(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func coordinates(lat, lng float64) location.Coordinates {
	return location.Coordinates{Latitude: lat, Longitude: lng}
}

// requireCoordinates reads the mandatory latitude/longitude arguments.
// A call without them is a parse failure for location-requiring tools.
func requireCoordinates(args Arguments) (float64, float64, error) {
	lat, ok1 := args.Float("latitude")
	lng, ok2 := args.Float("longitude")
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("latitude and longitude are required")
	}
	return lat, lng, nil
}

func findPlacesHandler(finder PlacesFinder) Handler {
	return func(ctx context.Context, args Arguments) (string, error) {
		lat, lng, err := requireCoordinates(args)
		if err != nil {
			return "", err
		}
		placeType, ok := args.String("place_type")
		if !ok || placeType == "" {
			return "", fmt.Errorf("place_type is required")
		}
		radius, _ := args.Int("radius")
		keyword, _ := args.String("keyword")

		results, err := finder.FindPlaces(ctx, places.SearchRequest{
			Latitude:     lat,
			Longitude:    lng,
			Category:     placeType,
			RadiusMeters: radius,
			Keyword:      keyword,
		})
		if err != nil {
			return "", err
		}
		if results.TotalFound == 0 {
			return "", fmt.Errorf("no %s found near the provided location (lat: %g, lng: %g)", placeType, lat, lng)
		}
		return formatResults(results), nil
	}
}

func analyzerHandler(a analyzer.Analyzer, query, businessType string) Handler {
	return func(ctx context.Context, args Arguments) (string, error) {
		lat, lng, err := requireCoordinates(args)
		if err != nil {
			return "", err
		}
		radius, _ := args.Int("radius")

		return a.Analyze(ctx, analyzer.Request{
			Coordinates:  coordinates(lat, lng),
			Query:        query,
			RadiusMeters: radius,
			BusinessType: businessType,
		})
	}
}

func businessHandler(a analyzer.Analyzer) Handler {
	return func(ctx context.Context, args Arguments) (string, error) {
		lat, lng, err := requireCoordinates(args)
		if err != nil {
			return "", err
		}
		radius, _ := args.Int("radius")
		businessType, _ := args.String("business_type")
		if businessType == "" {
			businessType = "business"
		}

		return a.Analyze(ctx, analyzer.Request{
			Coordinates:  coordinates(lat, lng),
			Query:        fmt.Sprintf("Can I start a %s here?", businessType),
			RadiusMeters: radius,
			BusinessType: businessType,
		})
	}
}

func environmentHandler(env EnvironmentFetcher) Handler {
	return func(ctx context.Context, args Arguments) (string, error) {
		lat, lng, err := requireCoordinates(args)
		if err != nil {
			return "", err
		}
		dataType, _ := args.String("data_type")
		if dataType == "" {
			dataType = string(environment.DataTypeBoth)
		}

		data, err := env.GetEnvironmentalData(ctx, lat, lng, environment.DataType(dataType))
		if err != nil {
			return "", err
		}
		return data.Describe(), nil
	}
}

// formatResults renders a place listing for the model.
func formatResults(results *places.Results) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s:\n", results.TotalFound, results.SearchTerm)
	for _, p := range results.Places {
		fmt.Fprintf(&b, "- %s: %s", p.Name, p.Address)
		if p.Rating > 0 {
			fmt.Fprintf(&b, " (Rating: %.1f/5)", p.Rating)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
