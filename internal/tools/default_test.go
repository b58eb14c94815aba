package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locas/locas-backend/internal/analyzer"
	"github.com/locas/locas-backend/internal/environment"
	"github.com/locas/locas-backend/internal/location"
	"github.com/locas/locas-backend/internal/places"
	"github.com/locas/locas-backend/internal/providers"
)

type stubFinder struct {
	lastRequest places.SearchRequest
	results     *places.Results
	err         error
}

func (s *stubFinder) FindPlaces(_ context.Context, req places.SearchRequest) (*places.Results, error) {
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type stubEnv struct {
	lastType environment.DataType
	data     *environment.Data
	err      error
}

func (s *stubEnv) GetEnvironmentalData(_ context.Context, lat, lng float64, dataType environment.DataType) (*environment.Data, error) {
	s.lastType = dataType
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

type stubAnalyzer struct {
	kind        string
	lastRequest analyzer.Request
	reply       string
	err         error
}

func (s *stubAnalyzer) Kind() string { return s.kind }

func (s *stubAnalyzer) Analyze(_ context.Context, req analyzer.Request) (string, error) {
	s.lastRequest = req
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestRegistry(t *testing.T, deps Dependencies) *Registry {
	t.Helper()
	r, err := DefaultRegistry(deps)
	require.NoError(t, err)
	return r
}

func call(name, arguments string) providers.ToolCall {
	return providers.ToolCall{
		ID:       "call-1",
		Type:     "function",
		Function: providers.FunctionCall{Name: name, Arguments: arguments},
	}
}

func TestDefaultRegistryDeclaresAllTools(t *testing.T) {
	r := newTestRegistry(t, Dependencies{
		Places:      &stubFinder{},
		Environment: &stubEnv{},
		Land:        &stubAnalyzer{kind: "land"},
		Business:    &stubAnalyzer{kind: "business"},
	})

	defs := r.Definitions()
	require.Len(t, defs, 4)
	assert.Equal(t, "find_places", defs[0].Function.Name)
	assert.Equal(t, "analyze_location_suitability", defs[1].Function.Name)
	assert.Equal(t, "analyze_business_viability", defs[2].Function.Name)
	assert.Equal(t, "get_environmental_data", defs[3].Function.Name)
}

func TestFindPlacesTool(t *testing.T) {
	finder := &stubFinder{results: &places.Results{
		SearchTerm: "park",
		TotalFound: 1,
		Places:     []places.Place{{Name: "City Park", Address: "Park Rd", Rating: 4.5}},
	}}
	r := newTestRegistry(t, Dependencies{Places: finder, Environment: &stubEnv{}, Land: &stubAnalyzer{kind: "land"}, Business: &stubAnalyzer{kind: "business"}})

	res := r.Dispatch(context.Background(),
		call("find_places", `{"latitude":23.81,"longitude":90.41,"place_type":"park","radius":2000,"keyword":"lake"}`))

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Payload, "Found 1 park")
	assert.Contains(t, res.Payload, "City Park: Park Rd (Rating: 4.5/5)")
	assert.Equal(t, "park", finder.lastRequest.Category)
	assert.Equal(t, 2000, finder.lastRequest.RadiusMeters)
	assert.Equal(t, "lake", finder.lastRequest.Keyword)
}

func TestFindPlacesToolZeroResultsIsFailure(t *testing.T) {
	finder := &stubFinder{results: &places.Results{SearchTerm: "gym", TotalFound: 0}}
	r := newTestRegistry(t, Dependencies{Places: finder, Environment: &stubEnv{}, Land: &stubAnalyzer{kind: "land"}, Business: &stubAnalyzer{kind: "business"}})

	res := r.Dispatch(context.Background(),
		call("find_places", `{"latitude":23.81,"longitude":90.41,"place_type":"gym"}`))

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no gym found")
}

func TestFindPlacesToolRequiresCoordinates(t *testing.T) {
	r := newTestRegistry(t, Dependencies{Places: &stubFinder{}, Environment: &stubEnv{}, Land: &stubAnalyzer{kind: "land"}, Business: &stubAnalyzer{kind: "business"}})

	res := r.Dispatch(context.Background(), call("find_places", `{"place_type":"park"}`))

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "latitude and longitude are required")
}

func TestLandSuitabilityTool(t *testing.T) {
	land := &stubAnalyzer{kind: "land", reply: "solid neighborhood"}
	r := newTestRegistry(t, Dependencies{Places: &stubFinder{}, Environment: &stubEnv{}, Land: land, Business: &stubAnalyzer{kind: "business"}})

	res := r.Dispatch(context.Background(),
		call("analyze_location_suitability", `{"latitude":23.81,"longitude":90.41,"radius":3000}`))

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "solid neighborhood", res.Payload)
	assert.Equal(t, location.Coordinates{Latitude: 23.81, Longitude: 90.41}, land.lastRequest.Coordinates)
	assert.Equal(t, 3000, land.lastRequest.RadiusMeters)
}

func TestBusinessViabilityToolDefaultsType(t *testing.T) {
	business := &stubAnalyzer{kind: "business", reply: "viable"}
	r := newTestRegistry(t, Dependencies{Places: &stubFinder{}, Environment: &stubEnv{}, Land: &stubAnalyzer{kind: "land"}, Business: business})

	res := r.Dispatch(context.Background(),
		call("analyze_business_viability", `{"latitude":23.81,"longitude":90.41}`))

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "business", business.lastRequest.BusinessType)
	assert.Equal(t, "Can I start a business here?", business.lastRequest.Query)
}

func TestBusinessViabilityToolForwardsType(t *testing.T) {
	business := &stubAnalyzer{kind: "business", reply: "viable"}
	r := newTestRegistry(t, Dependencies{Places: &stubFinder{}, Environment: &stubEnv{}, Land: &stubAnalyzer{kind: "land"}, Business: business})

	res := r.Dispatch(context.Background(),
		call("analyze_business_viability", `{"latitude":23.81,"longitude":90.41,"business_type":"tea stall"}`))

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "tea stall", business.lastRequest.BusinessType)
}

func TestEnvironmentalDataTool(t *testing.T) {
	env := &stubEnv{data: &environment.Data{
		AirQuality: &environment.AirQuality{
			Indexes: []environment.AirQualityIndex{{Name: "Universal AQI", Value: 40, Category: "Good"}},
		},
	}}
	r := newTestRegistry(t, Dependencies{Places: &stubFinder{}, Environment: env, Land: &stubAnalyzer{kind: "land"}, Business: &stubAnalyzer{kind: "business"}})

	res := r.Dispatch(context.Background(),
		call("get_environmental_data", `{"latitude":23.81,"longitude":90.41,"data_type":"air"}`))

	require.True(t, res.Success, res.Error)
	assert.Equal(t, environment.DataTypeAir, env.lastType)
	assert.Contains(t, res.Payload, "Universal AQI")
}

func TestEnvironmentalDataToolDefaultsToBoth(t *testing.T) {
	env := &stubEnv{data: &environment.Data{}}
	r := newTestRegistry(t, Dependencies{Places: &stubFinder{}, Environment: env, Land: &stubAnalyzer{kind: "land"}, Business: &stubAnalyzer{kind: "business"}})

	res := r.Dispatch(context.Background(),
		call("get_environmental_data", `{"latitude":23.81,"longitude":90.41}`))

	require.True(t, res.Success, res.Error)
	assert.Equal(t, environment.DataTypeBoth, env.lastType)
}

func TestToolErrorsSurfaceAsFailedResults(t *testing.T) {
	finder := &stubFinder{err: errors.New("places quota exceeded")}
	r := newTestRegistry(t, Dependencies{Places: finder, Environment: &stubEnv{}, Land: &stubAnalyzer{kind: "land"}, Business: &stubAnalyzer{kind: "business"}})

	res := r.Dispatch(context.Background(),
		call("find_places", `{"latitude":1,"longitude":1,"place_type":"park"}`))

	assert.False(t, res.Success)
	assert.Equal(t, "Error: places quota exceeded", res.Content())
}
