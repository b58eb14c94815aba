package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", nil)
	c.nearbyURL = srv.URL
	c.geocodeURL = srv.URL
	return c
}

func TestFindPlacesMapsAmenityType(t *testing.T) {
	var gotType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.URL.Query().Get("type")
		w.Write([]byte(`{"status":"OK","results":[{"name":"Dhaka Medical","vicinity":"Secretariat Rd","rating":4.1,"types":["hospital"]}]}`))
	})

	results, err := c.FindPlaces(context.Background(), SearchRequest{
		Latitude:  23.8103,
		Longitude: 90.4125,
		Category:  "hospitals",
	})
	require.NoError(t, err)
	assert.Equal(t, "hospital", gotType)
	assert.Equal(t, "hospitals", results.SearchTerm)
	require.Equal(t, 1, results.TotalFound)
	assert.Equal(t, "Dhaka Medical", results.Places[0].Name)
	assert.Equal(t, "Secretariat Rd", results.Places[0].Address)
	assert.InDelta(t, 4.1, results.Places[0].Rating, 1e-9)
}

func TestFindPlacesUnknownCategoryPassedThrough(t *testing.T) {
	var gotType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.URL.Query().Get("type")
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	_, err := c.FindPlaces(context.Background(), SearchRequest{Latitude: 1, Longitude: 1, Category: "observatory"})
	require.NoError(t, err)
	assert.Equal(t, "observatory", gotType)
}

func TestFindPlacesZeroResultsIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	results, err := c.FindPlaces(context.Background(), SearchRequest{Latitude: 1, Longitude: 1, Category: "parks"})
	require.NoError(t, err)
	assert.Equal(t, 0, results.TotalFound)
	assert.Empty(t, results.Places)
}

func TestFindPlacesDefaultsRadius(t *testing.T) {
	var gotRadius string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRadius = r.URL.Query().Get("radius")
		w.Write([]byte(`{"status":"OK","results":[]}`))
	})

	_, err := c.FindPlaces(context.Background(), SearchRequest{Latitude: 1, Longitude: 1, Category: "parks"})
	require.NoError(t, err)
	assert.Equal(t, "1500", gotRadius)
}

func TestFindPlacesKeywordForwarded(t *testing.T) {
	var gotKeyword string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKeyword = r.URL.Query().Get("keyword")
		w.Write([]byte(`{"status":"OK","results":[]}`))
	})

	_, err := c.FindPlaces(context.Background(), SearchRequest{
		Latitude: 1, Longitude: 1, Category: "cafes", Keyword: "tea",
	})
	require.NoError(t, err)
	assert.Equal(t, "tea", gotKeyword)
}

func TestFindPlacesAPIErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`))
	})

	_, err := c.FindPlaces(context.Background(), SearchRequest{Latitude: 1, Longitude: 1, Category: "parks"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestFindPlacesMissingAddressFilled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","results":[{"name":"Unnamed Park"}]}`))
	})

	results, err := c.FindPlaces(context.Background(), SearchRequest{Latitude: 1, Longitude: 1, Category: "parks"})
	require.NoError(t, err)
	require.Equal(t, 1, results.TotalFound)
	assert.Equal(t, "No address provided", results.Places[0].Address)
}

func TestGeocode(t *testing.T) {
	var gotAddress string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAddress = r.URL.Query().Get("address")
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":23.7925,"lng":90.4078}}}]}`))
	})

	coords, err := c.Geocode(context.Background(), "Gulshan 2, Dhaka")
	require.NoError(t, err)
	assert.Equal(t, "Gulshan 2, Dhaka", gotAddress)
	assert.InDelta(t, 23.7925, coords.Latitude, 1e-9)
	assert.InDelta(t, 90.4078, coords.Longitude, 1e-9)
}

func TestGeocodeNoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	_, err := c.Geocode(context.Background(), "nowhere at all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no results")
}

func TestGetJSONHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.FindPlaces(context.Background(), SearchRequest{Latitude: 1, Longitude: 1, Category: "parks"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}
