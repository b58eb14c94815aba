package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/locas/locas-backend/internal/location"
)

const (
	defaultNearbyURL  = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

	// DefaultRadiusMeters is used when a search carries no radius.
	DefaultRadiusMeters = 1500

	defaultLanguage = "en"
	requestTimeout  = 10 * time.Second
)

// amenityTypes maps friendly category labels onto Google place types.
// Unknown labels are passed through unchanged.
var amenityTypes = map[string]string{
	"police":         "police",
	"schools":        "school",
	"hospitals":      "hospital",
	"transportation": "transit_station",
	"shopping":       "shopping_mall",
	"parks":          "park",
	"restaurants":    "restaurant",
	"banks":          "bank",
	"hotels":         "lodging",
	"gas_stations":   "gas_station",
	"atms":           "atm",
	"government":     "local_government_office",
	"grocery":        "grocery_or_supermarket",
	"cafes":          "cafe",
	"pharmacies":     "pharmacy",
	"water_bodies":   "natural_feature",
}

// SearchRequest describes one nearby-search call.
type SearchRequest struct {
	Latitude     float64
	Longitude    float64
	Category     string
	RadiusMeters int
	Keyword      string
}

// Place is a single point of interest.
type Place struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Rating  float64  `json:"rating,omitempty"`
	Types   []string `json:"types,omitempty"`
}

// Results holds the places found for one search term.
type Results struct {
	Places     []Place `json:"places"`
	TotalFound int     `json:"total_found"`
	SearchTerm string  `json:"search_term"`
}

// Client talks to the Google Places and Geocoding APIs.
type Client struct {
	apiKey     string
	httpClient *http.Client
	nearbyURL  string
	geocodeURL string
	log        *logrus.Logger
}

// NewClient creates a places client with an explicit request timeout.
func NewClient(apiKey string, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		nearbyURL:  defaultNearbyURL,
		geocodeURL: defaultGeocodeURL,
		log:        log,
	}
}

type nearbyResponse struct {
	Results []struct {
		Name     string   `json:"name"`
		Vicinity string   `json:"vicinity"`
		Rating   float64  `json:"rating"`
		Types    []string `json:"types"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// FindPlaces runs a nearby search for one category. An empty result set
// is returned as a zero-count Results, not an error.
func (c *Client) FindPlaces(ctx context.Context, req SearchRequest) (*Results, error) {
	radius := req.RadiusMeters
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}

	placeType := req.Category
	if mapped, ok := amenityTypes[req.Category]; ok {
		placeType = mapped
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%g,%g", req.Latitude, req.Longitude))
	params.Set("radius", strconv.Itoa(radius))
	params.Set("key", c.apiKey)
	params.Set("language", defaultLanguage)
	params.Set("type", placeType)
	if req.Keyword != "" {
		params.Set("keyword", req.Keyword)
	}

	var body nearbyResponse
	if err := c.getJSON(ctx, c.nearbyURL, params, &body); err != nil {
		return nil, fmt.Errorf("nearby search for %q: %w", req.Category, err)
	}

	if body.Status != "OK" && body.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("nearby search for %q: %s (%s)", req.Category, body.Status, body.ErrorMessage)
	}

	results := &Results{SearchTerm: req.Category}
	for _, r := range body.Results {
		address := r.Vicinity
		if address == "" {
			address = "No address provided"
		}
		results.Places = append(results.Places, Place{
			Name:    r.Name,
			Address: address,
			Rating:  r.Rating,
			Types:   r.Types,
		})
	}
	results.TotalFound = len(results.Places)

	return results, nil
}

type geocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// Geocode resolves an address or place name to coordinates.
func (c *Client) Geocode(ctx context.Context, query string) (location.Coordinates, error) {
	params := url.Values{}
	params.Set("address", query)
	params.Set("key", c.apiKey)

	var body geocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL, params, &body); err != nil {
		return location.Coordinates{}, fmt.Errorf("geocode %q: %w", query, err)
	}

	if body.Status != "OK" || len(body.Results) == 0 {
		return location.Coordinates{}, fmt.Errorf("geocode %q: no results (%s)", query, body.Status)
	}

	loc := body.Results[0].Geometry.Location
	return location.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
