package environment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/locas/locas-backend/internal/location"
)

const (
	defaultAirURL    = "https://airquality.googleapis.com/v1/currentConditions:lookup"
	defaultPollenURL = "https://pollen.googleapis.com/v1/forecast:lookup"

	forecastDays   = 3
	requestTimeout = 10 * time.Second
)

// DataType selects which environmental legs to fetch.
type DataType string

const (
	DataTypeAir    DataType = "air"
	DataTypePollen DataType = "pollen"
	DataTypeBoth   DataType = "both"
)

// AirQualityIndex is one AQI reading.
type AirQualityIndex struct {
	Name     string `json:"name"`
	Value    int    `json:"value"`
	Category string `json:"category"`
}

// AirQuality holds current air quality conditions.
type AirQuality struct {
	Indexes   []AirQualityIndex `json:"indexes"`
	Timestamp string            `json:"timestamp"`
}

// PollenType is the forecast for one pollen class.
type PollenType struct {
	Name            string   `json:"name"`
	Level           string   `json:"level"`
	InSeason        bool     `json:"in_season"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// PollenForecast holds the first forecast day's pollen readings.
type PollenForecast struct {
	Types []PollenType `json:"types"`
	Date  string       `json:"date"`
}

// Data aggregates whatever environmental legs succeeded.
type Data struct {
	AirQuality  *AirQuality          `json:"air_quality,omitempty"`
	Pollen      *PollenForecast      `json:"pollen,omitempty"`
	Coordinates location.Coordinates `json:"coordinates"`
}

// Describe renders the data as plain text for model consumption.
func (d *Data) Describe() string {
	var b strings.Builder
	if d.AirQuality != nil {
		for _, idx := range d.AirQuality.Indexes {
			fmt.Fprintf(&b, "Air quality (%s): %s (%d)\n", idx.Name, idx.Category, idx.Value)
		}
	}
	if d.Pollen != nil {
		for _, p := range d.Pollen.Types {
			fmt.Fprintf(&b, "Pollen %s: %s", p.Name, p.Level)
			if p.InSeason {
				b.WriteString(" (in season)")
			}
			b.WriteString("\n")
			for _, rec := range p.Recommendations {
				fmt.Fprintf(&b, "  - %s\n", rec)
			}
		}
	}
	if b.Len() == 0 {
		return "No environmental data available for this location."
	}
	return strings.TrimRight(b.String(), "\n")
}

// Client talks to the Google Air Quality and Pollen APIs.
type Client struct {
	apiKey     string
	httpClient *http.Client
	airURL     string
	pollenURL  string
	log        *logrus.Logger
}

// NewClient creates an environment client with an explicit request timeout.
func NewClient(apiKey string, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		airURL:     defaultAirURL,
		pollenURL:  defaultPollenURL,
		log:        log,
	}
}

// GetEnvironmentalData fetches air quality and/or pollen data. For
// DataTypeBoth each leg is best-effort; the call fails only when both
// legs fail or the single requested leg fails.
func (c *Client) GetEnvironmentalData(ctx context.Context, lat, lng float64, dataType DataType) (*Data, error) {
	coords := location.Coordinates{Latitude: lat, Longitude: lng}
	if !coords.Valid() {
		return nil, fmt.Errorf("invalid coordinates: %g, %g", lat, lng)
	}
	if dataType == "" {
		dataType = DataTypeBoth
	}

	data := &Data{Coordinates: coords}

	if dataType == DataTypeAir || dataType == DataTypeBoth {
		air, err := c.fetchAirQuality(ctx, lat, lng)
		if err != nil {
			if dataType == DataTypeAir {
				return nil, fmt.Errorf("air quality data not available: %w", err)
			}
			c.log.WithError(err).Warn("air quality lookup failed")
		} else {
			data.AirQuality = air
		}
	}

	if dataType == DataTypePollen || dataType == DataTypeBoth {
		pollen, err := c.fetchPollenForecast(ctx, lat, lng)
		if err != nil {
			if dataType == DataTypePollen {
				return nil, fmt.Errorf("pollen forecast not available: %w", err)
			}
			c.log.WithError(err).Warn("pollen forecast lookup failed")
		} else {
			data.Pollen = pollen
		}
	}

	if data.AirQuality == nil && data.Pollen == nil {
		return nil, fmt.Errorf("environmental data is not available for this location")
	}

	return data, nil
}

type airQualityResponse struct {
	DateTime string `json:"dateTime"`
	Indexes  []struct {
		DisplayName string `json:"displayName"`
		AQI         int    `json:"aqi"`
		Category    string `json:"category"`
	} `json:"indexes"`
}

func (c *Client) fetchAirQuality(ctx context.Context, lat, lng float64) (*AirQuality, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"location": map[string]float64{
			"latitude":  lat,
			"longitude": lng,
		},
	})
	if err != nil {
		return nil, err
	}

	endpoint := c.airURL + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var body airQualityResponse
	if err := c.do(req, &body); err != nil {
		return nil, err
	}

	air := &AirQuality{Timestamp: body.DateTime}
	for _, idx := range body.Indexes {
		air.Indexes = append(air.Indexes, AirQualityIndex{
			Name:     idx.DisplayName,
			Value:    idx.AQI,
			Category: idx.Category,
		})
	}
	return air, nil
}

type pollenResponse struct {
	DailyInfo []struct {
		Date struct {
			Year  int `json:"year"`
			Month int `json:"month"`
			Day   int `json:"day"`
		} `json:"date"`
		PollenTypeInfo []struct {
			DisplayName string `json:"displayName"`
			InSeason    bool   `json:"inSeason"`
			IndexInfo   struct {
				Category string `json:"category"`
			} `json:"indexInfo"`
			HealthRecommendations []string `json:"healthRecommendations"`
		} `json:"pollenTypeInfo"`
	} `json:"dailyInfo"`
}

func (c *Client) fetchPollenForecast(ctx context.Context, lat, lng float64) (*PollenForecast, error) {
	params := url.Values{}
	params.Set("location.latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("location.longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("days", strconv.Itoa(forecastDays))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pollenURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var body pollenResponse
	if err := c.do(req, &body); err != nil {
		return nil, err
	}

	forecast := &PollenForecast{}
	if len(body.DailyInfo) > 0 {
		day := body.DailyInfo[0]
		forecast.Date = fmt.Sprintf("%04d-%02d-%02d", day.Date.Year, day.Date.Month, day.Date.Day)
		for _, pt := range day.PollenTypeInfo {
			if pt.DisplayName == "" {
				continue
			}
			level := pt.IndexInfo.Category
			if level == "" {
				level = "Unknown"
			}
			forecast.Types = append(forecast.Types, PollenType{
				Name:            pt.DisplayName,
				Level:           level,
				InSeason:        pt.InSeason,
				Recommendations: pt.HealthRecommendations,
			})
		}
	}
	return forecast, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
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
