package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/forecast-narrative-service/internal/config"
	"github.com/couchcryptid/forecast-narrative-service/internal/domain"
	"github.com/couchcryptid/forecast-narrative-service/internal/observability"
)

const (
	currentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m"
	hourlyFields  = "temperature_2m,apparent_temperature,precipitation_probability,precipitation,weather_code,wind_speed_10m"
	dailyFields   = "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max,precipitation_sum,wind_speed_10m_max,uv_index_max"

	searchCount = 10
)

// Client implements domain.ForecastFetcher and domain.PlaceSearcher using
// the Open-Meteo forecast and geocoding APIs.
type Client struct {
	httpClient   *http.Client
	forecastURL  string
	geocodingURL string
	timezone     string
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates an Open-Meteo client.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.OpenMeteoTimeout,
		},
		forecastURL:  cfg.ForecastURL,
		geocodingURL: cfg.GeocodingURL,
		timezone:     cfg.Timezone.String(),
		metrics:      metrics,
		logger:       logger,
	}
}

// FetchForecast requests the current, hourly and daily sections for a
// coordinate, with local timestamps in the configured timezone. A response
// missing a section is returned as-is; the narrative engine reports it as
// having no data.
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64) (domain.Payload, error) {
	params := url.Values{
		"latitude":  {formatCoord(lat)},
		"longitude": {formatCoord(lon)},
		"timezone":  {c.timezone},
		"current":   {currentFields},
		"hourly":    {hourlyFields},
		"daily":     {dailyFields},
	}

	start := time.Now()
	var payload domain.Payload
	err := c.getJSON(ctx, c.forecastURL+"?"+params.Encode(), &payload)
	c.metrics.ForecastAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return domain.Payload{}, fmt.Errorf("forecast request: %w", err)
	}

	c.metrics.ForecastRequests.WithLabelValues("success").Inc()
	c.logger.Debug("forecast fetched", "lat", lat, "lon", lon,
		"current", payload.Current != nil, "hourly", payload.Hourly != nil, "daily", payload.Daily != nil)
	return payload, nil
}

// SearchPlaces looks up Belgian places by name. Results without a name or
// with non-finite coordinates are dropped.
func (c *Client) SearchPlaces(ctx context.Context, query, lang string) ([]domain.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	params := url.Values{
		"name":         {query},
		"count":        {strconv.Itoa(searchCount)},
		"language":     {lang},
		"format":       {"json"},
		"country_code": {"BE"},
	}

	start := time.Now()
	var resp searchResponse
	err := c.getJSON(ctx, c.geocodingURL+"?"+params.Encode(), &resp)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("place search: %w", err)
	}

	places := make([]domain.Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		if p, ok := r.place(); ok {
			places = append(places, p)
		}
	}

	outcome := "success"
	if len(places) == 0 {
		outcome = "empty"
	}
	c.metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
	return places, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// Open-Meteo geocoding response types.

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Admin1    string   `json:"admin1"`
	Postcodes []string `json:"postcodes"`
}

func (r searchResult) place() (domain.Place, bool) {
	name := strings.TrimSpace(r.Name)
	if name == "" || r.Latitude == nil || r.Longitude == nil {
		return domain.Place{}, false
	}
	lat, lon := *r.Latitude, *r.Longitude
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return domain.Place{}, false
	}

	label := name
	var postcode string
	if len(r.Postcodes) > 0 {
		postcode = r.Postcodes[0]
		label = postcode + " " + name
	}
	return domain.Place{
		ID:       "om-" + strconv.FormatInt(r.ID, 10),
		Names:    domain.SameName(label),
		Lat:      lat,
		Lon:      lon,
		Admin1:   r.Admin1,
		Postcode: postcode,
	}, true
}
