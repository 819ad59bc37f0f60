package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/reelfeed/engine/internal/models"
)

var (
	// ErrNotFound indicates the coordinates resolve to no known address.
	ErrNotFound = errors.New("location not found")
)

const userAgent = "reelfeed-engine/1.0"

// Client resolves between coordinates and addresses against a
// Nominatim-compatible endpoint. Public instances enforce a strict request
// rate, so every call passes through a shared limiter.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient constructs a geocoding client. rps bounds outgoing requests per
// second; values <= 0 fall back to the public-instance limit of 1.
func NewClient(baseURL string, rps float64) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Reverse resolves coordinates to a human-readable address.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (models.Geotag, error) {
	query := url.Values{
		"format": {"jsonv2"},
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
	}

	var place nominatimPlace
	if err := c.get(ctx, "/reverse", query, &place); err != nil {
		return models.Geotag{}, err
	}
	if place.DisplayName == "" {
		return models.Geotag{}, ErrNotFound
	}

	return models.Geotag{Address: place.DisplayName, Latitude: lat, Longitude: lon}, nil
}

// Forward resolves a free-text address to candidate locations. Zero matches
// return an empty slice, not an error.
func (c *Client) Forward(ctx context.Context, address string) ([]models.Geotag, error) {
	query := url.Values{
		"format": {"jsonv2"},
		"q":      {address},
		"limit":  {"5"},
	}

	var places []nominatimPlace
	if err := c.get(ctx, "/search", query, &places); err != nil {
		return nil, err
	}

	tags := make([]models.Geotag, 0, len(places))
	for _, place := range places {
		lat, latErr := strconv.ParseFloat(place.Lat, 64)
		lon, lonErr := strconv.ParseFloat(place.Lon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		tags = append(tags, models.Geotag{Address: place.DisplayName, Latitude: lat, Longitude: lon})
	}
	return tags, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocode request: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode geocode response: %w", err)
	}
	return nil
}
