// Package geocode turns coordinates into a place name using a
// Nominatim-compatible reverse geocoding service.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Unknown is returned when the service knows no settlement for a point.
const Unknown = "Your location"

// Resolver looks up place names and caches them with a TTL.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	cache      *expirable.LRU[string, string]
}

// NewResolver creates a Resolver for baseURL, e.g.
// https://nominatim.openstreetmap.org. size bounds the number of cached
// names and ttl how long each is kept.
func NewResolver(baseURL string, size int, ttl time.Duration) *Resolver {
	if size <= 0 {
		size = 256
	}
	return &Resolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  "airwatch/1.0",
		cache:      expirable.NewLRU[string, string](size, nil, ttl),
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
	} `json:"address"`
}

// place picks the most specific settlement name.
func (r reverseResponse) place() string {
	for _, name := range []string{r.Address.City, r.Address.Town, r.Address.Village} {
		if name != "" {
			return name
		}
	}
	return Unknown
}

// cacheKey rounds to about 100m so nearby readings share an entry.
func cacheKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 3, 64) + "," + strconv.FormatFloat(lon, 'f', 3, 64)
}

// Reverse returns the settlement name at lat, lon.
func (r *Resolver) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	key := cacheKey(lat, lon)
	if name, ok := r.cache.Get(key); ok {
		return name, nil
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating reverse geocoding request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocoding %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocoding %s: unexpected status %s", key, resp.Status)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding reverse geocoding response: %w", err)
	}

	name := body.place()
	r.cache.Add(key, name)
	return name, nil
}
