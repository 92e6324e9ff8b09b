package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPGeocoder calls a Nominatim-compatible reverse geocoding endpoint.
type HTTPGeocoder struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

func NewHTTPGeocoder(baseURL string) *HTTPGeocoder {
	return &HTTPGeocoder{
		BaseURL:   baseURL,
		UserAgent: "nearbuy/1.0",
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		State         string `json:"state"`
	} `json:"address"`
}

func (g *HTTPGeocoder) Reverse(ctx context.Context, p Point) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(p.Lng, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", g.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder returned %s", resp.Status)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode geocoder response: %w", err)
	}
	return body.label(), nil
}

func (r nominatimResponse) label() string {
	a := r.Address
	local := firstNonEmpty(a.Suburb, a.Neighbourhood)
	city := firstNonEmpty(a.City, a.Town, a.Village, a.State)
	switch {
	case local != "" && city != "":
		return local + ", " + city
	case city != "":
		return city
	case local != "":
		return local
	}
	// display_name is long; keep the first two components
	parts := strings.Split(r.DisplayName, ",")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Trim(strings.Join(parts, ", "), ", ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
