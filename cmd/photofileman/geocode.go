package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// address is the structured result of a reverse-geocoding query.
type address struct {
	ISOSubdivision string `json:"ISO3166-2-lvl4"`
	State          string `json:"state"`
	Country        string `json:"country"`
	CountryCode    string `json:"country_code"`
	Village        string `json:"village"`
	Town           string `json:"town"`
	City           string `json:"city"`
	County         string `json:"county"`
}

type nominatimResponse struct {
	Address address `json:"address"`
}

// reverseGeocoder converts coordinates into a structured address.
type reverseGeocoder interface {
	reverse(lat, lon float64) (*address, error)
}

// nominatimClient queries OpenStreetMap's Nominatim API.
type nominatimClient struct {
	baseURL string
	client  *http.Client
}

func newNominatimClient() *nominatimClient {
	return &nominatimClient{
		baseURL: "https://nominatim.openstreetmap.org",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *nominatimClient) reverse(lat, lon float64) (*address, error) {
	url := fmt.Sprintf("%s/reverse?lat=%f&lon=%f&format=json&addressdetails=1&accept-language=en",
		c.baseURL, lat, lon)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", "photofileman")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding API returned status: %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse geocoding response: %w", err)
	}

	return &result.Address, nil
}

// placeName composes a cache key from a reverse-geocoded address: the
// ISO region subdivision if present, else state and country (or country
// code), then the most specific settlement name. Spaces become
// underscores inside a component, hyphens join components.
func placeName(addr *address) string {
	var parts []string
	if addr.ISOSubdivision != "" {
		parts = append(parts, addr.ISOSubdivision)
	} else {
		if addr.State != "" {
			parts = append(parts, underscore(addr.State))
		}
		if addr.Country != "" {
			parts = append(parts, underscore(addr.Country))
		} else if addr.CountryCode != "" {
			parts = append(parts, addr.CountryCode)
		}
	}
	for _, v := range []string{addr.Village, addr.Town, addr.City, addr.County} {
		if v != "" {
			parts = append(parts, underscore(v))
			break
		}
	}
	return strings.Join(parts, "-")
}

func underscore(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}
