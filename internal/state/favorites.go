package state

import (
	"strings"

	"github.com/i474232898/weathercast/internal/weather"
)

// Favorite is a saved location, unique by ID.
type Favorite struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// FavoriteID derives the stable identifier of a place from its name and country.
func FavoriteID(name, country string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	if country != "" {
		id += "," + strings.ToLower(strings.TrimSpace(country))
	}
	return id
}

// FavoriteFromCurrent builds the favorite entry for a fetched location.
func FavoriteFromCurrent(c weather.Current) Favorite {
	return Favorite{
		ID:      FavoriteID(c.LocationName, c.CountryCode),
		Name:    c.LocationName,
		Country: c.CountryCode,
	}
}
