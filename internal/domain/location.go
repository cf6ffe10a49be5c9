package domain

import (
	"context"
	"strings"
)

// Place is a named coordinate with per-language display names.
type Place struct {
	ID       string            `json:"id"`
	Names    map[string]string `json:"names"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Admin1   string            `json:"admin1,omitempty"`
	Postcode string            `json:"postcode,omitempty"`
}

// Label returns the place name in lang, then in the base language, then any
// name at all.
func (p Place) Label(lang string) string {
	if name := p.Names[lang]; name != "" {
		return name
	}
	if name := p.Names[BaseLanguage]; name != "" {
		return name
	}
	for _, l := range SupportedLanguages {
		if name := p.Names[l]; name != "" {
			return name
		}
	}
	return p.ID
}

// SameName returns a names map using label for every supported language.
func SameName(label string) map[string]string {
	names := make(map[string]string, len(SupportedLanguages))
	for _, l := range SupportedLanguages {
		names[l] = label
	}
	return names
}

// MyLocation is the label for coordinates without a known place name.
var MyLocation = map[string]string{
	"fr": "Ma position",
	"nl": "Mijn locatie",
	"de": "Mein Standort",
	"en": "My location",
}

// BelgianCities is the built-in city list.
var BelgianCities = []Place{
	{ID: "brussels", Names: map[string]string{"fr": "Bruxelles", "nl": "Brussel", "de": "Brüssel", "en": "Brussels"}, Lat: 50.8503, Lon: 4.3517},
	{ID: "antwerp", Names: map[string]string{"fr": "Anvers", "nl": "Antwerpen", "de": "Antwerpen", "en": "Antwerp"}, Lat: 51.2194, Lon: 4.4025},
	{ID: "liege", Names: map[string]string{"fr": "Liège", "nl": "Luik", "de": "Lüttich", "en": "Liège"}, Lat: 50.6326, Lon: 5.5797},
	{ID: "ghent", Names: map[string]string{"fr": "Gand", "nl": "Gent", "de": "Gent", "en": "Ghent"}, Lat: 51.0543, Lon: 3.7174},
	{ID: "charleroi", Names: map[string]string{"fr": "Charleroi", "nl": "Charleroi", "de": "Charleroi", "en": "Charleroi"}, Lat: 50.4108, Lon: 4.4446},
	{ID: "bruges", Names: map[string]string{"fr": "Bruges", "nl": "Brugge", "de": "Brügge", "en": "Bruges"}, Lat: 51.2093, Lon: 3.2247},
	{ID: "namur", Names: map[string]string{"fr": "Namur", "nl": "Namen", "de": "Namur", "en": "Namur"}, Lat: 50.4674, Lon: 4.872},
	{ID: "leuven", Names: map[string]string{"fr": "Louvain", "nl": "Leuven", "de": "Löwen", "en": "Leuven"}, Lat: 50.8798, Lon: 4.7005},
}

// FindCity matches a built-in city by ID or by any of its names,
// case-insensitively.
func FindCity(query string) (Place, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Place{}, false
	}
	for _, c := range BelgianCities {
		if strings.EqualFold(c.ID, query) {
			return c, true
		}
		for _, name := range c.Names {
			if strings.EqualFold(name, query) {
				return c, true
			}
		}
	}
	return Place{}, false
}

// PlaceSearcher resolves free-text queries to Belgian places.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query, lang string) ([]Place, error)
}
