package domain

// WeatherDescriber turns a WMO weather code into a localized description.
type WeatherDescriber func(lang string, code int) string

var weatherDescriptions = map[string]map[int]string{
	"fr": {
		0: "Ciel dégagé", 1: "Principalement dégagé", 2: "Partiellement nuageux", 3: "Couvert",
		45: "Brouillard", 48: "Brouillard givrant", 51: "Bruine légère", 61: "Pluie légère",
		63: "Pluie modérée", 65: "Pluie forte", 71: "Neige légère", 80: "Averses", 95: "Orage",
	},
	"nl": {
		0: "Helder", 1: "Grotendeels helder", 2: "Gedeeltelijk bewolkt", 3: "Bewolkt",
		45: "Mist", 48: "IJzelmist", 51: "Lichte motregen", 61: "Lichte regen",
		63: "Matige regen", 65: "Zware regen", 71: "Lichte sneeuw", 80: "Buien", 95: "Onweer",
	},
	"de": {
		0: "Klar", 1: "Überwiegend klar", 2: "Teilweise bewölkt", 3: "Bewölkt",
		45: "Nebel", 48: "Gefrierender Nebel", 51: "Leichter Nieselregen", 61: "Leichter Regen",
		63: "Mäßiger Regen", 65: "Starker Regen", 71: "Leichter Schnee", 80: "Schauer", 95: "Gewitter",
	},
	"en": {
		0: "Clear sky", 1: "Mainly clear", 2: "Partly cloudy", 3: "Overcast",
		45: "Fog", 48: "Freezing fog", 51: "Light drizzle", 61: "Light rain",
		63: "Moderate rain", 65: "Heavy rain", 71: "Light snow", 80: "Showers", 95: "Thunderstorm",
	},
}

var unknownWeather = map[string]string{
	"fr": "Conditions variables",
	"nl": "Variabele omstandigheden",
	"de": "Variable Bedingungen",
	"en": "Variable conditions",
}

// DescribeWeather is the built-in WeatherDescriber. Unknown codes get a
// generic "variable conditions" text; unknown languages use English.
func DescribeWeather(lang string, code int) string {
	if desc, ok := weatherDescriptions[lang][code]; ok {
		return desc
	}
	if fallback, ok := unknownWeather[lang]; ok {
		return fallback
	}
	return unknownWeather["en"]
}
