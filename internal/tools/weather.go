package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// weatherCodes maps WMO weather codes to human-readable descriptions.
var weatherCodes = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

func weatherDescription(code *int) string {
	if code == nil {
		return ""
	}
	if description, ok := weatherCodes[*code]; ok {
		return description
	}
	return "Unknown"
}

type weatherEntry struct {
	Date                     string   `json:"date"`
	TemperatureCurrent       *float64 `json:"temperature_current,omitempty"`
	TemperatureMax           *float64 `json:"temperature_max,omitempty"`
	TemperatureMin           *float64 `json:"temperature_min,omitempty"`
	PrecipitationProbability *float64 `json:"precipitation_probability,omitempty"`
	WeatherCode              *int     `json:"weather_code,omitempty"`
	WeatherDescription       string   `json:"weather_description,omitempty"`
}

type weatherResponse struct {
	Location map[string]float64 `json:"location"`
	Timezone string             `json:"timezone"`
	Forecast []weatherEntry     `json:"forecast"`
}

// weather fetches a forecast from Open-Meteo. Current conditions lead the
// forecast list under the date "now".
func (r *Runner) weather(ctx context.Context, args map[string]any) (map[string]any, error) {
	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Days      int     `json:"days"`
	}
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	if req.Days == 0 {
		req.Days = 1
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(req.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(req.Longitude, 'f', -1, 64))
	params.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,weather_code")
	params.Set("current", "temperature_2m,weather_code")
	params.Set("timezone", "auto")
	params.Set("forecast_days", strconv.Itoa(req.Days))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.forecastURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building forecast request: %w", err)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error: %d", resp.StatusCode)
	}

	var body struct {
		Timezone string `json:"timezone"`
		Current  struct {
			Temperature *float64 `json:"temperature_2m"`
			WeatherCode *int     `json:"weather_code"`
		} `json:"current"`
		Daily struct {
			Time           []string   `json:"time"`
			TemperatureMax []*float64 `json:"temperature_2m_max"`
			TemperatureMin []*float64 `json:"temperature_2m_min"`
			Precipitation  []*float64 `json:"precipitation_probability_max"`
			WeatherCode    []*int     `json:"weather_code"`
		} `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding forecast response: %w", err)
	}

	var forecast []weatherEntry
	if body.Current.Temperature != nil || body.Current.WeatherCode != nil {
		forecast = append(forecast, weatherEntry{
			Date:               "now",
			TemperatureCurrent: body.Current.Temperature,
			WeatherCode:        body.Current.WeatherCode,
			WeatherDescription: weatherDescription(body.Current.WeatherCode),
		})
	}
	for i, date := range body.Daily.Time {
		entry := weatherEntry{Date: date}
		if i < len(body.Daily.TemperatureMax) {
			entry.TemperatureMax = body.Daily.TemperatureMax[i]
		}
		if i < len(body.Daily.TemperatureMin) {
			entry.TemperatureMin = body.Daily.TemperatureMin[i]
		}
		if i < len(body.Daily.Precipitation) {
			entry.PrecipitationProbability = body.Daily.Precipitation[i]
		}
		if i < len(body.Daily.WeatherCode) {
			entry.WeatherCode = body.Daily.WeatherCode[i]
			entry.WeatherDescription = weatherDescription(entry.WeatherCode)
		}
		forecast = append(forecast, entry)
	}

	timezone := body.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	r.logger.Info().
		Float64("lat", req.Latitude).
		Float64("lon", req.Longitude).
		Int("days", req.Days).
		Msg("weather fetched")

	return toMap(weatherResponse{
		Location: map[string]float64{"latitude": req.Latitude, "longitude": req.Longitude},
		Timezone: timezone,
		Forecast: forecast,
	})
}

type geocodeResult struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1,omitempty"`
}

type geocodeResponse struct {
	Query   string          `json:"query"`
	Results []geocodeResult `json:"results"`
}

// geocodeLocation resolves a place name to coordinates via the Open-Meteo
// geocoding API.
func (r *Runner) geocodeLocation(ctx context.Context, args map[string]any) (map[string]any, error) {
	var req struct {
		Location string `json:"location"`
	}
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("name", req.Location)
	params.Set("count", "5")
	params.Set("language", "en")
	params.Set("format", "json")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.geocodeURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building geocode request: %w", err)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding API error: %d", resp.StatusCode)
	}

	var body struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Country   string  `json:"country"`
			Admin1    string  `json:"admin1"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding geocode response: %w", err)
	}

	results := make([]geocodeResult, 0, len(body.Results))
	for _, item := range body.Results {
		results = append(results, geocodeResult{
			Name:      item.Name,
			Latitude:  item.Latitude,
			Longitude: item.Longitude,
			Country:   item.Country,
			Admin1:    item.Admin1,
		})
	}

	r.logger.Info().Str("location", req.Location).Int("results", len(results)).Msg("geocoding complete")

	return toMap(geocodeResponse{Query: req.Location, Results: results})
}
