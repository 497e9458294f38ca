// Package weather provides a client for the WeatherAPI forecast endpoint.
package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"agripulse/internal/core"
	"agripulse/internal/httpclient"
)

const defaultBaseURL = "http://api.weatherapi.com/v1"

// Client calls the WeatherAPI forecast endpoint.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// New creates a weather client.
func New(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: httpclient.NewHTTPClient(nil),
	}
}

// NewWithBaseURL creates a weather client against a custom endpoint (tests).
func NewWithBaseURL(apiKey, baseURL string) *Client {
	c := New(apiKey)
	c.baseURL = baseURL
	return c
}

// Forecast fetches current conditions plus a multi-day forecast for the
// location and reduces the upstream response to the simplified core.Weather
// shape.
func (c *Client) Forecast(ctx context.Context, location string, days int) (*core.Weather, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", location)
	q.Set("days", strconv.Itoa(days))
	q.Set("aqi", "no")
	q.Set("alerts", "no")

	reqURL := c.baseURL + "/forecast.json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from weather API", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading weather response: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("malformed weather response")
	}

	return parseForecast(raw, location), nil
}

// parseForecast plucks the fields the dashboard and terminal need out of the
// full WeatherAPI document. Missing fields become zero values; the upstream
// payload is large and mostly ignored.
func parseForecast(raw []byte, location string) *core.Weather {
	doc := gjson.ParseBytes(raw)

	name := doc.Get("location.name").String()
	if name == "" {
		name = location
	}
	country := doc.Get("location.country").String()
	if country == "" {
		country = "India"
	}

	w := &core.Weather{
		Location: name,
		Country:  country,
		Current: core.CurrentConditions{
			TempC:     doc.Get("current.temp_c").Float(),
			Condition: doc.Get("current.condition.text").String(),
			Icon:      doc.Get("current.condition.icon").String(),
			Humidity:  int(doc.Get("current.humidity").Int()),
			WindKph:   doc.Get("current.wind_kph").Float(),
			PrecipMM:  doc.Get("current.precip_mm").Float(),
		},
		Forecast: []core.ForecastDay{},
	}

	days := doc.Get("forecast.forecastday").Array()
	if len(days) > 0 {
		w.Astro = core.Astro{
			Sunrise: days[0].Get("astro.sunrise").String(),
			Sunset:  days[0].Get("astro.sunset").String(),
		}
	}
	for _, d := range days {
		w.Forecast = append(w.Forecast, core.ForecastDay{
			Date:          d.Get("date").String(),
			AvgTempC:      d.Get("day.avgtemp_c").Float(),
			TotalPrecipMM: d.Get("day.totalprecip_mm").Float(),
			AvgHumidity:   d.Get("day.avghumidity").Float(),
			Condition:     d.Get("day.condition.text").String(),
			Icon:          d.Get("day.condition.icon").String(),
			ChanceOfRain:  int(d.Get("day.daily_chance_of_rain").Int()),
		})
	}

	return w
}
