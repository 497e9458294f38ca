package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"agripulse/internal/core"
	"agripulse/internal/providers/market"
	"agripulse/internal/providers/weather"
)

const weatherBody = `{
	"location": {"name": "Indore", "country": "India"},
	"current": {"temp_c": 32, "humidity": 45, "condition": {"text": "Sunny"}},
	"forecast": {"forecastday": [
		{"date": "2026-08-30", "astro": {"sunrise": "06:07 AM", "sunset": "06:47 PM"},
		 "day": {"avgtemp_c": 30, "condition": {"text": "Sunny"}}}
	]}
}`

const mandiBody = `{"records": [
	{"state": "Madhya Pradesh", "district": "Indore", "market": "Indore",
	 "commodity": "Wheat", "modal_price": "2350", "min_price": "2200", "max_price": "2500"},
	{"state": "Madhya Pradesh", "district": "Ujjain", "market": "Ujjain",
	 "commodity": "Wheat", "modal_price": "2410", "min_price": "2300", "max_price": "2550"}
]}`

func okServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func failingServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
}

// fakeAI implements AIClient with canned outputs.
type fakeAI struct {
	text    string
	jsonDoc string
	err     error
	calls   int
}

func (f *fakeAI) Generate(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeAI) GenerateJSON(_ context.Context, _ string, v any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.jsonDoc), v)
}

func TestDashboardProducer(t *testing.T) {
	t.Run("AllUpstreamsHealthy", func(t *testing.T) {
		ws := okServer(weatherBody)
		defer ws.Close()
		ms := okServer(mandiBody)
		defer ms.Close()

		ai := &fakeAI{
			text:    "Good week for wheat.",
			jsonDoc: `[{"crop": "Wheat", "confidence": 85, "reason": ["strong prices"]}]`,
		}
		p := &DashboardProducer{
			Weather: weather.NewWithBaseURL("k", ws.URL),
			Market:  market.NewWithBaseURL("k", ms.URL),
			AI:      ai,
		}

		payload, err := p.Produce(context.Background(), "Indore")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var snap core.DashboardSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatalf("payload not a dashboard snapshot: %v", err)
		}
		if snap.Location != "Indore" {
			t.Errorf("unexpected location %q", snap.Location)
		}
		if snap.Weather.Current.TempC != 32 {
			t.Errorf("expected live weather, got %+v", snap.Weather.Current)
		}
		if len(snap.MarketData) != 2 {
			t.Errorf("expected 2 live mandi rows, got %d", len(snap.MarketData))
		}
		if snap.AISummary != "Good week for wheat." {
			t.Errorf("unexpected summary %q", snap.AISummary)
		}
		if len(snap.AICropInsights) != 1 || snap.AICropInsights[0].Crop != "Wheat" {
			t.Errorf("unexpected insights %+v", snap.AICropInsights)
		}
		if len(snap.News) == 0 {
			t.Error("expected curated news items")
		}
	})

	t.Run("WeatherDownMarketUp", func(t *testing.T) {
		ws := failingServer()
		defer ws.Close()
		ms := okServer(mandiBody)
		defer ms.Close()

		p := &DashboardProducer{
			Weather: weather.NewWithBaseURL("k", ws.URL),
			Market:  market.NewWithBaseURL("k", ms.URL),
		}

		payload, err := p.Produce(context.Background(), "Indore")
		if err != nil {
			t.Fatalf("a failed sub-call must not fail the produce: %v", err)
		}

		var snap core.DashboardSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatal(err)
		}
		// Synthetic weather, live market
		if snap.Weather.Current.Condition != "Clear" {
			t.Errorf("expected fallback weather, got %+v", snap.Weather.Current)
		}
		if len(snap.MarketData) != 2 {
			t.Errorf("expected live mandi rows alongside fallback weather, got %d", len(snap.MarketData))
		}
	})

	t.Run("EverythingDownStillProduces", func(t *testing.T) {
		ws := failingServer()
		defer ws.Close()
		ms := failingServer()
		defer ms.Close()

		p := &DashboardProducer{
			Weather: weather.NewWithBaseURL("k", ws.URL),
			Market:  market.NewWithBaseURL("k", ms.URL),
			AI:      &fakeAI{err: fmt.Errorf("quota exhausted")},
		}

		payload, err := p.Produce(context.Background(), "Indore")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var snap core.DashboardSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatal(err)
		}
		if snap.AISummary == "" {
			t.Error("expected fallback summary")
		}
		if len(snap.AICropInsights) == 0 {
			t.Error("expected fallback crop insights")
		}
		if len(snap.MarketData) == 0 {
			t.Error("expected fallback market data")
		}
	})

	t.Run("NilAIUsesFallback", func(t *testing.T) {
		ws := okServer(weatherBody)
		defer ws.Close()
		ms := okServer(mandiBody)
		defer ms.Close()

		p := &DashboardProducer{
			Weather: weather.NewWithBaseURL("k", ws.URL),
			Market:  market.NewWithBaseURL("k", ms.URL),
		}

		payload, err := p.Produce(context.Background(), "Indore")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var snap core.DashboardSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatal(err)
		}
		if snap.AISummary == "" || len(snap.AICropInsights) == 0 {
			t.Error("expected fallback AI fields when no client is configured")
		}
	})
}

func TestTerminalProducer(t *testing.T) {
	t.Run("AssemblesSnapshot", func(t *testing.T) {
		ws := okServer(weatherBody)
		defer ws.Close()
		ms := okServer(mandiBody)
		defer ms.Close()

		ai := &fakeAI{jsonDoc: `{
			"recommendation": {"action": "SELL", "confidence": 82, "reason": "prices peaking"},
			"yield_outlook": {"change_percent": "+2.1%", "factors": ["good rain"]},
			"price_forecast_comment": "Upward drift expected.",
			"market_sentiment": {"overall": "bullish", "keywords": ["export demand"]},
			"optimal_market": {"sell_high": ["Ujjain"], "buy_low": ["Indore"]},
			"ai_summary": "Sell into strength.",
			"reason": "High modal prices."
		}`}

		p := &TerminalProducer{
			Weather: weather.NewWithBaseURL("k", ws.URL),
			Market:  market.NewWithBaseURL("k", ms.URL),
			AI:      ai,
		}

		payload, err := p.Produce(context.Background(), "wheat")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var snap core.TerminalSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatal(err)
		}
		if snap.Commodity != "Wheat" {
			t.Errorf("expected capitalized commodity, got %q", snap.Commodity)
		}
		if snap.Location != "Indore" {
			t.Errorf("expected default location, got %q", snap.Location)
		}
		if snap.Summary.AveragePrice != 2380 {
			t.Errorf("expected average 2380, got %v", snap.Summary.AveragePrice)
		}
		if len(snap.PriceForecast) != forecastDays {
			t.Errorf("expected %d forecast points, got %d", forecastDays, len(snap.PriceForecast))
		}
		if snap.Recommendation.Action != "SELL" {
			t.Errorf("expected SELL, got %q", snap.Recommendation.Action)
		}
		if snap.MarketSentiment.Overall != "bullish" {
			t.Errorf("unexpected sentiment %+v", snap.MarketSentiment)
		}
	})

	t.Run("EmptyRecommendationFallsBack", func(t *testing.T) {
		ws := okServer(weatherBody)
		defer ws.Close()
		ms := okServer(mandiBody)
		defer ms.Close()

		// Valid JSON but no action: treated as a failed insight
		p := &TerminalProducer{
			Weather: weather.NewWithBaseURL("k", ws.URL),
			Market:  market.NewWithBaseURL("k", ms.URL),
			AI:      &fakeAI{jsonDoc: `{"ai_summary": "hmm"}`},
		}

		payload, err := p.Produce(context.Background(), "wheat")
		if err != nil {
			t.Fatal(err)
		}
		var snap core.TerminalSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatal(err)
		}
		if snap.Recommendation.Action != "HOLD" {
			t.Errorf("expected fallback HOLD, got %q", snap.Recommendation.Action)
		}
	})

	t.Run("MarketDownUsesFallbackRows", func(t *testing.T) {
		ws := okServer(weatherBody)
		defer ws.Close()
		ms := failingServer()
		defer ms.Close()

		p := &TerminalProducer{
			Weather: weather.NewWithBaseURL("k", ws.URL),
			Market:  market.NewWithBaseURL("k", ms.URL),
		}

		payload, err := p.Produce(context.Background(), "soybean")
		if err != nil {
			t.Fatal(err)
		}
		var snap core.TerminalSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatal(err)
		}
		if len(snap.MarketData) != 2 {
			t.Fatalf("expected 2 fallback rows, got %d", len(snap.MarketData))
		}
		if snap.MarketData[0].Commodity != "Soybean" {
			t.Errorf("unexpected fallback commodity %q", snap.MarketData[0].Commodity)
		}
	})
}

func TestPriceForecast(t *testing.T) {
	a := PriceForecast("wheat", 2350, 7)
	b := PriceForecast("wheat", 2350, 7)

	if len(a) != 7 {
		t.Fatalf("expected 7 points, got %d", len(a))
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("forecast must be deterministic for the same commodity and day")
	}

	for _, pt := range a {
		if pt.ForecastPrice < 2300 || pt.ForecastPrice > 2400 {
			t.Errorf("point %s outside baseline±50: %v", pt.Date, pt.ForecastPrice)
		}
	}

	// Different commodities wobble differently
	c := PriceForecast("maize", 2350, 7)
	if reflect.DeepEqual(a, c) {
		t.Error("different commodities should not share the same offsets")
	}
}

func TestOptionsProducer(t *testing.T) {
	p := &OptionsProducer{Options: core.InternationalOptions{
		Commodities: []string{"Wheat"},
		Ports:       []string{"Kandla"},
	}}

	payload, err := p.Produce(context.Background(), "ignored")
	if err != nil {
		t.Fatal(err)
	}
	var opts core.InternationalOptions
	if err := json.Unmarshal(payload, &opts); err != nil {
		t.Fatal(err)
	}
	if len(opts.Commodities) != 1 || opts.Commodities[0] != "Wheat" {
		t.Errorf("unexpected catalog %+v", opts)
	}

	// Empty catalog falls back to the default lists
	empty := &OptionsProducer{}
	payload, err = empty.Produce(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(payload, &opts); err != nil {
		t.Fatal(err)
	}
	if len(opts.Commodities) == 0 || len(opts.Ports) == 0 {
		t.Errorf("expected fallback catalog, got %+v", opts)
	}
}
