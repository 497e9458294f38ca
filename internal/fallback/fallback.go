// Package fallback provides deterministic synthetic substitutes for each
// upstream data source. Producers reach for these when a live call fails so
// a single broken provider never blanks out a snapshot.
package fallback

import (
	"strings"
	"time"

	"agripulse/internal/core"
)

// Weather returns a synthetic clear-sky observation for the location.
func Weather(location string) core.Weather {
	return core.Weather{
		Location: location,
		Country:  "India",
		Current: core.CurrentConditions{
			TempC:     30,
			Condition: "Clear",
			Humidity:  60,
		},
		Astro: core.Astro{
			Sunrise: "06:30 AM",
			Sunset:  "05:45 PM",
		},
		Forecast: []core.ForecastDay{},
	}
}

// DashboardMarket returns representative modal prices for the staple
// commodities shown on the dashboard.
func DashboardMarket(market string) []core.MarketRecord {
	return []core.MarketRecord{
		{Commodity: "Wheat", Market: market, ModalPrice: 2300},
		{Commodity: "Soybean", Market: market, ModalPrice: 5200},
		{Commodity: "Maize", Market: market, ModalPrice: 1850},
	}
}

// MarketRecords returns two synthetic mandi rows for a commodity, dated today.
func MarketRecords(commodity string) []core.MarketRecord {
	if commodity != "" {
		commodity = strings.ToUpper(commodity[:1]) + strings.ToLower(commodity[1:])
	}
	today := time.Now().Format("2006-01-02")
	return []core.MarketRecord{
		{
			State:       "Madhya Pradesh",
			District:    "Indore",
			Market:      "Indore",
			Commodity:   commodity,
			Variety:     "Common",
			ArrivalDate: today,
			MinPrice:    2200,
			MaxPrice:    2450,
			ModalPrice:  2350,
			Unit:        "Rs/Quintal",
		},
		{
			State:       "Maharashtra",
			District:    "Nagpur",
			Market:      "Nagpur",
			Commodity:   commodity,
			Variety:     "Common",
			ArrivalDate: today,
			MinPrice:    2250,
			MaxPrice:    2480,
			ModalPrice:  2380,
			Unit:        "Rs/Quintal",
		},
	}
}

// Summary returns the canned weekly advisory used when the AI call fails.
func Summary() string {
	return "Stable weather and moderate market trends this week. Monitor rainfall and wheat prices."
}

// CropInsights returns canned multi-crop recommendations.
func CropInsights() []core.CropInsight {
	return []core.CropInsight{
		{Crop: "Wheat", Confidence: 80, Reasons: []string{"Favorable conditions"}},
		{Crop: "Maize", Confidence: 75, Reasons: []string{"Moderate temperatures"}},
		{Crop: "Soybean", Confidence: 70, Reasons: []string{"Stable market rates"}},
	}
}

// StructuredInsight returns the neutral HOLD analysis used when the AI
// terminal insight fails.
func StructuredInsight() core.StructuredInsight {
	return core.StructuredInsight{
		Recommendation: core.Recommendation{
			Action:     "HOLD",
			Confidence: 75,
			Reason:     "Market stable, minor price movement expected.",
		},
		YieldOutlook: core.YieldOutlook{
			ChangePercent: "+0.0%",
			Factors:       []string{"stable weather"},
		},
		PriceForecastComment: "Prices likely steady for next week.",
		MarketSentiment: core.MarketSentiment{
			Overall:  "neutral",
			Keywords: []string{"steady", "stable"},
		},
		OptimalMarket: core.OptimalMarket{
			SellHigh: []string{},
			BuyLow:   []string{},
		},
		AISummary: "Market remains stable with no major risk detected.",
		Reason:    "Stable prices and normal conditions.",
	}
}

// InternationalOptions returns the minimal commodities/ports catalog used
// when no configured catalog is available.
func InternationalOptions() core.InternationalOptions {
	return core.InternationalOptions{
		Commodities: []string{"Wheat", "Rice", "Maize", "Soybean"},
		Ports:       []string{"Mumbai Port", "Kandla", "Chennai", "Novorossiysk"},
	}
}
