// Package core provides shared domain types and errors for the AgriPulse backend.
package core

// CurrentConditions holds the live weather observation for a location.
type CurrentConditions struct {
	TempC     float64 `json:"temp_c"`
	Condition string  `json:"condition"`
	Icon      string  `json:"icon,omitempty"`
	Humidity  int     `json:"humidity"`
	WindKph   float64 `json:"wind_kph,omitempty"`
	PrecipMM  float64 `json:"precip_mm"`
}

// Astro holds sunrise/sunset times for the first forecast day.
type Astro struct {
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
}

// ForecastDay is one day of the weather forecast.
type ForecastDay struct {
	Date          string  `json:"date"`
	AvgTempC      float64 `json:"avgtemp_c"`
	TotalPrecipMM float64 `json:"totalprecip_mm"`
	AvgHumidity   float64 `json:"avghumidity"`
	Condition     string  `json:"condition"`
	Icon          string  `json:"icon,omitempty"`
	ChanceOfRain  int     `json:"daily_chance_of_rain,omitempty"`
}

// Weather is the simplified weather payload assembled from the upstream API.
type Weather struct {
	Location string            `json:"location"`
	Country  string            `json:"country"`
	Current  CurrentConditions `json:"current"`
	Astro    Astro             `json:"astro"`
	Forecast []ForecastDay     `json:"forecast"`
}

// MarketRecord is one normalized mandi price row.
// Prices are in Rs/Quintal unless Unit says otherwise.
type MarketRecord struct {
	State       string  `json:"state,omitempty"`
	District    string  `json:"district,omitempty"`
	Market      string  `json:"market"`
	Commodity   string  `json:"commodity"`
	Variety     string  `json:"variety,omitempty"`
	ArrivalDate string  `json:"arrival_date,omitempty"`
	MinPrice    float64 `json:"min_price,omitempty"`
	MaxPrice    float64 `json:"max_price,omitempty"`
	ModalPrice  float64 `json:"modal_price"`
	Unit        string  `json:"unit,omitempty"`
}

// MarketSummary aggregates modal prices across the records of one commodity.
type MarketSummary struct {
	Commodity    string  `json:"commodity"`
	AveragePrice float64 `json:"average_price"`
	HighestPrice float64 `json:"highest_price"`
	LowestPrice  float64 `json:"lowest_price"`
}

// NewsItem is a curated agriculture news headline.
type NewsItem struct {
	Headline  string `json:"headline"`
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
}

// CropInsight is one AI-generated plant/sell recommendation.
type CropInsight struct {
	Crop               string   `json:"crop"`
	RecommendationType string   `json:"recommendation_type,omitempty"`
	Confidence         int      `json:"confidence"`
	Reasons            []string `json:"reason"`
}

// ForecastPoint is one day of the synthetic price forecast.
type ForecastPoint struct {
	Date          string  `json:"date"`
	ForecastPrice float64 `json:"forecast_price"`
}

// Recommendation is the headline action of a structured terminal insight.
type Recommendation struct {
	Action     string `json:"action"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// YieldOutlook describes the expected yield change and its drivers.
type YieldOutlook struct {
	ChangePercent string   `json:"change_percent"`
	Factors       []string `json:"factors"`
}

// MarketSentiment summarizes the market mood for a commodity.
type MarketSentiment struct {
	Overall  string   `json:"overall"`
	Keywords []string `json:"keywords"`
}

// OptimalMarket lists markets to sell high or buy low in.
type OptimalMarket struct {
	SellHigh []string `json:"sell_high"`
	BuyLow   []string `json:"buy_low"`
}

// StructuredInsight is the AI-generated (or synthetic) analysis block of a
// terminal snapshot.
type StructuredInsight struct {
	Recommendation       Recommendation  `json:"recommendation"`
	YieldOutlook         YieldOutlook    `json:"yield_outlook"`
	PriceForecastComment string          `json:"price_forecast_comment"`
	MarketSentiment      MarketSentiment `json:"market_sentiment"`
	OptimalMarket        OptimalMarket   `json:"optimal_market"`
	AISummary            string          `json:"ai_summary"`
	Reason               string          `json:"reason"`
}

// DashboardSnapshot is the assembled payload for one dashboard location.
type DashboardSnapshot struct {
	Date           string         `json:"date"`
	Location       string         `json:"location"`
	Weather        Weather        `json:"weather"`
	MarketData     []MarketRecord `json:"market_data"`
	News           []NewsItem     `json:"news"`
	AISummary      string         `json:"ai_summary"`
	AICropInsights []CropInsight  `json:"ai_crop_insights"`
}

// TerminalSnapshot is the assembled payload for one commodity terminal.
type TerminalSnapshot struct {
	Timestamp            string          `json:"timestamp"`
	Commodity            string          `json:"commodity"`
	Location             string          `json:"location"`
	Summary              MarketSummary   `json:"summary"`
	MarketData           []MarketRecord  `json:"market_data"`
	PriceForecast        []ForecastPoint `json:"price_forecast"`
	Recommendation       Recommendation  `json:"recommendation"`
	YieldOutlook         YieldOutlook    `json:"yield_outlook"`
	PriceForecastComment string          `json:"price_forecast_comment"`
	MarketSentiment      MarketSentiment `json:"market_sentiment"`
	OptimalMarket        OptimalMarket   `json:"optimal_market"`
	AISummary            string          `json:"ai_summary"`
	AIReason             string          `json:"ai_reason"`
}

// InternationalOptions lists the commodities and ports available for
// international price comparison.
type InternationalOptions struct {
	Commodities []string `json:"commodities"`
	Ports       []string `json:"ports"`
}

// Diagnosis is the structured result of a leaf-image disease analysis.
type Diagnosis struct {
	DetectedDisease      string `json:"detected_disease,omitempty"`
	Confidence           string `json:"confidence,omitempty"`
	Severity             string `json:"severity,omitempty"`
	RecommendedTreatment string `json:"recommended_treatment,omitempty"`
	// RawResponse carries the model output verbatim when it is not valid JSON.
	RawResponse string `json:"raw_response,omitempty"`
	Filename    string `json:"filename,omitempty"`
}
