package snapshot

import (
	"encoding/json"
	"fmt"

	"agripulse/internal/core"
)

// summaryPrompt asks for a short farmer-facing weekly advisory grounded in
// the fetched data.
func summaryPrompt(location string, w core.Weather, recs []core.MarketRecord, news []core.NewsItem) string {
	return fmt.Sprintf(`You are AgriPulse AI, India's agriculture advisor.
Analyze real data and summarize for farmers in %s:

Weather: %s
Market: %s
News: %s

Give:
1. Weather Outlook
2. Market Trends
3. Weekly Advisory

Keep it factual, under 100 words, friendly tone.`,
		location, compact(w), compact(head(recs, 5)), compact(head(news, 3)))
}

// cropInsightsPrompt asks for strict-JSON crop recommendations.
func cropInsightsPrompt(location string, w core.Weather, recs []core.MarketRecord) string {
	return fmt.Sprintf(`You are AgriPulse AI, a data-driven crop advisor for %s.
Analyze:
- Weather: %s
- Mandi: %s

Output top 3 crops to plant or sell this week, strictly as a JSON array:
[{"crop":"Wheat","recommendation_type":"sell","confidence":85,"reason":["Good MSP","Stable yield"]}]
No markdown, no explanations.`,
		location, compact(w), compact(head(recs, 5)))
}

// terminalInsightPrompt asks for the structured terminal analysis block.
func terminalInsightPrompt(commodity string, summary core.MarketSummary, recs []core.MarketRecord, forecast []core.ForecastPoint, w core.Weather) string {
	return fmt.Sprintf(`You are AgriPulse AI, a commodity market analyst.
Commodity: %s
Summary: %s
Markets: %s
Price forecast: %s
Weather: %s

Return strict JSON with exactly these fields:
{"recommendation":{"action":"BUY|SELL|HOLD","confidence":0,"reason":""},
"yield_outlook":{"change_percent":"","factors":[]},
"price_forecast_comment":"",
"market_sentiment":{"overall":"","keywords":[]},
"optimal_market":{"sell_high":[],"buy_low":[]},
"ai_summary":"",
"reason":""}
No markdown, no explanations.`,
		commodity, compact(summary), compact(head(recs, 10)), compact(forecast), compact(w))
}

// compact renders a value as one-line JSON for prompt embedding.
func compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func head[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
