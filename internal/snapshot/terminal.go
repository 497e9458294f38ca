package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"

	"agripulse/internal/core"
	"agripulse/internal/fallback"
	"agripulse/internal/observability"
	"agripulse/internal/providers/market"
	"agripulse/internal/providers/weather"
)

// forecastDays is the length of the synthetic price forecast.
const forecastDays = 7

// TerminalProducer assembles the commodity terminal snapshot: normalized
// mandi rows, summary stats, weather for the terminal location, a synthetic
// price forecast around the median modal price, and a structured AI insight.
type TerminalProducer struct {
	Weather *weather.Client
	Market  *market.Client
	AI      AIClient

	// Location anchors the terminal's weather panel (default "Indore").
	Location string

	SubTimeout time.Duration
	AITimeout  time.Duration
}

// Produce implements Producer. The topic is the commodity name.
func (p *TerminalProducer) Produce(ctx context.Context, commodity string) (json.RawMessage, error) {
	records := p.fetchRecords(ctx, commodity)
	summary := market.Summarize(commodity, records)
	w := p.fetchWeather(ctx)
	forecast := PriceForecast(commodity, market.MedianModal(records), forecastDays)
	insight := p.generateInsight(ctx, commodity, summary, records, forecast, w)

	snap := core.TerminalSnapshot{
		Timestamp:            time.Now().Format("02 Jan 2006, 03:04 PM"),
		Commodity:            summary.Commodity,
		Location:             p.location(),
		Summary:              summary,
		MarketData:           records,
		PriceForecast:        forecast,
		Recommendation:       insight.Recommendation,
		YieldOutlook:         insight.YieldOutlook,
		PriceForecastComment: insight.PriceForecastComment,
		MarketSentiment:      insight.MarketSentiment,
		OptimalMarket:        insight.OptimalMarket,
		AISummary:            insight.AISummary,
		AIReason:             insight.Reason,
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshaling terminal snapshot: %w", err)
	}
	return payload, nil
}

func (p *TerminalProducer) fetchRecords(ctx context.Context, commodity string) []core.MarketRecord {
	tctx, cancel := context.WithTimeout(ctx, p.subTimeout())
	defer cancel()

	records, err := p.Market.Records(tctx, market.Filters{Commodity: commodity, Limit: 200})
	if err != nil {
		slog.Warn("mandi fetch failed, using fallback", "commodity", commodity, "error", err)
		observability.UpstreamFailure("market")
		return fallback.MarketRecords(commodity)
	}
	return records
}

func (p *TerminalProducer) fetchWeather(ctx context.Context) core.Weather {
	tctx, cancel := context.WithTimeout(ctx, p.subTimeout())
	defer cancel()

	w, err := p.Weather.Forecast(tctx, p.location(), 7)
	if err != nil {
		slog.Warn("weather fetch failed, using fallback", "location", p.location(), "error", err)
		observability.UpstreamFailure("weather")
		return fallback.Weather(p.location())
	}
	return *w
}

func (p *TerminalProducer) generateInsight(ctx context.Context, commodity string, summary core.MarketSummary, records []core.MarketRecord, forecast []core.ForecastPoint, w core.Weather) core.StructuredInsight {
	if p.AI == nil {
		return fallback.StructuredInsight()
	}

	tctx, cancel := context.WithTimeout(ctx, p.aiTimeout())
	defer cancel()

	var insight core.StructuredInsight
	prompt := terminalInsightPrompt(commodity, summary, records, forecast, w)
	if err := p.AI.GenerateJSON(tctx, prompt, &insight); err != nil || insight.Recommendation.Action == "" {
		slog.Warn("AI terminal insight failed, using fallback", "commodity", commodity, "error", err)
		observability.UpstreamFailure("ai")
		return fallback.StructuredInsight()
	}
	return insight
}

func (p *TerminalProducer) location() string {
	if p.Location != "" {
		return p.Location
	}
	return "Indore"
}

func (p *TerminalProducer) subTimeout() time.Duration {
	if p.SubTimeout > 0 {
		return p.SubTimeout
	}
	return defaultSubTimeout
}

func (p *TerminalProducer) aiTimeout() time.Duration {
	if p.AITimeout > 0 {
		return p.AITimeout
	}
	return defaultAITimeout
}

// PriceForecast projects daily prices around a baseline. Offsets are derived
// from a hash of commodity+date, so repeated calls on the same day produce
// identical forecasts while still wobbling within ±50.
func PriceForecast(commodity string, baseline float64, days int) []core.ForecastPoint {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	points := make([]core.ForecastPoint, 0, days)
	for i := 1; i <= days; i++ {
		date := today.AddDate(0, 0, i).Format("2006-01-02")
		points = append(points, core.ForecastPoint{
			Date:          date,
			ForecastPrice: math.Round((baseline+offset(commodity+date))*100) / 100,
		})
	}
	return points
}

// offset maps a seed string to a stable value in [-50, 50].
func offset(seed string) float64 {
	return float64(xxhash.Sum64String(seed)%10001)/100 - 50
}

// OptionsProducer serves the international trade options catalog. The
// catalog is fixed configuration, so it is served directly without a
// cache round trip.
type OptionsProducer struct {
	Options core.InternationalOptions
}

// Produce implements Producer. The topic is ignored; there is one catalog.
func (p *OptionsProducer) Produce(_ context.Context, _ string) (json.RawMessage, error) {
	opts := p.Options
	if len(opts.Commodities) == 0 || len(opts.Ports) == 0 {
		opts = fallback.InternationalOptions()
	}
	payload, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("marshaling options: %w", err)
	}
	return payload, nil
}
