package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"agripulse/internal/core"
	"agripulse/internal/fallback"
	"agripulse/internal/observability"
	"agripulse/internal/providers/market"
	"agripulse/internal/providers/weather"
)

// staticNews is the curated headline set shown on every dashboard.
var staticNews = []core.NewsItem{
	{
		Headline:  "Govt raises MSP for wheat by ₹150/quintal",
		Summary:   "Government increases wheat MSP to boost Rabi season earnings.",
		Sentiment: "positive",
	},
	{
		Headline:  "Rainfall expected in Northern India this weekend",
		Summary:   "IMD predicts moderate rain, farmers advised to delay sowing by 2 days.",
		Sentiment: "neutral",
	},
	{
		Headline:  "Soybean exports rise 8% amid global demand",
		Summary:   "Soybean prices surge as exports grow globally.",
		Sentiment: "positive",
	},
}

// AIClient is the slice of the insight client the producers need.
type AIClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string, v any) error
}

// DashboardProducer assembles the dashboard snapshot for a location:
// live weather and mandi prices fetched concurrently, then an AI weekly
// summary and multi-crop insights generated concurrently from that data.
type DashboardProducer struct {
	Weather *weather.Client
	Market  *market.Client
	AI      AIClient

	// SubTimeout bounds each data sub-call; AITimeout bounds each AI call.
	// Zero values use the package defaults.
	SubTimeout time.Duration
	AITimeout  time.Duration
}

// Produce implements Producer. The topic is the dashboard location.
func (p *DashboardProducer) Produce(ctx context.Context, location string) (json.RawMessage, error) {
	var (
		w    core.Weather
		recs []core.MarketRecord
	)

	// Weather and mandi data are independent; fetch both and wait for the
	// slower one. Failures are absorbed per sub-call, so the group never
	// cancels its siblings.
	var g errgroup.Group
	g.Go(func() error {
		w = p.fetchWeather(ctx, location)
		return nil
	})
	g.Go(func() error {
		recs = p.fetchMarket(ctx, location)
		return nil
	})
	_ = g.Wait()

	news := staticNews

	var (
		summary  string
		insights []core.CropInsight
	)
	var ai errgroup.Group
	ai.Go(func() error {
		summary = p.generateSummary(ctx, location, w, recs, news)
		return nil
	})
	ai.Go(func() error {
		insights = p.generateCropInsights(ctx, location, w, recs)
		return nil
	})
	_ = ai.Wait()

	snap := core.DashboardSnapshot{
		Date:           time.Now().Format("02 Jan 2006"),
		Location:       location,
		Weather:        w,
		MarketData:     recs,
		News:           news,
		AISummary:      summary,
		AICropInsights: insights,
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshaling dashboard snapshot: %w", err)
	}
	return payload, nil
}

func (p *DashboardProducer) fetchWeather(ctx context.Context, location string) core.Weather {
	tctx, cancel := context.WithTimeout(ctx, p.subTimeout())
	defer cancel()

	w, err := p.Weather.Forecast(tctx, location, 7)
	if err != nil {
		slog.Warn("weather fetch failed, using fallback", "location", location, "error", err)
		observability.UpstreamFailure("weather")
		return fallback.Weather(location)
	}
	return *w
}

func (p *DashboardProducer) fetchMarket(ctx context.Context, location string) []core.MarketRecord {
	tctx, cancel := context.WithTimeout(ctx, p.subTimeout())
	defer cancel()

	recs, err := p.Market.Records(tctx, market.Filters{Market: location, Limit: 10})
	if err != nil {
		slog.Warn("mandi fetch failed, using fallback", "location", location, "error", err)
		observability.UpstreamFailure("market")
		return fallback.DashboardMarket(location)
	}
	return recs
}

func (p *DashboardProducer) generateSummary(ctx context.Context, location string, w core.Weather, recs []core.MarketRecord, news []core.NewsItem) string {
	if p.AI == nil {
		return fallback.Summary()
	}

	tctx, cancel := context.WithTimeout(ctx, p.aiTimeout())
	defer cancel()

	text, err := p.AI.Generate(tctx, summaryPrompt(location, w, recs, news))
	if err != nil {
		slog.Warn("AI summary failed, using fallback", "location", location, "error", err)
		observability.UpstreamFailure("ai")
		return fallback.Summary()
	}
	return text
}

func (p *DashboardProducer) generateCropInsights(ctx context.Context, location string, w core.Weather, recs []core.MarketRecord) []core.CropInsight {
	if p.AI == nil {
		return fallback.CropInsights()
	}

	tctx, cancel := context.WithTimeout(ctx, p.aiTimeout())
	defer cancel()

	var insights []core.CropInsight
	if err := p.AI.GenerateJSON(tctx, cropInsightsPrompt(location, w, recs), &insights); err != nil || len(insights) == 0 {
		slog.Warn("AI crop insights failed, using fallback", "location", location, "error", err)
		observability.UpstreamFailure("ai")
		return fallback.CropInsights()
	}
	return insights
}

func (p *DashboardProducer) subTimeout() time.Duration {
	if p.SubTimeout > 0 {
		return p.SubTimeout
	}
	return defaultSubTimeout
}

func (p *DashboardProducer) aiTimeout() time.Duration {
	if p.AITimeout > 0 {
		return p.AITimeout
	}
	return defaultAITimeout
}
