// Package market provides a client for the data.gov.in mandi price API and
// price statistics over the returned records.
package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"agripulse/internal/core"
	"agripulse/internal/httpclient"
)

const defaultBaseURL = "https://api.data.gov.in/resource/9ef84268-d588-465a-a308-a864a43d0070"

// Filters narrows a mandi records query. Zero fields are omitted.
type Filters struct {
	Commodity string
	Market    string
	Limit     int
}

// Client calls the data.gov.in current daily mandi price resource.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// New creates a market data client.
func New(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: httpclient.NewHTTPClient(nil),
	}
}

// NewWithBaseURL creates a market client against a custom endpoint (tests).
func NewWithBaseURL(apiKey, baseURL string) *Client {
	c := New(apiKey)
	c.baseURL = baseURL
	return c
}

// Records fetches mandi rows matching the filters and normalizes them.
// Rows whose modal price does not parse as a number are skipped.
// Returns an error when the API answers with no records at all, so callers
// can substitute fallback data.
func (c *Client) Records(ctx context.Context, f Filters) ([]core.MarketRecord, error) {
	q := url.Values{}
	q.Set("api-key", c.apiKey)
	q.Set("format", "json")
	if f.Limit <= 0 {
		f.Limit = 10
	}
	q.Set("limit", strconv.Itoa(f.Limit))
	if f.Commodity != "" {
		q.Set("filters[commodity]", capitalize(f.Commodity))
	}
	if f.Market != "" {
		q.Set("filters[market]", f.Market)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating mandi request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching mandi records: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from mandi API", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading mandi response: %w", err)
	}

	rows := gjson.GetBytes(raw, "records").Array()
	records := normalize(rows, f.Commodity)
	if len(records) == 0 {
		return nil, fmt.Errorf("no mandi records returned")
	}
	return records, nil
}

// normalize converts raw API rows into MarketRecords. The upstream feed is
// inconsistent about field names (state vs state_name) and ships prices as
// strings; decimal parsing rejects garbage rows instead of storing zeros.
func normalize(rows []gjson.Result, commodity string) []core.MarketRecord {
	records := make([]core.MarketRecord, 0, len(rows))
	for _, r := range rows {
		modal, ok := price(r.Get("modal_price"))
		if !ok {
			continue
		}

		state := r.Get("state").String()
		if state == "" {
			state = r.Get("state_name").String()
		}
		mkt := r.Get("market").String()
		if mkt == "" {
			mkt = r.Get("market_name").String()
		}
		name := r.Get("commodity").String()
		if name == "" {
			name = commodity
		}
		unit := r.Get("price_unit").String()
		if unit == "" {
			unit = "Rs/Quintal"
		}

		minP, _ := price(r.Get("min_price"))
		maxP, _ := price(r.Get("max_price"))

		records = append(records, core.MarketRecord{
			State:       state,
			District:    r.Get("district").String(),
			Market:      mkt,
			Commodity:   capitalize(name),
			Variety:     r.Get("variety").String(),
			ArrivalDate: r.Get("arrival_date").String(),
			MinPrice:    minP,
			MaxPrice:    maxP,
			ModalPrice:  modal,
			Unit:        unit,
		})
	}
	return records
}

// price parses a price field that may arrive as a string or a number.
func price(v gjson.Result) (float64, bool) {
	if !v.Exists() {
		return 0, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v.String()))
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// Summarize computes average/min/max modal prices over the records.
// Prices are averaged with decimal arithmetic and rounded to two places.
func Summarize(commodity string, records []core.MarketRecord) core.MarketSummary {
	s := core.MarketSummary{Commodity: capitalize(commodity)}

	prices := modalPrices(records)
	if len(prices) == 0 {
		s.AveragePrice = 2300
		return s
	}

	avg := decimal.Avg(prices[0], prices[1:]...).Round(2)
	s.AveragePrice, _ = avg.Float64()
	s.HighestPrice, _ = decimal.Max(prices[0], prices[1:]...).Float64()
	s.LowestPrice, _ = decimal.Min(prices[0], prices[1:]...).Float64()
	return s
}

// MedianModal returns the median modal price, or 2300 when no record has one.
func MedianModal(records []core.MarketRecord) float64 {
	prices := modalPrices(records)
	if len(prices) == 0 {
		return 2300
	}

	sorted := make([]decimal.Decimal, len(prices))
	copy(sorted, prices)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].LessThan(sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	mid := len(sorted) / 2
	var m decimal.Decimal
	if len(sorted)%2 == 1 {
		m = sorted[mid]
	} else {
		m = decimal.Avg(sorted[mid-1], sorted[mid])
	}
	f, _ := m.Round(2).Float64()
	return f
}

func modalPrices(records []core.MarketRecord) []decimal.Decimal {
	prices := make([]decimal.Decimal, 0, len(records))
	for _, r := range records {
		if r.ModalPrice > 0 {
			prices = append(prices, decimal.NewFromFloat(r.ModalPrice))
		}
	}
	return prices
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
