package fallback

import (
	"reflect"
	"testing"
)

func TestWeather(t *testing.T) {
	w := Weather("Indore")
	if w.Location != "Indore" {
		t.Errorf("expected Indore, got %q", w.Location)
	}
	if w.Current.TempC != 30 || w.Current.Condition != "Clear" {
		t.Errorf("unexpected synthetic conditions: %+v", w.Current)
	}
	if w.Forecast == nil {
		t.Error("forecast must be an empty slice, not nil")
	}

	// Deterministic: two calls yield identical data
	if !reflect.DeepEqual(w, Weather("Indore")) {
		t.Error("synthetic weather must be deterministic")
	}
}

func TestMarketRecords(t *testing.T) {
	recs := MarketRecords("wheat")
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Commodity != "Wheat" {
			t.Errorf("expected capitalized commodity, got %q", r.Commodity)
		}
		if r.ModalPrice < r.MinPrice || r.ModalPrice > r.MaxPrice {
			t.Errorf("modal price %v outside [%v, %v]", r.ModalPrice, r.MinPrice, r.MaxPrice)
		}
		if r.Unit != "Rs/Quintal" {
			t.Errorf("unexpected unit %q", r.Unit)
		}
	}

	if MarketRecords("SOYBEAN")[0].Commodity != "Soybean" {
		t.Error("expected mixed-case input normalized")
	}
	if got := MarketRecords(""); len(got) != 2 {
		t.Errorf("empty commodity should still yield records, got %d", len(got))
	}
}

func TestDashboardMarket(t *testing.T) {
	recs := DashboardMarket("Indore")
	if len(recs) != 3 {
		t.Fatalf("expected 3 staples, got %d", len(recs))
	}
	if recs[0].Commodity != "Wheat" || recs[0].ModalPrice != 2300 {
		t.Errorf("unexpected first staple: %+v", recs[0])
	}
}

func TestStructuredInsight(t *testing.T) {
	in := StructuredInsight()
	if in.Recommendation.Action != "HOLD" {
		t.Errorf("expected HOLD, got %q", in.Recommendation.Action)
	}
	if in.Recommendation.Confidence != 75 {
		t.Errorf("expected confidence 75, got %d", in.Recommendation.Confidence)
	}
	if in.MarketSentiment.Overall != "neutral" {
		t.Errorf("expected neutral sentiment, got %q", in.MarketSentiment.Overall)
	}
	if in.OptimalMarket.SellHigh == nil || in.OptimalMarket.BuyLow == nil {
		t.Error("optimal market lists must be empty slices, not nil")
	}
}

func TestCropInsights(t *testing.T) {
	insights := CropInsights()
	if len(insights) != 3 {
		t.Fatalf("expected 3 insights, got %d", len(insights))
	}
	for _, ci := range insights {
		if ci.Confidence <= 0 || ci.Confidence > 100 {
			t.Errorf("confidence out of range for %s: %d", ci.Crop, ci.Confidence)
		}
		if len(ci.Reasons) == 0 {
			t.Errorf("expected reasons for %s", ci.Crop)
		}
	}
}

func TestInternationalOptions(t *testing.T) {
	opts := InternationalOptions()
	if len(opts.Commodities) == 0 || len(opts.Ports) == 0 {
		t.Fatalf("expected non-empty catalogs: %+v", opts)
	}
}
