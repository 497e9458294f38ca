package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatServer(t *testing.T, content string, check func(r *http.Request, body map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if check != nil {
			check(r, body)
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGenerate(t *testing.T) {
	srv := chatServer(t, "  Namaste! Wheat looks good this week.  ", func(r *http.Request, body map[string]any) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if got := body["model"]; got != "gemini-2.5-flash" {
			t.Errorf("expected default model, got %v", got)
		}
	})
	defer srv.Close()

	c := NewWithBaseURL("test-key", srv.URL)
	text, err := c.Generate(context.Background(), "How is wheat doing?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Namaste! Wheat looks good this week." {
		t.Errorf("expected trimmed content, got %q", text)
	}
}

func TestGenerateJSON(t *testing.T) {
	t.Run("PlainJSON", func(t *testing.T) {
		srv := chatServer(t, `{"action": "SELL", "confidence": 82}`, nil)
		defer srv.Close()

		c := NewWithBaseURL("k", srv.URL)
		var out struct {
			Action     string `json:"action"`
			Confidence int    `json:"confidence"`
		}
		if err := c.GenerateJSON(context.Background(), "analyze", &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Action != "SELL" || out.Confidence != 82 {
			t.Errorf("unexpected decode: %+v", out)
		}
	})

	t.Run("FencedJSON", func(t *testing.T) {
		srv := chatServer(t, "```json\n{\"action\": \"HOLD\"}\n```", nil)
		defer srv.Close()

		c := NewWithBaseURL("k", srv.URL)
		var out struct {
			Action string `json:"action"`
		}
		if err := c.GenerateJSON(context.Background(), "analyze", &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Action != "HOLD" {
			t.Errorf("expected HOLD, got %q", out.Action)
		}
	})

	t.Run("NotJSON", func(t *testing.T) {
		srv := chatServer(t, "I cannot answer that in JSON, sorry.", nil)
		defer srv.Close()

		c := NewWithBaseURL("k", srv.URL)
		var out map[string]any
		if err := c.GenerateJSON(context.Background(), "analyze", &out); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestGenerateVision(t *testing.T) {
	srv := chatServer(t, `{"detected_disease": "Leaf rust"}`, func(r *http.Request, body map[string]any) {
		messages := body["messages"].([]any)
		content := messages[0].(map[string]any)["content"].([]any)
		if len(content) != 2 {
			t.Fatalf("expected text+image parts, got %d", len(content))
		}
		img := content[1].(map[string]any)
		url := img["image_url"].(map[string]any)["url"].(string)
		if !strings.HasPrefix(url, "data:image/png;base64,aGVsbG8") {
			t.Errorf("unexpected data URL: %q", url)
		}
	})
	defer srv.Close()

	c := NewWithBaseURL("k", srv.URL)
	text, err := c.GenerateVision(context.Background(), "diagnose", "image/png", "aGVsbG8=")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Leaf rust") {
		t.Errorf("unexpected content: %q", text)
	}
}

func TestCompleteErrors(t *testing.T) {
	t.Run("UpstreamStatus", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": "quota"}`))
		}))
		defer srv.Close()

		c := NewWithBaseURL("k", srv.URL)
		if _, err := c.Generate(context.Background(), "hi"); err == nil {
			t.Fatal("expected error for 429 status")
		}
	})

	t.Run("NoChoices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices": []}`))
		}))
		defer srv.Close()

		c := NewWithBaseURL("k", srv.URL)
		if _, err := c.Generate(context.Background(), "hi"); err == nil {
			t.Fatal("expected error for empty choices")
		}
	})
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                    "{\"a\":1}",
		"```json\n{\"a\":1}\n```":      "{\"a\":1}",
		"```\n{\"a\":1}\n```":          "{\"a\":1}",
		"  \n```json\n{\"a\":1}\n``` ": "{\"a\":1}",
	}
	for in, want := range cases {
		if got := StripFences(in); got != want {
			t.Errorf("StripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
