package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPercent(t *testing.T) {
	if got := percent(decimal.RequireFromString("0.456")); got != 46 {
		t.Errorf("percent = %d, want 46", got)
	}
	if got := percent(decimal.NewFromInt(1)); got != 100 {
		t.Errorf("percent = %d, want 100", got)
	}
}

func TestParseYear(t *testing.T) {
	if got := parseYear(url.Values{"year": {"2023"}}, 2024); got != 2023 {
		t.Errorf("got %d", got)
	}
	for _, v := range []string{"", "abc", "-1"} {
		if got := parseYear(url.Values{"year": {v}}, 2024); got != 2024 {
			t.Errorf("year=%q: got %d, want default", v, got)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  lunch\x00\x07 box\t "); got != "lunch box" {
		t.Errorf("got %q", got)
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.9:5000", "", "", "203.0.113.9"},
		{"untrusted peer ignores forwarded", "203.0.113.9:5000", "198.51.100.1", "", "203.0.113.9"},
		{"trusted proxy forwarded for", "10.0.0.2:5000", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:5000", "", "198.51.100.7", "198.51.100.7"},
		{"trusted proxy garbage header", "192.168.1.1:80", "nope", "", "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsSuspicious(t *testing.T) {
	if isSuspicious(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)) {
		t.Error("plain request flagged")
	}
	if !isSuspicious(httptest.NewRequest(http.MethodGet, "/.env", nil)) {
		t.Error(".env probe not flagged")
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", "sqlmap/1.7")
	if !isSuspicious(r) {
		t.Error("scanner agent not flagged")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	var m securityMetrics
	if !rl.allow("a", &m) || !rl.allow("a", &m) {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a", &m) {
		t.Fatal("third request should be limited")
	}
	if !rl.allow("b", &m) {
		t.Fatal("other clients are counted separately")
	}
	if m.rateLimitHits != 1 {
		t.Errorf("rateLimitHits = %d", m.rateLimitHits)
	}

	now = now.Add(2 * time.Minute)
	if !rl.allow("a", &m) {
		t.Fatal("window should have reset")
	}

	now = now.Add(time.Hour)
	rl.cleanupStaleEntries()
	if len(rl.clients) != 0 {
		t.Errorf("stale clients kept: %d", len(rl.clients))
	}
}

func TestRequestBodyParser(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount": 12.5, "kind": "Income", "category": " Gift\u0001 "}`))
	r.Header.Set("Content-Type", "application/json")
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if !p.IsJSON() {
		t.Fatal("expected JSON")
	}
	in := p.TransactionInput()
	if in.Amount != "12.5" || in.Kind != "Income" || in.Category != "Gift" || in.Date != "" {
		t.Errorf("unexpected input %+v", in)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("amount=3&kind=Expense"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	p = NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if p.IsJSON() || p.Get("amount") != "3" || p.Get("missing") != "" {
		t.Errorf("form parse failed")
	}
	if wantsJSON(r, p) {
		t.Error("form post should get HTML")
	}
}

func TestHTMXResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerTransactionAppended(2024, 3).
		TriggerSuccessNotification("ok").
		BodyHTML("<p>hi</p>").
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d", w.Code)
	}
	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"transaction:appended"`, `"month":3`, `"type":"success"`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %s: %s", part, trigger)
		}
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type %q", ct)
	}

	w = httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, "<bad>").Write(w)
	if !strings.Contains(w.Body.String(), "&lt;bad&gt;") {
		t.Errorf("message not escaped: %s", w.Body.String())
	}
}
