package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"quantpaper/internal/config"
	"quantpaper/internal/market"
)

var codeRE = regexp.MustCompile(`^\d{6}$`)

// SecID is the eastmoney "{market}.{code}" instrument id. Market 1 is
// Shanghai, 0 is Shenzhen.
type SecID struct {
	Market int
	Code   string
}

// Param renders the id the way the quote endpoint expects it.
func (s SecID) Param() string { return fmt.Sprintf("%d.%s", s.Market, s.Code) }

// ParseSymbol normalizes the A-share symbol spellings we accept:
// "600000.SH" / "000001.SZ", "sh600000" / "sz000001", and bare "600000"
// (leading 6 infers Shanghai, anything else Shenzhen).
func ParseSymbol(symbol string) (SecID, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))

	if len(s) == 8 && (strings.HasPrefix(s, "SH") || strings.HasPrefix(s, "SZ")) && codeRE.MatchString(s[2:]) {
		market := 0
		if strings.HasPrefix(s, "SH") {
			market = 1
		}
		return SecID{Market: market, Code: s[2:]}, nil
	}
	if len(s) == 9 && (strings.HasSuffix(s, ".SH") || strings.HasSuffix(s, ".SZ")) && codeRE.MatchString(s[:6]) {
		market := 0
		if strings.HasSuffix(s, ".SH") {
			market = 1
		}
		return SecID{Market: market, Code: s[:6]}, nil
	}
	if codeRE.MatchString(s) {
		market := 0
		if s[0] == '6' {
			market = 1
		}
		return SecID{Market: market, Code: s}, nil
	}
	return SecID{}, fmt.Errorf("unsupported A-share symbol format: %q", symbol)
}

const (
	fetchAttempts = 3
	retryBase     = 200 * time.Millisecond
)

// Eastmoney polls the unofficial eastmoney quote endpoint. The upstream is
// unauthenticated and throttles aggressively, so every call goes through a
// minimum-spacing limiter shared across symbols.
type Eastmoney struct {
	baseURL string
	client  *http.Client
	spacing time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewEastmoney builds the provider from validated configuration.
func NewEastmoney(cfg config.Eastmoney) (*Eastmoney, error) {
	transport := http.DefaultTransport
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}
	return &Eastmoney{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutMs) * time.Millisecond,
			Transport: transport,
		},
		spacing: time.Duration(cfg.MinSpacingMs) * time.Millisecond,
	}, nil
}

// Fetch requests one quote. Transient network failures are retried with
// multiplicative backoff; parse and HTTP-status failures fail the call so
// the engine can surface an error event and move on.
func (e *Eastmoney) Fetch(ctx context.Context, symbol string) (market.Tick, error) {
	sec, err := ParseSymbol(symbol)
	if err != nil {
		return market.Tick{}, err
	}

	if err := e.throttle(ctx); err != nil {
		return market.Tick{}, err
	}

	backoff := retryBase
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return market.Tick{}, ctx.Err()
			}
			backoff = backoff * 9 / 5
		}

		price, err := e.quote(ctx, sec)
		if err == nil {
			return market.Tick{Symbol: symbol, Price: price, Ts: time.Now().UTC()}, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return market.Tick{}, fmt.Errorf("eastmoney quote %s: %w", symbol, lastErr)
}

// Close releases idle upstream connections.
func (e *Eastmoney) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// throttle enforces the minimum inter-call spacing, honoring cancellation
// while waiting.
func (e *Eastmoney) throttle(ctx context.Context) error {
	e.mu.Lock()
	wait := e.spacing - time.Since(e.lastCall)
	if wait < 0 {
		wait = 0
	}
	e.lastCall = time.Now().Add(wait)
	e.mu.Unlock()

	if wait == 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

func retryable(err error) bool {
	if _, ok := err.(permanentError); ok {
		return false
	}
	return true
}

type quoteResponse struct {
	Data map[string]json.Number `json:"data"`
}

func (e *Eastmoney) quote(ctx context.Context, sec SecID) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/qt/stock/get?secid=%s&fields=f43,f58,f57,f59,f170,f44,f45,f46,f47,f48",
		e.baseURL, sec.Param())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, permanentError{fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", "quantpaper/1.0")
	req.Header.Set("Accept", "application/json,text/plain,*/*")

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return 0, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, permanentError{fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, permanentError{fmt.Errorf("decode response: %w", err)}
	}
	raw, ok := payload.Data["f43"]
	if !ok {
		return 0, permanentError{fmt.Errorf("empty quote data")}
	}
	px, err := raw.Float64()
	if err != nil {
		return 0, permanentError{fmt.Errorf("parse price %q: %w", raw.String(), err)}
	}
	if px <= 0 {
		return 0, permanentError{fmt.Errorf("non-positive price %v", px)}
	}
	// The endpoint reports some quotes as price*100 scaled integers. A-share
	// prices rarely exceed 10000, so descale anything above that.
	if px > 10000 {
		px /= 100
	}
	return px, nil
}
