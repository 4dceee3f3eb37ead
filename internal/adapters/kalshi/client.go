package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// ProdBaseURL es el endpoint público de market data.
	ProdBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

	// Kalshi permite 20 req/s en el tier básico; usamos el 50%.
	defaultRatePerSec = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client es el HTTP client de market data de Kalshi con rate limiting y retries.
// Solo usa endpoints públicos: no firma requests.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

// Option configura el Client.
type Option func(*Client)

// WithBaseURL cambia el base URL (tests, entorno demo).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.base = url
		}
	}
}

// WithRate cambia el límite de requests por segundo.
func WithRate(perSec float64) Option {
	return func(c *Client) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), max(1, int(perSec/2)))
		}
	}
}

// WithHTTPClient reemplaza el http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient crea un Client contra producción salvo que se indique otro base URL.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    ProdBaseURL,
		limiter: rate.NewLimiter(defaultRatePerSec, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get hace un GET con rate limiting y retries en 429 y 5xx.
func (c *Client) get(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries || ctx.Err() != nil {
				return fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("kalshi request retry", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
