package nbalive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL es el CDN público de datos en vivo de la NBA.
	DefaultBaseURL = "https://cdn.nba.com/static/json/liveData"

	// El CDN no documenta límites; 2 req/s alcanza para una decena de partidos por minuto.
	defaultRatePerSec = 2
)

// ErrGameNotStarted indica que el CDN aún no publica el play-by-play (403/404).
var ErrGameNotStarted = errors.New("play-by-play not available yet")

// Client lee el play-by-play en vivo del CDN de la NBA.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

// NewClient crea un Client. base vacío usa DefaultBaseURL; perSec <= 0 usa el default.
func NewClient(base string, perSec float64) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	if perSec <= 0 {
		perSec = defaultRatePerSec
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// get hace un GET con rate limiting. Sin retries: el loop vuelve a pedir en
// el próximo ciclo.
func (c *Client) get(ctx context.Context, url string, out any) error {
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
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return ErrGameNotStarted
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
