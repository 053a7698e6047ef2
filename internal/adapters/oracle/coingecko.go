// Package oracle implementa ports.PriceOracle contra una API estilo
// Coingecko (/simple/price). El core tolera precios con staleness de varios
// ciclos, así que el cliente solo necesita ser educado con los rate limits,
// no rápido.
package oracle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"encoding/json"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"

	// El tier gratuito permite ~10-30 req/min; nos quedamos muy por debajo.
	defaultRatePerSec = 0.2

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client es el HTTP client del oráculo con rate limiting y retries.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient crea un Client. Si baseURL está vacío usa la API pública;
// ratePerSec ≤ 0 usa el default conservador.
func NewClient(baseURL string, ratePerSec float64) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 2),
	}
}

// PriceUSD devuelve el precio en USD del asset identificado por su id de
// oráculo (p.ej. "ethereum", "usd-coin").
func (c *Client) PriceUSD(ctx context.Context, id string) (float64, error) {
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(id))

	// {"ethereum": {"usd": 3210.45}}
	var out map[string]map[string]float64
	if err := c.get(ctx, u, &out); err != nil {
		return 0, fmt.Errorf("oracle.PriceUSD: %s: %w", id, err)
	}

	price, ok := out[id]["usd"]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("oracle.PriceUSD: sin precio para %q", id)
	}
	return price, nil
}

// get hace un GET con rate limiting y backoff exponencial.
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
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("oracle backoff", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
