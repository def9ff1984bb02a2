package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	latestPath     = "/v1/latest"
	defaultTimeout = 5 * time.Second
)

// ClientConfig configures the HTTP rate client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client queries a freecurrencyapi compatible endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a rate client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg ClientConfig, httpClient *http.Client) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rates base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse rates base url: %w", err)
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}, nil
}

// ConversionRates fetches the latest rates for filter.
func (c *Client) ConversionRates(ctx context.Context, filter string) ([]Rate, error) {
	query := url.Values{}
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}
	if filter != "" {
		query.Set("currencies", filter)
	}
	endpoint := c.baseURL + latestPath
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request rates: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrUnprocessableFilter, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	rates, err := decodeRates(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	return rates, nil
}

// decodeRates walks {"data": {"EUR": 0.9, ...}} token by token so the rates
// keep the order the provider sent them in.
func decodeRates(r io.Reader) ([]Rate, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var out []Rate
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != "data" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		for dec.More() {
			code, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			var n json.Number
			if err := dec.Decode(&n); err != nil {
				return nil, fmt.Errorf("rate for %s: %w", code, err)
			}
			multiplier, err := decimal.NewFromString(n.String())
			if err != nil {
				return nil, fmt.Errorf("rate for %s: %w", code, err)
			}
			out = append(out, Rate{Code: code, Multiplier: multiplier})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}
