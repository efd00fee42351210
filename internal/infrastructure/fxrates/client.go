// Package fxrates fetches exchange rates from an external HTTP rate API.
package fxrates

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/fxoffice/backend/internal/infrastructure/config"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Client implements vault.FXRateProvider against GET {base_url}/latest?base=XXX
type Client struct {
	http   *resty.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewClient creates a rate API client
func NewClient(cfg config.RatesConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		})
	if cfg.APIKey != "" {
		header := cfg.APIKeyHeader
		if header == "" {
			header = "apikey"
		}
		rc.SetHeader(header, cfg.APIKey)
	}

	return &Client{http: rc, logger: logger, now: time.Now}
}

// Latest fetches the latest rates quoted against base
func (c *Client) Latest(ctx context.Context, base string) (vault.RateTable, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	resp, err := c.http.R().SetContext(ctx).SetQueryParam("base", base).Get("/latest")
	if err != nil {
		c.logger.Warn("rate API request failed", zap.String("base", base), zap.Error(err))
		return vault.RateTable{}, fmt.Errorf("%w: fetch rates: %v", shared.ErrExternalService, err)
	}
	if !resp.IsSuccess() {
		return vault.RateTable{}, fmt.Errorf("%w: fetch rates: status %d: %s",
			shared.ErrExternalService, resp.StatusCode(), errorMessage(resp.Body()))
	}
	table, err := c.parse(base, resp.Body())
	if err != nil {
		return vault.RateTable{}, err
	}
	// some plans ignore ?base= and answer in their default base
	if !table.IsQuotedIn(base) {
		c.logger.Warn("rate API answered in another base",
			zap.String("requested", base),
			zap.String("returned", table.Base))
		return table.Rebase(base)
	}
	return table, nil
}

func (c *Client) parse(base string, body []byte) (vault.RateTable, error) {
	if !gjson.ValidBytes(body) {
		return vault.RateTable{}, fmt.Errorf("%w: rate API returned invalid JSON", shared.ErrExternalService)
	}
	doc := gjson.ParseBytes(body)
	if s := doc.Get("success"); s.Exists() && !s.Bool() {
		return vault.RateTable{}, fmt.Errorf("%w: rate API: %s", shared.ErrExternalService, errorMessage(body))
	}

	rates := doc.Get("rates")
	if !rates.IsObject() {
		return vault.RateTable{}, fmt.Errorf("%w: rate API response has no rates", shared.ErrExternalService)
	}

	table := vault.RateTable{
		Base:      base,
		Rates:     make(map[string]decimal.Decimal),
		FetchedAt: c.now().UTC(),
	}
	if b := doc.Get("base").String(); b != "" {
		table.Base = strings.ToUpper(b)
	}

	rates.ForEach(func(key, value gjson.Result) bool {
		// Raw keeps the API's full precision
		d, err := decimal.NewFromString(value.Raw)
		if err != nil || !d.IsPositive() {
			c.logger.Debug("skipping unusable rate", zap.String("code", key.String()), zap.String("raw", value.Raw))
			return true
		}
		table.Rates[strings.ToUpper(key.String())] = d
		return true
	})
	return table, nil
}

func errorMessage(body []byte) string {
	doc := gjson.ParseBytes(body)
	for _, path := range []string{"error.info", "error.message", "error", "message"} {
		if v := doc.Get(path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return "unexpected response"
}

var _ vault.FXRateProvider = (*Client)(nil)
