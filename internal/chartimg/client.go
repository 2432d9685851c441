package chartimg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dgnsrekt/chart_vault/internal/fault"
)

const (
	advancedChartPath = "/v2/tradingview/advanced-chart"

	minDimension = 100
	maxDimension = 2000
)

var symbolRe = regexp.MustCompile(`(?i)^[A-Z0-9_:./-]+$`)

// Client calls the chart-img rendering API.
type Client struct {
	httpc   *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
}

// NewClient creates a provider client. timeout bounds each Generate call
// unless overridden per call.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpc:   http.DefaultClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
	}
}

// CallOption adjusts a single Generate call.
type CallOption func(*callOptions)

type callOptions struct {
	timeout time.Duration
}

// WithTimeout overrides the client default timeout for one call.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

// Generate renders one chart image. Input violations fail with a
// VALIDATION error before any network call; provider failures carry the
// upstream status code and raw payload.
func (c *Client) Generate(ctx context.Context, req Request, opts ...CallOption) (Generation, error) {
	if err := validate(req); err != nil {
		return Generation{}, err
	}

	o := callOptions{timeout: c.timeout}
	for _, opt := range opts {
		opt(&o)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Generation{}, fault.Wrap(fault.CodeProvider, "failed to encode chart request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+advancedChartPath, bytes.NewReader(body))
	if err != nil {
		return Generation{}, fault.Wrap(fault.CodeProvider, "failed to build chart request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Generation{}, &fault.CodedError{
				Code:    fault.CodeProviderTimeout,
				Message: fmt.Sprintf("chart generation timed out after %s", o.timeout),
				Cause:   err,
				Status:  http.StatusRequestTimeout,
			}
		}
		return Generation{}, fault.Wrap(fault.CodeProvider, "chart provider request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Generation{}, fault.Wrap(fault.CodeProvider, "failed to read chart provider response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Generation{}, providerError(resp.StatusCode, payload)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	return Generation{
		Image:       payload,
		ContentType: contentType,
		Size:        len(payload),
		Meta: Meta{
			Symbol:      req.Symbol,
			Interval:    req.Interval,
			Width:       req.Width,
			Height:      req.Height,
			Theme:       req.Theme,
			GeneratedAt: time.Now().UTC(),
		},
	}, nil
}

func validate(req Request) error {
	if !symbolRe.MatchString(req.Symbol) {
		return fault.Newf(fault.CodeValidation, "invalid symbol format: %q", req.Symbol)
	}
	if !SupportedInterval(req.Interval) {
		return fault.Newf(fault.CodeValidation, "unsupported interval: %q", req.Interval)
	}
	if req.Width < minDimension || req.Width > maxDimension {
		return fault.Newf(fault.CodeValidation, "width %d out of range [%d,%d]", req.Width, minDimension, maxDimension)
	}
	if req.Height < minDimension || req.Height > maxDimension {
		return fault.Newf(fault.CodeValidation, "height %d out of range [%d,%d]", req.Height, minDimension, maxDimension)
	}
	if req.Theme != "light" && req.Theme != "dark" {
		return fault.Newf(fault.CodeValidation, "theme must be light or dark, got %q", req.Theme)
	}
	return nil
}

// providerError normalizes the provider's error payload shapes: an array of
// field-level errors, an object with a message, or anything else.
func providerError(status int, payload []byte) error {
	msg := ""

	var fieldErrs []struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &fieldErrs); err == nil && len(fieldErrs) > 0 {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			if fe.Message != "" {
				msgs = append(msgs, fe.Message)
			}
		}
		msg = strings.Join(msgs, "; ")
	}

	if msg == "" {
		var single struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload, &single); err == nil {
			msg = single.Message
		}
	}

	if msg == "" {
		msg = fmt.Sprintf("chart provider returned status %d %s", status, http.StatusText(status))
	}

	return &fault.CodedError{
		Code:    fault.CodeProvider,
		Message: msg,
		Status:  status,
		Raw:     string(payload),
	}
}
