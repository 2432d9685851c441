// Package chart applies business policy on top of the provider adapter:
// symbol shape, blocklisted symbols, supported exchanges, a pixel budget,
// and a per-symbol provider timeout.
package chart

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dgnsrekt/chart_vault/internal/chartimg"
	"github.com/dgnsrekt/chart_vault/internal/fault"
)

// Generator is the provider adapter seam.
type Generator interface {
	Generate(ctx context.Context, req chartimg.Request, opts ...chartimg.CallOption) (chartimg.Generation, error)
}

// Policy holds the business limits applied before calling the provider.
type Policy struct {
	MaxPixels        int
	AllowedExchanges []string
	PopularTokens    []string
	DefaultTimeout   time.Duration
	FastTimeout      time.Duration
}

// Blocklisted symbol patterns, independent of provider validation.
var restrictedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\btest\b`),
	regexp.MustCompile(`(?i)\bdemo\b`),
	regexp.MustCompile(`(?i)\bfake\b`),
	regexp.MustCompile(`(?i)\bscam\b`),
}

// Service validates snapshot requests and delegates rendering.
type Service struct {
	gen            Generator
	maxPixels      int
	exchanges      map[string]bool
	popular        map[string]bool
	defaultTimeout time.Duration
	fastTimeout    time.Duration
}

func NewService(gen Generator, p Policy) *Service {
	exchanges := make(map[string]bool, len(p.AllowedExchanges))
	for _, e := range p.AllowedExchanges {
		exchanges[strings.ToUpper(e)] = true
	}
	popular := make(map[string]bool, len(p.PopularTokens))
	for _, t := range p.PopularTokens {
		popular[strings.ToUpper(t)] = true
	}
	return &Service{
		gen:            gen,
		maxPixels:      p.MaxPixels,
		exchanges:      exchanges,
		popular:        popular,
		defaultTimeout: p.DefaultTimeout,
		fastTimeout:    p.FastTimeout,
	}
}

// CreateSnapshot validates the request and renders one chart image.
// Client-caused problems fail with VALIDATION. Adapter VALIDATION and
// PROVIDER_TIMEOUT errors pass through unchanged so the API edge maps
// them directly; any other adapter failure is re-wrapped as GENERATION
// preserving the cause.
func (s *Service) CreateSnapshot(ctx context.Context, req chartimg.Request) (chartimg.Generation, error) {
	exchange, pair, ok := strings.Cut(req.Symbol, ":")
	if !ok || exchange == "" || pair == "" {
		return chartimg.Generation{}, fault.Newf(fault.CodeValidation,
			"symbol %q must be in EXCHANGE:PAIR format", req.Symbol)
	}

	for _, pattern := range restrictedPatterns {
		if pattern.MatchString(req.Symbol) {
			return chartimg.Generation{}, fault.Newf(fault.CodeValidation,
				"symbol %q is not supported", req.Symbol)
		}
	}

	if !s.exchanges[strings.ToUpper(exchange)] {
		return chartimg.Generation{}, fault.Newf(fault.CodeValidation,
			"exchange %q is not supported", exchange)
	}

	if !chartimg.SupportedInterval(req.Interval) {
		return chartimg.Generation{}, fault.Newf(fault.CodeValidation,
			"unsupported interval: %q", req.Interval)
	}

	if pixels := req.Width * req.Height; pixels > s.maxPixels {
		return chartimg.Generation{}, fault.Newf(fault.CodeValidation,
			"image size %dx%d exceeds the %d pixel budget", req.Width, req.Height, s.maxPixels)
	}

	gen, err := s.gen.Generate(ctx, req, chartimg.WithTimeout(s.timeoutFor(pair)))
	if err != nil {
		var coded *fault.CodedError
		if errors.As(err, &coded) {
			switch coded.Code {
			case fault.CodeValidation, fault.CodeProviderTimeout:
				return chartimg.Generation{}, err
			}
		}
		return chartimg.Generation{}, fault.Wrap(fault.CodeGeneration, "chart generation failed", err)
	}
	return gen, nil
}

// timeoutFor grants popular tokens the shorter provider timeout.
func (s *Service) timeoutFor(pair string) time.Duration {
	if s.popular[baseToken(pair)] {
		return s.fastTimeout
	}
	return s.defaultTimeout
}

// baseToken extracts the token to check for popularity: the pair without a
// -PERP suffix, the left side of a / pair, or the leading alphabetic run.
func baseToken(pair string) string {
	upper := strings.ToUpper(pair)
	if base, found := strings.CutSuffix(upper, "-PERP"); found {
		return base
	}
	if left, _, found := strings.Cut(upper, "/"); found {
		return left
	}
	for i := 0; i < len(upper); i++ {
		if upper[i] < 'A' || upper[i] > 'Z' {
			return upper[:i]
		}
	}
	return upper
}
