// Package extraction reads structured contact and company data from a
// business card image.
package extraction

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/vcms/internal/config"
	"github.com/sells-group/vcms/internal/model"
	"github.com/sells-group/vcms/internal/resilience"
	"github.com/sells-group/vcms/pkg/anthropic"
)

// ErrUnreadable is returned when the provider answered but the answer could
// not be turned into a candidate. It is never retried.
var ErrUnreadable = eris.New("extraction: unreadable response")

// Service turns an image URL into an extraction candidate.
type Service interface {
	Extract(ctx context.Context, imageURL string) (*model.ExtractionCandidate, error)
}

// ServiceFunc adapts a function to the Service interface.
type ServiceFunc func(ctx context.Context, imageURL string) (*model.ExtractionCandidate, error)

// Extract calls f.
func (f ServiceFunc) Extract(ctx context.Context, imageURL string) (*model.ExtractionCandidate, error) {
	return f(ctx, imageURL)
}

// NewService creates the configured Service. The anthropic provider is
// wrapped with retry and an outbound rate limit; the fixture provider is
// used as is.
func NewService(cfg *config.Config, client anthropic.Client) (Service, error) {
	switch cfg.Extraction.Provider {
	case "anthropic", "":
		if client == nil {
			return nil, eris.New("extraction: anthropic provider requires a client")
		}
		var svc Service = NewClaudeExtractor(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
		retry := resilience.FromConfig(cfg.Retry)
		retry.OnRetry = resilience.RetryLogger("anthropic", "extract")
		svc = NewRetrying(svc, retry)
		if cfg.Extraction.RatePerSec > 0 {
			svc = NewLimited(svc, cfg.Extraction.RatePerSec, cfg.Extraction.Burst)
		}
		return svc, nil
	case "fixture":
		return LoadFixtures(cfg.Extraction.FixturePath)
	default:
		return nil, eris.Errorf("extraction: unknown provider %q", cfg.Extraction.Provider)
	}
}

// Retrying retries transient failures of the wrapped Service.
type Retrying struct {
	next Service
	cfg  resilience.RetryConfig
}

// NewRetrying wraps next with the given retry policy.
func NewRetrying(next Service, cfg resilience.RetryConfig) *Retrying {
	return &Retrying{next: next, cfg: cfg}
}

// Extract implements Service.
func (r *Retrying) Extract(ctx context.Context, imageURL string) (*model.ExtractionCandidate, error) {
	return resilience.DoVal(ctx, r.cfg, func(ctx context.Context) (*model.ExtractionCandidate, error) {
		return r.next.Extract(ctx, imageURL)
	})
}

// Limited caps the rate of calls to the wrapped Service.
type Limited struct {
	next    Service
	limiter *rate.Limiter
}

// NewLimited wraps next with a token bucket of ratePerSec and burst.
func NewLimited(next Service, ratePerSec float64, burst int) *Limited {
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Extract implements Service. Waiting for a token respects ctx.
func (l *Limited) Extract(ctx context.Context, imageURL string) (*model.ExtractionCandidate, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extraction: rate limit wait")
	}
	return l.next.Extract(ctx, imageURL)
}

// WithTimeout bounds every call to next by d.
func WithTimeout(next Service, d time.Duration) Service {
	if d <= 0 {
		return next
	}
	return ServiceFunc(func(ctx context.Context, imageURL string) (*model.ExtractionCandidate, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next.Extract(ctx, imageURL)
	})
}
