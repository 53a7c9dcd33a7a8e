// Package pipeline turns a business card image into a scored vendor
// profile.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/vcms/internal/extraction"
	"github.com/sells-group/vcms/internal/lock"
	"github.com/sells-group/vcms/internal/model"
	"github.com/sells-group/vcms/internal/monitoring"
	"github.com/sells-group/vcms/internal/normalize"
	"github.com/sells-group/vcms/internal/scorer"
	"github.com/sells-group/vcms/internal/store"
)

const (
	defaultExtractionTimeout = 60 * time.Second
	defaultConcurrency       = 4
	defaultLockTTL           = 5 * time.Minute
)

// Orchestrator runs media assets through extraction, normalization,
// scoring and persistence.
type Orchestrator struct {
	store             store.Store
	extractor         extraction.Service
	locker            lock.Locker
	lockTTL           time.Duration
	metrics           *monitoring.Metrics
	extractionTimeout time.Duration
	concurrency       int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLocker guards each media id with l for at most ttl.
func WithLocker(l lock.Locker, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.locker = l
		if ttl > 0 {
			o.lockTTL = ttl
		}
	}
}

// WithMetrics records run outcomes to m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithExtractionTimeout bounds each extraction call.
func WithExtractionTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.extractionTimeout = d
		}
	}
}

// WithConcurrency sets how many runs ProcessBatch executes at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// New creates an Orchestrator.
func New(st store.Store, ex extraction.Service, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:             st,
		extractor:         ex,
		lockTTL:           defaultLockTTL,
		extractionTimeout: defaultExtractionTimeout,
		concurrency:       defaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessVendorMedia is the entry point for turning one uploaded business
// card into a vendor profile owned by userID.
func (o *Orchestrator) ProcessVendorMedia(ctx context.Context, mediaID, userID string) Result {
	return o.Process(ctx, mediaID, userID)
}

// Process runs the pipeline for one media id. It always returns a definite
// Result.
func (o *Orchestrator) Process(ctx context.Context, mediaID, userID string) Result {
	start := time.Now()
	r := &run{
		mediaID: mediaID,
		log:     zap.L().With(zap.String("media_id", mediaID), zap.String("user_id", userID)),
	}

	res := o.process(ctx, r, userID)

	o.metrics.ObserveRun(string(res.State), time.Since(start))
	if res.Success {
		r.log.Info("pipeline: run complete",
			zap.String("vendor_id", res.VendorID),
			zap.Bool("replayed", res.Replayed),
			zap.Duration("duration", time.Since(start)),
		)
	} else {
		r.log.Warn("pipeline: run failed",
			zap.String("state", string(res.State)),
			zap.Error(res.Err),
		)
	}
	return res
}

func (o *Orchestrator) process(ctx context.Context, r *run, userID string) Result {
	r.enter(StateStart)
	mediaID := r.mediaID
	if mediaID == "" {
		return r.fail(StateMediaNotFound, eris.Wrap(ErrMediaNotFound, "empty media id"))
	}

	if o.locker != nil {
		key := "media:" + mediaID
		token, err := o.locker.Acquire(ctx, key, o.lockTTL)
		if err != nil {
			if errors.Is(err, lock.ErrHeld) {
				return r.fail(StateStart, ErrInProgress)
			}
			return r.fail(StateStart, eris.Wrap(err, "pipeline: acquire lock"))
		}
		defer func() {
			if err := o.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				r.log.Warn("pipeline: release lock", zap.Error(err))
			}
		}()
	}

	media, err := o.store.GetMediaAsset(ctx, mediaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return r.fail(StateMediaNotFound, eris.Wrap(ErrMediaNotFound, mediaID))
		}
		return r.fail(StateStart, eris.Wrap(err, "pipeline: load media"))
	}
	if media.URL == "" {
		return r.fail(StateMediaNotFound, eris.Wrapf(ErrMediaNotFound, "%s has no url", mediaID))
	}

	if vendorID, ok := o.existingVendor(ctx, r, media); ok {
		return r.done(vendorID, true)
	}

	r.enter(StateExtracting)
	cand, err := o.extract(ctx, media.URL)
	if err != nil {
		r.enter(StateExtractionFailed)
		r.log.Warn("pipeline: continuing as ambiguous", zap.Error(eris.Wrap(ErrExtraction, err.Error())))
		cand = fallbackCandidate(err)
	} else {
		r.enter(StateExtracted)
		r.log.Debug("pipeline: extracted candidate",
			zap.String("status", string(cand.Status)),
			zap.String("company", cand.Company.CompanyName),
		)
	}

	r.enter(StateNormalizing)
	contact, company := normalize.Candidate(*cand)

	r.enter(StateScoring)
	// No rating evidence exists at intake; the score reflects that.
	comps := scorer.ScoreInputs(model.ScoreInputs{})

	r.enter(StatePersisting)
	profile := buildProfile(mediaID, userID, cand, contact, company, comps)
	vendorID, err := o.store.CommitVendor(ctx, profile)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			if existing, ok := o.existingVendor(ctx, r, media); ok {
				return r.done(existing, true)
			}
		}
		return r.fail(StatePersistFailed, eris.Wrapf(ErrPersistence, "commit vendor: %v", err))
	}
	o.metrics.ObserveScore(profile.VCMSScore)

	return r.done(vendorID, false)
}

// existingVendor returns the vendor already linked to media, if any.
func (o *Orchestrator) existingVendor(ctx context.Context, r *run, media *model.MediaAsset) (string, bool) {
	if media.Processed() {
		return media.VendorID, true
	}

	existing, err := o.store.GetVendorByMedia(ctx, media.ID)
	switch {
	case err == nil:
		return existing.ID, true
	case errors.Is(err, store.ErrNotFound):
	default:
		r.log.Warn("pipeline: lookup existing vendor", zap.Error(err))
	}
	return "", false
}

// extract calls the extraction service under the configured timeout. A nil
// candidate counts as a failure.
func (o *Orchestrator) extract(ctx context.Context, imageURL string) (*model.ExtractionCandidate, error) {
	ectx, cancel := context.WithTimeout(ctx, o.extractionTimeout)
	defer cancel()

	cand, err := o.extractor.Extract(ectx, imageURL)
	if err == nil && cand == nil {
		err = eris.New("empty candidate")
	}
	if err != nil {
		o.metrics.ObserveExtraction("error")
		return nil, err
	}
	o.metrics.ObserveExtraction(string(cand.Status))
	return cand, nil
}

// ProcessBatch runs Process for each media id with bounded concurrency.
// Results are returned in input order.
func (o *Orchestrator) ProcessBatch(ctx context.Context, mediaIDs []string, userID string) []Result {
	results := make([]Result, len(mediaIDs))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, id := range mediaIDs {
		i, id := i, id
		g.Go(func() error {
			results[i] = o.Process(ctx, id, userID)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
