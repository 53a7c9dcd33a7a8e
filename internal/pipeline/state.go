package pipeline

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// State is a step of a single pipeline run. The last state reached is
// reported in Result.
type State string

const (
	StateStart            State = "START"
	StateExtracting       State = "EXTRACTING"
	StateExtracted        State = "EXTRACTED"
	StateExtractionFailed State = "EXTRACTION_FAILED"
	StateNormalizing      State = "NORMALIZING"
	StateScoring          State = "SCORING"
	StatePersisting       State = "PERSISTING"
	StateDone             State = "DONE"
	StatePersistFailed    State = "PERSIST_FAILED"
	StateMediaNotFound    State = "MEDIA_NOT_FOUND"
)

var (
	// ErrMediaNotFound means the media id is unknown or has no URL. Nothing
	// is written.
	ErrMediaNotFound = eris.New("pipeline: media not found")
	// ErrExtraction marks an extraction failure. It is recovered by
	// persisting an AMBIGUOUS profile and never reaches the caller.
	ErrExtraction = eris.New("pipeline: extraction failed")
	// ErrNormalization is reserved for a normalizer that can fail.
	ErrNormalization = eris.New("pipeline: normalization failed")
	// ErrPersistence means the vendor profile or media tag was not written.
	ErrPersistence = eris.New("pipeline: persistence failed")
	// ErrInProgress means another run holds the media id.
	ErrInProgress = eris.New("pipeline: processing already in progress")
)

// Result is the outcome of one run. Success means a vendor profile exists
// for the media id, possibly AMBIGUOUS.
type Result struct {
	MediaID  string `json:"media_id"`
	Success  bool   `json:"success"`
	VendorID string `json:"vendor_id,omitempty"`
	Error    string `json:"error,omitempty"`
	State    State  `json:"state"`
	// Replayed is set when the media id had already been processed.
	Replayed bool `json:"replayed,omitempty"`
	// Trace lists the states the run passed through, in order.
	Trace []State `json:"trace,omitempty"`
	Err   error   `json:"-"`
}

// run tracks the states of one Process call.
type run struct {
	mediaID string
	log     *zap.Logger
	trace   []State
}

func (r *run) enter(s State) {
	r.trace = append(r.trace, s)
	r.log.Debug("pipeline: state", zap.String("state", string(s)))
}

func (r *run) done(vendorID string, replayed bool) Result {
	r.enter(StateDone)
	return Result{
		MediaID:  r.mediaID,
		Success:  true,
		VendorID: vendorID,
		State:    StateDone,
		Replayed: replayed,
		Trace:    r.trace,
	}
}

func (r *run) fail(s State, err error) Result {
	if s != r.current() {
		r.enter(s)
	}
	return Result{MediaID: r.mediaID, Error: err.Error(), State: s, Trace: r.trace, Err: err}
}

func (r *run) current() State {
	if len(r.trace) == 0 {
		return ""
	}
	return r.trace[len(r.trace)-1]
}
