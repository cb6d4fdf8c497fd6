// Package normalizer turns raw adapter envelopes into canonical records.
//
// File-tail envelopes carry one eve.json line and become alerts. HTTP
// envelopes carry a pushed report, possibly wrapped by an automation tool in
// {"body": {"log": "<json>"}} or {"log": "<json>"}, and become reports after
// the wrapper is removed and the two required views are checked.
package normalizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

var (
	// ErrMalformed marks a transport-level failure: the payload is not a JSON
	// object at all.
	ErrMalformed = errors.New("malformed payload")

	// ErrUnsupportedSource is returned when no normalizer handles the envelope.
	ErrUnsupportedSource = errors.New("unsupported envelope source")
)

// ValidationError reports a payload that parsed but lacks the required
// structure. ReceivedKeys lists the top-level keys that were present, in the
// order the sender wrote them.
type ValidationError struct {
	Message      string
	ReceivedKeys []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (received keys: %s)", e.Message, strings.Join(e.ReceivedKeys, ", "))
}

// Normalizer converts one kind of raw envelope into a canonical record.
type Normalizer interface {
	Normalize(ctx context.Context, envelope *models.RawEnvelope) (*models.NormalizedRecord, error)
	Supports(source models.SourceTag) bool
}

// Registry holds ordered normalizers and finds a match for a given envelope.
type Registry struct {
	items []Normalizer
}

// NewRegistry constructs a registry with provided normalizers.
func NewRegistry(items ...Normalizer) *Registry {
	return &Registry{items: items}
}

// Default returns a registry that handles both file-tail alerts and HTTP
// reports.
func Default(opts ...Option) *Registry {
	return NewRegistry(NewAlertNormalizer(opts...), NewReportNormalizer(opts...))
}

// Find returns the first normalizer that supports the envelope.
func (r *Registry) Find(envelope *models.RawEnvelope) Normalizer {
	if r == nil || envelope == nil {
		return nil
	}
	for _, n := range r.items {
		if n.Supports(envelope.Source) {
			return n
		}
	}
	return nil
}

// Normalize dispatches the envelope to the matching normalizer.
func (r *Registry) Normalize(ctx context.Context, envelope *models.RawEnvelope) (*models.NormalizedRecord, error) {
	n := r.Find(envelope)
	if n == nil {
		source := models.SourceTag("")
		if envelope != nil {
			source = envelope.Source
		}
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, source)
	}
	return n.Normalize(ctx, envelope)
}

// Option customises normalizers.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// WithClock overrides the clock used to stamp ids and ingestion times.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger used for non-fatal normalization warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
