package normalizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// MsgMissingViews is returned to HTTP callers when a required view is absent.
const MsgMissingViews = "Invalid schema. Must contain 'technical_report' and 'leadership_report'"

// ReportNormalizer handles envelopes pushed over HTTP.
type ReportNormalizer struct {
	opts options
}

// NewReportNormalizer creates a report normalizer.
func NewReportNormalizer(opts ...Option) *ReportNormalizer {
	return &ReportNormalizer{opts: buildOptions(opts)}
}

// Supports returns true for HTTP envelopes.
func (n *ReportNormalizer) Supports(source models.SourceTag) bool {
	return source == models.SourceHTTP
}

// Normalize unwraps, validates and stamps an HTTP report.
func (n *ReportNormalizer) Normalize(ctx context.Context, envelope *models.RawEnvelope) (*models.NormalizedRecord, error) {
	payload, err := n.payload(envelope)
	if err != nil {
		return nil, err
	}

	payload = n.unwrap(ctx, payload)

	if !payload.has(models.KeyTechnicalReport) || !payload.has(models.KeyLeadershipReport) {
		return nil, &ValidationError{Message: MsgMissingViews, ReceivedKeys: receivedKeys(payload)}
	}

	// Views of any JSON type are kept as sent.
	now := n.opts.now()
	report := &models.Report{
		ID:               now.UnixMilli(),
		ReceivedAt:       now.Format(time.ANSIC),
		TechnicalReport:  payload.fields[models.KeyTechnicalReport],
		LeadershipReport: payload.fields[models.KeyLeadershipReport],
		Keys:             receivedKeys(payload),
	}
	for _, key := range payload.keys {
		switch key {
		case models.KeyTechnicalReport, models.KeyLeadershipReport, models.KeyID, models.KeyReceivedAt:
			continue
		}
		if report.Extra == nil {
			report.Extra = make(map[string]json.RawMessage)
		}
		report.Extra[key] = payload.fields[key]
	}

	return &models.NormalizedRecord{
		Source: models.RecordReport,
		Report: report,
	}, nil
}

// payload decodes the request body, or builds an object from form values
// when the request fell back to form encoding.
func (n *ReportNormalizer) payload(envelope *models.RawEnvelope) (*object, error) {
	var bodyErr error
	if len(envelope.Body) > 0 {
		obj, err := decodeObject(envelope.Body)
		if err == nil && len(obj.keys) > 0 {
			return obj, nil
		}
		bodyErr = err
	}

	if len(envelope.Form) == 0 {
		if bodyErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, bodyErr)
		}
		return nil, fmt.Errorf("%w: empty body", ErrMalformed)
	}

	obj := &object{fields: make(map[string]json.RawMessage, len(envelope.Form))}
	for _, field := range envelope.Form {
		if obj.has(field.Name) {
			continue
		}
		raw, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		obj.keys = append(obj.keys, field.Name)
		obj.fields[field.Name] = raw
	}
	return obj, nil
}

// unwrap removes automation-tool envelopes. {"body": {"log": "<json>"}} is
// checked first; a body.log that is not a string ends the search. Otherwise a
// top-level string "log" is tried. Failures keep the outer payload so the
// schema check reports what was actually received.
func (n *ReportNormalizer) unwrap(ctx context.Context, outer *object) *object {
	if raw, ok := outer.fields["body"]; ok && isJSONObject(raw) {
		if body, err := decodeObject(raw); err == nil && body.has("log") {
			if inner, ok := body.str("log"); ok {
				return n.parseInner(ctx, outer, inner, "body.log")
			}
			return outer
		}
	}

	if inner, ok := outer.str("log"); ok {
		return n.parseInner(ctx, outer, inner, "log")
	}
	return outer
}

func (n *ReportNormalizer) parseInner(ctx context.Context, outer *object, inner, field string) *object {
	obj, err := decodeObject([]byte(inner))
	if err != nil {
		n.opts.logger.WarnContext(ctx, "failed to parse inner JSON string",
			slog.String("field", field),
			slog.String("error", err.Error()),
		)
		return outer
	}
	return obj
}

func receivedKeys(obj *object) []string {
	keys := make([]string, len(obj.keys))
	copy(keys, obj.keys)
	return keys
}
