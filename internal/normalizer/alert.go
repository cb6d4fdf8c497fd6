package normalizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// AlertNormalizer handles eve.json lines from the file tail.
type AlertNormalizer struct {
	opts options
}

// NewAlertNormalizer creates an alert normalizer.
func NewAlertNormalizer(opts ...Option) *AlertNormalizer {
	return &AlertNormalizer{opts: buildOptions(opts)}
}

// Supports returns true for file-tail envelopes.
func (n *AlertNormalizer) Supports(source models.SourceTag) bool {
	return source == models.SourceFileTail
}

// Normalize extracts the alert columns from one eve.json event. Extraction is
// best effort: absent or mistyped fields become nil and the line is never
// rejected once it parses as an object.
func (n *AlertNormalizer) Normalize(_ context.Context, envelope *models.RawEnvelope) (*models.NormalizedRecord, error) {
	event, err := decodeObject(envelope.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, envelope.Body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	alert := &models.Alert{
		Timestamp: text(event.fields["timestamp"]),
		SrcIP:     text(event.fields["src_ip"]),
		DstIP:     firstText(event.fields["dest_ip"], event.fields["dst_ip"]),
		SrcPort:   port(event.fields["src_port"]),
		DstPort:   firstPort(event.fields["dest_port"], event.fields["dst_port"]),
		RawJSON:   compact.Bytes(),
		CreatedAt: n.opts.now().UTC(),
	}
	if raw, ok := event.fields["alert"]; ok && isJSONObject(raw) {
		if inner, err := decodeObject(raw); err == nil {
			alert.AlertID = text(inner.fields["signature_id"])
		}
	}

	return &models.NormalizedRecord{
		Source:   models.RecordAlert,
		DedupKey: alert.Key(),
		Alert:    alert,
	}, nil
}

// EventType returns the event_type of an eve.json line, or "" when the line is
// not an object or carries no string event_type.
func EventType(line []byte) (string, error) {
	event, err := decodeObject(line)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	t, _ := event.str("event_type")
	return t, nil
}

// text renders strings as-is and numbers in their JSON form. Anything else,
// including null, is treated as absent.
func text(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch {
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		return &s
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		s := string(raw)
		return &s
	}
	return nil
}

// firstText returns the first candidate that is present and non-empty.
func firstText(candidates ...json.RawMessage) *string {
	var last *string
	for _, raw := range candidates {
		v := text(raw)
		if v != nil && *v != "" {
			return v
		}
		if v != nil {
			last = v
		}
	}
	return last
}

// port accepts integral JSON numbers and numeric strings.
func port(raw json.RawMessage) *int {
	v := text(raw)
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		n := int(f)
		return &n
	}
	return nil
}

// firstPort prefers the first non-zero port, matching "dest_port or dst_port".
func firstPort(candidates ...json.RawMessage) *int {
	var last *int
	for _, raw := range candidates {
		p := port(raw)
		if p != nil && *p != 0 {
			return p
		}
		if p != nil {
			last = p
		}
	}
	return last
}
