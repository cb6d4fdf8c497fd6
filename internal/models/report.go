package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Top-level report keys owned by the ingestion service or required from senders.
const (
	KeyTechnicalReport  = "technical_report"
	KeyLeadershipReport = "leadership_report"
	KeyID               = "id"
	KeyReceivedAt       = "received_at"
)

// Report is an incident summary pushed over HTTP. The two required views are
// kept as raw JSON; everything else the sender attached survives in Extra and
// is written back out unchanged.
//
// Keys is the top-level key order as received. id and received_at keep their
// place when the sender supplied them and are appended otherwise.
type Report struct {
	ID               int64
	ReceivedAt       string
	TechnicalReport  json.RawMessage
	LeadershipReport json.RawMessage
	Extra            map[string]json.RawMessage
	Keys             []string
}

// TechnicalReport is the analyst-facing view of a report.
type TechnicalReport struct {
	Title            string   `json:"title"`
	Priority         string   `json:"priority"`
	Summary          string   `json:"summary"`
	AttackerIP       string   `json:"attacker_ip"`
	VictimIP         string   `json:"victim_ip"`
	WhatHappened     string   `json:"what_happened"`
	ImmediateActions []string `json:"immediate_actions"`
}

// LeadershipReport is the business-facing view of a report.
type LeadershipReport struct {
	Title          string   `json:"title"`
	RiskLevel      string   `json:"risk_level"`
	WhatHappened   string   `json:"what_happened"`
	BusinessImpact string   `json:"business_impact"`
	WhatWeAreDoing []string `json:"what_we_are_doing"`
}

// IDString returns the report id in decimal form.
func (r *Report) IDString() string {
	return strconv.FormatInt(r.ID, 10)
}

// Technical decodes the technical view. Senders are free to deviate from the
// documented field types, so callers must tolerate an error here.
func (r *Report) Technical() (TechnicalReport, error) {
	var t TechnicalReport
	err := json.Unmarshal(r.TechnicalReport, &t)
	return t, err
}

// Leadership decodes the leadership view.
func (r *Report) Leadership() (LeadershipReport, error) {
	var l LeadershipReport
	err := json.Unmarshal(r.LeadershipReport, &l)
	return l, err
}

// Title returns the technical title, or "Untitled" when none can be read.
func (r *Report) Title() string {
	t, err := r.Technical()
	if err != nil || t.Title == "" {
		return "Untitled"
	}
	return t.Title
}

// MarshalJSON flattens the report back into a single object following Keys.
// Fields missing from Keys follow: passthrough fields (sorted), the two views,
// then id and received_at (omitted when empty).
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	written := make(map[string]bool, len(r.Keys)+4)
	write := func(key string, value []byte) error {
		if written[key] {
			return nil
		}
		written[key] = true
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if len(value) == 0 {
			value = []byte("null")
		}
		buf.Write(value)
		return nil
	}
	field := func(key string) error {
		switch key {
		case KeyTechnicalReport:
			return write(key, r.TechnicalReport)
		case KeyLeadershipReport:
			return write(key, r.LeadershipReport)
		case KeyID:
			return write(key, []byte(r.IDString()))
		case KeyReceivedAt:
			if r.ReceivedAt == "" {
				return nil
			}
			receivedAt, err := json.Marshal(r.ReceivedAt)
			if err != nil {
				return err
			}
			return write(key, receivedAt)
		}
		if value, ok := r.Extra[key]; ok {
			return write(key, value)
		}
		return nil
	}

	extras := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		extras = append(extras, k)
	}
	sort.Strings(extras)

	order := make([]string, 0, len(r.Keys)+len(extras)+4)
	order = append(order, r.Keys...)
	order = append(order, extras...)
	order = append(order, KeyTechnicalReport, KeyLeadershipReport, KeyID, KeyReceivedAt)

	buf.WriteByte('{')
	for _, key := range order {
		if err := field(key); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON splits a stored report object into its known and
// passthrough parts.
func (r *Report) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	keys, err := objectKeys(data)
	if err != nil {
		return err
	}

	*r = Report{Keys: keys}
	if raw, ok := fields[KeyID]; ok {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("report id: %w", err)
		}
		id, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return fmt.Errorf("report id: %w", err)
			}
			id = int64(f)
		}
		r.ID = id
		delete(fields, KeyID)
	}
	if raw, ok := fields[KeyReceivedAt]; ok {
		// received_at is informational; a non-string value is dropped rather
		// than failing the whole collection.
		_ = json.Unmarshal(raw, &r.ReceivedAt)
		delete(fields, KeyReceivedAt)
	}
	r.TechnicalReport = fields[KeyTechnicalReport]
	r.LeadershipReport = fields[KeyLeadershipReport]
	delete(fields, KeyTechnicalReport)
	delete(fields, KeyLeadershipReport)
	if len(fields) > 0 {
		r.Extra = fields
	}
	return nil
}

// objectKeys lists the top-level keys of a JSON object in document order,
// each once.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}
