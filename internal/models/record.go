// Package models defines the canonical records shared by every ingestion path.
package models

import "time"

// SourceTag identifies the adapter that produced a raw envelope.
type SourceTag string

const (
	SourceFileTail SourceTag = "file-tail"
	SourceHTTP     SourceTag = "http"
)

// RecordSource identifies the kind of canonical record.
type RecordSource string

const (
	RecordAlert  RecordSource = "alert"
	RecordReport RecordSource = "report"
)

// RawEnvelope is the transient unit handed from an adapter to the normalizer.
// Body carries the transport payload; Form is only set when an HTTP request
// fell back to form-encoded data.
type RawEnvelope struct {
	Source     SourceTag `json:"source"`
	Body       []byte    `json:"body,omitempty"`
	Form       Form      `json:"form,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// FormField is one submitted form value.
type FormField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Form holds form fields in the order the sender wrote them, one entry per
// name.
type Form []FormField

// Add appends a field unless name is already present; the first value wins.
func (f Form) Add(name, value string) Form {
	for _, field := range f {
		if field.Name == name {
			return f
		}
	}
	return append(f, FormField{Name: name, Value: value})
}

// NormalizedRecord is the canonical unit of storage. Exactly one of Alert or
// Report is set, matching Source.
type NormalizedRecord struct {
	Source   RecordSource `json:"source"`
	DedupKey DedupKey     `json:"dedup_key"`
	Alert    *Alert       `json:"alert,omitempty"`
	Report   *Report      `json:"report,omitempty"`
}

// ID returns the record identifier used in logs. Reports carry their
// millisecond id; alerts are identified by their dedup key.
func (r *NormalizedRecord) ID() string {
	if r == nil {
		return ""
	}
	if r.Report != nil {
		return r.Report.IDString()
	}
	return r.DedupKey.String()
}

// DedupKey is the composite identity of an alert.
type DedupKey struct {
	SignatureID string `json:"signature_id,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	SrcIP       string `json:"src_ip,omitempty"`
	DstIP       string `json:"dst_ip,omitempty"`
}

// Complete reports whether every component of the key is present. Incomplete
// keys are never used for duplicate detection.
func (k DedupKey) Complete() bool {
	return k.SignatureID != "" && k.Timestamp != "" && k.SrcIP != "" && k.DstIP != ""
}

func (k DedupKey) String() string {
	return k.SignatureID + "|" + k.Timestamp + "|" + k.SrcIP + "|" + k.DstIP
}
