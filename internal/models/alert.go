package models

import (
	"encoding/json"
	"time"
)

// Alert is a row in the alert table. Every key and network field is nullable
// because eve.json producers do not guarantee them.
type Alert struct {
	AlertID         *string         `json:"alert_id"`
	Timestamp       *string         `json:"timestamp"`
	SrcIP           *string         `json:"src_ip"`
	DstIP           *string         `json:"dst_ip"`
	SrcPort         *int            `json:"src_port"`
	DstPort         *int            `json:"dst_port"`
	RawJSON         json.RawMessage `json:"raw_json"`
	IncidentGroupID *string         `json:"incident_group_id"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Key builds the dedup key from the alert's nullable fields.
func (a *Alert) Key() DedupKey {
	return DedupKey{
		SignatureID: deref(a.AlertID),
		Timestamp:   deref(a.Timestamp),
		SrcIP:       deref(a.SrcIP),
		DstIP:       deref(a.DstIP),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
