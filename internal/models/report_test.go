package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_PassthroughSurvivesStoreRoundTrip(t *testing.T) {
	stored := []byte(`{
		"case_ref": "INC-42",
		"tags": ["web", "sqli"],
		"technical_report": {"title": "SQL Injection Attack Detected", "priority": "MEDIUM", "custom": 7},
		"leadership_report": {"title": "Potential Web Application Vulnerability Exploited", "risk_level": "MEDIUM"},
		"id": 1700000001,
		"received_at": "Tue Nov 14 22:13:21 2023"
	}`)

	var r Report
	require.NoError(t, json.Unmarshal(stored, &r))

	assert.Equal(t, int64(1700000001), r.ID)
	assert.Equal(t, "Tue Nov 14 22:13:21 2023", r.ReceivedAt)
	assert.Equal(t, "SQL Injection Attack Detected", r.Title())
	assert.Contains(t, r.Extra, "case_ref")
	assert.Contains(t, r.Extra, "tags")
	assert.NotContains(t, r.Extra, KeyID)

	out, err := json.Marshal(r)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(out, &generic))
	assert.Equal(t, "INC-42", generic["case_ref"])
	assert.Equal(t, float64(1700000001), generic["id"])
	tech := generic["technical_report"].(map[string]any)
	assert.Equal(t, float64(7), tech["custom"], "unknown nested fields must be preserved")
}

func TestReport_TitleFallback(t *testing.T) {
	tests := []struct {
		name      string
		technical string
		want      string
	}{
		{name: "title present", technical: `{"title":"Brute force"}`, want: "Brute force"},
		{name: "title missing", technical: `{"priority":"HIGH"}`, want: "Untitled"},
		{name: "title not a string", technical: `{"title":42}`, want: "Untitled"},
		{name: "view is a string", technical: `"Brute force"`, want: "Untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Report{TechnicalReport: json.RawMessage(tt.technical)}
			assert.Equal(t, tt.want, r.Title())
		})
	}
}

func TestDedupKey_Complete(t *testing.T) {
	full := DedupKey{SignatureID: "2001", Timestamp: "2024-01-01T00:00:00.000000+0000", SrcIP: "10.0.0.1", DstIP: "10.0.0.2"}
	assert.True(t, full.Complete())

	missing := full
	missing.DstIP = ""
	assert.False(t, missing.Complete())
	assert.False(t, DedupKey{}.Complete())
}

func TestAlert_Key(t *testing.T) {
	sig, ts, src := "2001", "2024-01-01T00:00:00Z", "10.0.0.1"
	a := &Alert{AlertID: &sig, Timestamp: &ts, SrcIP: &src}

	key := a.Key()
	assert.Equal(t, "2001", key.SignatureID)
	assert.Equal(t, "", key.DstIP)
	assert.False(t, key.Complete())
}

func TestReport_KeyOrderRoundTrips(t *testing.T) {
	stored := `{"zeta":1,"technical_report":"t","case_ref":"INC-7","leadership_report":"l","id":5,"received_at":"Mon Jan  1 00:00:00 2024"}`

	var r Report
	require.NoError(t, json.Unmarshal([]byte(stored), &r))
	assert.Equal(t, []string{"zeta", "technical_report", "case_ref", "leadership_report", "id", "received_at"}, r.Keys)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, stored, string(out))
}

func TestReport_MarshalAppendsServiceKeys(t *testing.T) {
	r := Report{
		ID:               9,
		ReceivedAt:       "Mon Jan  1 00:00:00 2024",
		TechnicalReport:  json.RawMessage(`{}`),
		LeadershipReport: json.RawMessage(`{}`),
		Extra:            map[string]json.RawMessage{"b": json.RawMessage(`2`), "a": json.RawMessage(`1`)},
		Keys:             []string{"leadership_report", "b", "technical_report", "a"},
	}

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"leadership_report":{},"b":2,"technical_report":{},"a":1,"id":9,"received_at":"Mon Jan  1 00:00:00 2024"}`, string(out))
}

func TestReport_MarshalWithoutKeys(t *testing.T) {
	r := Report{
		ID:               1,
		TechnicalReport:  json.RawMessage(`{}`),
		LeadershipReport: json.RawMessage(`{}`),
		Extra:            map[string]json.RawMessage{"b": json.RawMessage(`2`), "a": json.RawMessage(`1`)},
	}

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"technical_report":{},"leadership_report":{},"id":1}`, string(out))
}

func TestForm_AddKeepsFirstValueAndOrder(t *testing.T) {
	var f Form
	f = f.Add("zeta", "1")
	f = f.Add("alpha", "2")
	f = f.Add("zeta", "3")

	assert.Equal(t, Form{{Name: "zeta", Value: "1"}, {Name: "alpha", Value: "2"}}, f)
}
