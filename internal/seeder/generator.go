// Package seeder generates Suricata eve.json lines and incident reports for
// local testing.
package seeder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// EveTimeLayout is the timestamp layout Suricata writes to eve.json.
const EveTimeLayout = "2006-01-02T15:04:05.000000-0700"

type signature struct {
	id       int
	name     string
	category string
	severity int
	port     int
	proto    string
}

var signatures = []signature{
	{2001219, "ET SCAN Potential SSH Scan", "Attempted Information Leak", 2, 22, "TCP"},
	{2006546, "ET SCAN LibSSH Based Frequent SSH Connections Likely BruteForce Attack", "Attempted Administrator Privilege Gain", 1, 22, "TCP"},
	{2010935, "ET SCAN Suspicious inbound to MSSQL port 1433", "Potentially Bad Traffic", 2, 1433, "TCP"},
	{2011716, "ET WEB_SERVER Possible SQL Injection Attempt UNION SELECT", "Web Application Attack", 1, 80, "TCP"},
	{2024364, "ET SCAN Possible Nmap User-Agent Observed", "Web Application Attack", 1, 443, "TCP"},
	{2027865, "ET INFO Observed DNS Query to .cloud TLD", "Potentially Bad Traffic", 3, 53, "UDP"},
}

var otherEventTypes = []string{"flow", "dns", "http", "tls", "stats", "fileinfo"}

// Generator produces deterministic fake data for a given seed.
type Generator struct {
	faker *gofakeit.Faker
	now   func() time.Time
}

// New creates a generator. A zero seed picks a random one.
func New(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed), now: time.Now}
}

// Alert returns one eve.json alert line without the trailing newline.
func (g *Generator) Alert() []byte {
	sig := signatures[g.faker.IntRange(0, len(signatures)-1)]
	event := g.base("alert", sig.proto)
	event["dest_port"] = sig.port
	event["alert"] = map[string]interface{}{
		"action":       "allowed",
		"gid":          1,
		"signature_id": sig.id,
		"rev":          g.faker.IntRange(1, 9),
		"signature":    sig.name,
		"category":     sig.category,
		"severity":     sig.severity,
	}
	return mustMarshal(event)
}

// Event returns a non-alert eve.json line.
func (g *Generator) Event() []byte {
	eventType := otherEventTypes[g.faker.IntRange(0, len(otherEventTypes)-1)]
	event := g.base(eventType, "TCP")
	event["dest_port"] = g.faker.IntRange(1, 65535)
	switch eventType {
	case "dns":
		event["dns"] = map[string]interface{}{"type": "query", "rrname": g.faker.DomainName(), "rrtype": "A"}
	case "http":
		event["http"] = map[string]interface{}{
			"hostname":        g.faker.DomainName(),
			"url":             "/" + g.faker.Word(),
			"http_user_agent": g.faker.UserAgent(),
			"status":          g.faker.HTTPStatusCode(),
		}
	case "flow":
		event["flow"] = map[string]interface{}{"pkts_toserver": g.faker.IntRange(1, 500), "bytes_toserver": g.faker.IntRange(60, 90000)}
	}
	return mustMarshal(event)
}

// Line returns an alert with probability alertRatio, otherwise another event.
func (g *Generator) Line(alertRatio float64) []byte {
	if g.faker.Float64Range(0, 1) < alertRatio {
		return g.Alert()
	}
	return g.Event()
}

func (g *Generator) base(eventType, proto string) map[string]interface{} {
	return map[string]interface{}{
		"timestamp":  g.now().Format(EveTimeLayout),
		"flow_id":    g.faker.Int64(),
		"in_iface":   "eth0",
		"event_type": eventType,
		"src_ip":     g.faker.IPv4Address(),
		"src_port":   g.faker.IntRange(1024, 65535),
		"dest_ip":    fmt.Sprintf("192.168.1.%d", g.faker.IntRange(2, 254)),
		"proto":      proto,
	}
}

var priorities = []string{"Low", "Medium", "High", "Critical"}

// Report returns a report body in the shape POST /api/reports expects.
func (g *Generator) Report() map[string]interface{} {
	sig := signatures[g.faker.IntRange(0, len(signatures)-1)]
	attacker := g.faker.IPv4Address()
	victim := fmt.Sprintf("192.168.1.%d", g.faker.IntRange(2, 254))
	priority := priorities[g.faker.IntRange(0, len(priorities)-1)]

	return map[string]interface{}{
		"technical_report": map[string]interface{}{
			"title":         sig.name,
			"priority":      priority,
			"summary":       g.faker.Sentence(12),
			"attacker_ip":   attacker,
			"victim_ip":     victim,
			"what_happened": g.faker.Paragraph(1, 3, 12, " "),
			"immediate_actions": []string{
				"Block " + attacker + " at the perimeter firewall",
				"Review authentication logs on " + victim,
			},
		},
		"leadership_report": map[string]interface{}{
			"title":           sig.category,
			"risk_level":      priority,
			"what_happened":   g.faker.Sentence(10),
			"business_impact": g.faker.Sentence(8),
			"what_we_are_doing": []string{
				"Containing the affected host",
				"Monitoring for further activity",
			},
		},
	}
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
