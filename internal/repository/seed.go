package repository

import (
	"encoding/json"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// SeedReports returns the sample report written to a fresh collection when
// reports.seed is enabled.
func SeedReports() []*models.Report {
	return []*models.Report{
		{
			ID: 1700000001,
			TechnicalReport: json.RawMessage(`{
				"title": "SQL Injection Attack Detected",
				"priority": "MEDIUM",
				"summary": "A SQL injection attempt was detected in a web application.",
				"attacker_ip": "185.220.101.47",
				"victim_ip": "10.0.50.22",
				"what_happened": "The attacker used an SQL Injection attack vector by sending malicious data through the application's input, specifically targeting the URI parameter 'id'.",
				"immediate_actions": [
					"Review and patch affected web application components",
					"Change default values for all input parameters"
				]
			}`),
			LeadershipReport: json.RawMessage(`{
				"title": "Potential Web Application Vulnerability Exploited",
				"risk_level": "MEDIUM",
				"what_happened": "An attacker attempted to exploit a SQL injection vulnerability in our web application.",
				"business_impact": "Potential unauthorized viewing or modification of user information, leading to reputational harm and legal repercussions.",
				"what_we_are_doing": [
					"Investigating the attempted attack vector",
					"Monitoring for unauthorized access"
				]
			}`),
		},
	}
}
