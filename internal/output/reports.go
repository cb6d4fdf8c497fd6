package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/dlq"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

var priorityColors = map[string]*color.Color{
	"critical": color.New(color.FgRed, color.Bold),
	"high":     color.New(color.FgRed),
	"medium":   color.New(color.FgYellow),
	"low":      color.New(color.FgGreen),
}

// Reports writes reports in the requested format.
func Reports(w io.Writer, format string, reports []*models.Report) error {
	if reports == nil {
		reports = []*models.Report{}
	}
	switch format {
	case FormatJSON:
		return JSON(w, reports)
	case FormatYAML:
		return YAML(w, reports)
	case FormatTable:
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	if len(reports) == 0 {
		Info(w, "No reports stored")
		return nil
	}

	t := NewTable("ID", "RECEIVED", "PRIORITY", "ATTACKER", "TITLE")
	for _, r := range reports {
		// Senders may deviate from the documented view shape.
		tech, _ := r.Technical()
		priority := tech.Priority
		if priority == "" {
			priority = "-"
		}
		t.AddRow(r.IDString(), dash(r.ReceivedAt), priority, dash(tech.AttackerIP), r.Title())
		if c, ok := priorityColors[strings.ToLower(tech.Priority)]; ok {
			t.ColorCell(2, c)
		}
	}
	t.Render(w)
	return nil
}

// FailedRecords writes dead letter entries in the requested format.
func FailedRecords(w io.Writer, format string, records []dlq.FailedRecord) error {
	if records == nil {
		records = []dlq.FailedRecord{}
	}
	switch format {
	case FormatJSON:
		return JSON(w, records)
	case FormatYAML:
		return YAML(w, records)
	case FormatTable:
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	if len(records) == 0 {
		Info(w, "Dead letter queue is empty")
		return nil
	}

	t := NewTable("ID", "TIME", "REASON", "SOURCE", "ERROR")
	for _, rec := range records {
		source := ""
		if rec.Envelope != nil {
			source = string(rec.Envelope.Source)
		}
		t.AddRow(rec.ID, rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Reason, dash(source), rec.Error)
	}
	t.Render(w)
	return nil
}

// DLQStats writes queue counters in the requested format.
func DLQStats(w io.Writer, format string, st dlq.Stats) error {
	switch format {
	case FormatJSON:
		return JSON(w, st)
	case FormatYAML:
		return YAML(w, st)
	case FormatTable:
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	t := NewTable("BACKEND", "LOCATION", "PENDING", "WRITTEN", "ERROR")
	t.AddRow(st.Backend, dash(st.Location), strconv.FormatUint(st.Pending, 10), strconv.FormatUint(st.Written, 10), dash(st.Error))
	if st.Error != "" {
		t.ColorCell(4, color.New(color.FgRed))
	}
	t.Render(w)
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
