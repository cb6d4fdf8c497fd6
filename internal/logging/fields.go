package logging

import (
	"log/slog"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// Common field names for consistent logging across components.
const (
	FieldService     = "service"
	FieldRequestID   = "request_id"
	FieldSource      = "source"
	FieldError       = "error"
	FieldPath        = "path"
	FieldReportID    = "report_id"
	FieldTitle       = "title"
	FieldAlertID     = "alert_id"
	FieldSrcIP       = "src_ip"
	FieldDstIP       = "dst_ip"
	FieldTimestamp   = "timestamp"
	FieldOffset      = "offset"
	FieldOutcome     = "outcome"
	FieldKeysPresent = "received_keys"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Path returns a slog attribute for a file or URL path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Offset returns a slog attribute for a byte offset into a followed file.
func Offset(offset int64) slog.Attr {
	return slog.Int64(FieldOffset, offset)
}

// ReportID returns a slog attribute for a report id.
func ReportID(id int64) slog.Attr {
	return slog.Int64(FieldReportID, id)
}

// AlertKey groups the dedup key of an alert under a single attribute.
func AlertKey(key models.DedupKey) slog.Attr {
	return slog.Group("alert",
		slog.String(FieldAlertID, key.SignatureID),
		slog.String(FieldSrcIP, key.SrcIP),
		slog.String(FieldDstIP, key.DstIP),
		slog.String(FieldTimestamp, key.Timestamp),
	)
}
