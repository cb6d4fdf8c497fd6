// Package handlers serves the report intake API.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/httputil"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/logging"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/normalizer"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/ratelimit"
)

const (
	MsgInvalidBody  = "Invalid JSON or empty body"
	MsgAccepted     = "Report accepted"
	MsgStoreFailed  = "Failed to store report"
	MsgListFailed   = "Failed to read reports"
	MsgBodyTooLarge = "Request body too large"
	MsgRateLimited  = "Rate limit exceeded"
)

const defaultMaxBodySize = 1 << 20

// ReportSubmitter is the service behind the report endpoints.
type ReportSubmitter interface {
	Submit(ctx context.Context, envelope *models.RawEnvelope) (*models.Report, error)
	List(ctx context.Context) ([]*models.Report, error)
}

type ReportHandler struct {
	service     ReportSubmitter
	limiter     ratelimit.Limiter
	maxBodySize int64
	logger      *slog.Logger
}

func NewReportHandler(service ReportSubmitter, limiter ratelimit.Limiter, maxBodySize int64, logger *slog.Logger) *ReportHandler {
	if limiter == nil {
		limiter = ratelimit.AllowAll{}
	}
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{service: service, limiter: limiter, maxBodySize: maxBodySize, logger: logger}
}

type acceptedResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

type schemaErrorResponse struct {
	Error        string   `json:"error"`
	ReceivedKeys []string `json:"received_keys"`
}

// Submit handles POST /api/reports.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	allowed, err := h.limiter.Allow(ctx, httputil.ClientIP(r))
	if err != nil {
		// Fail open.
		h.logger.WarnContext(ctx, "rate limiter unavailable", logging.Error(err))
	} else if !allowed {
		httputil.WriteError(w, http.StatusTooManyRequests, MsgRateLimited)
		return
	}

	envelope, status, msg := h.readEnvelope(w, r)
	if envelope == nil {
		httputil.WriteError(w, status, msg)
		return
	}

	report, err := h.service.Submit(ctx, envelope)
	if err != nil {
		var verr *normalizer.ValidationError
		switch {
		case errors.As(err, &verr):
			keys := verr.ReceivedKeys
			if keys == nil {
				keys = []string{}
			}
			httputil.WriteJSON(w, http.StatusBadRequest, schemaErrorResponse{Error: verr.Message, ReceivedKeys: keys})
		case errors.Is(err, normalizer.ErrMalformed):
			httputil.WriteError(w, http.StatusBadRequest, MsgInvalidBody)
		default:
			h.logger.ErrorContext(ctx, "failed to store report", logging.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, MsgStoreFailed)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, acceptedResponse{Message: MsgAccepted, ID: report.ID})
}

// List handles GET /api/reports.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list reports", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, MsgListFailed)
		return
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	httputil.WriteJSON(w, http.StatusOK, reports)
}

// readEnvelope prefers a JSON object body and falls back to form fields.
// A nil envelope comes with the status and message to reply with.
func (h *ReportHandler) readEnvelope(w http.ResponseWriter, r *http.Request) (*models.RawEnvelope, int, string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, MsgBodyTooLarge
		}
		return nil, http.StatusBadRequest, MsgInvalidBody
	}

	envelope := &models.RawEnvelope{Source: models.SourceHTTP, ReceivedAt: time.Now().UTC()}
	if normalizer.IsObject(body) {
		envelope.Body = body
		return envelope, 0, ""
	}

	form := parseForm(r, body, h.maxBodySize)
	if len(form) == 0 {
		return nil, http.StatusBadRequest, MsgInvalidBody
	}
	envelope.Form = form
	return envelope, 0, ""
}

// parseForm decodes url-encoded or multipart fields from an already read
// body, in the order the sender wrote them. Only the first value of a
// repeated field is kept and file parts are ignored.
func parseForm(r *http.Request, body []byte, maxMemory int64) models.Form {
	if len(body) == 0 {
		return nil
	}
	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		form models.Form
		err  error
	)
	switch mediaType {
	case "multipart/form-data":
		form, err = parseMultipart(body, params["boundary"], maxMemory)
	case "application/x-www-form-urlencoded":
		form, err = parseURLEncoded(string(body))
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return form
}

func parseURLEncoded(body string) (models.Form, error) {
	var form models.Form
	for body != "" {
		var pair string
		pair, body, _ = strings.Cut(body, "&")
		if pair == "" {
			continue
		}
		rawName, rawValue, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(rawName)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, err
		}
		form = form.Add(name, value)
	}
	return form, nil
}

func parseMultipart(body []byte, boundary string, maxMemory int64) (models.Form, error) {
	if boundary == "" {
		return nil, http.ErrMissingBoundary
	}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	var form models.Form
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return nil, err
		}
		name := part.FormName()
		if name == "" || part.FileName() != "" {
			part.Close()
			continue
		}
		value, err := io.ReadAll(io.LimitReader(part, maxMemory))
		part.Close()
		if err != nil {
			return nil, err
		}
		form = form.Add(name, string(value))
	}
}
