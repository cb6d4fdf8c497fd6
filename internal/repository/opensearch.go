package repository

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/config"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/models"
)

// alertMapping keeps key fields as exact-match keywords.
const alertMapping = `{
  "mappings": {
    "properties": {
      "alert_id":          {"type": "keyword"},
      "timestamp":         {"type": "keyword"},
      "src_ip":            {"type": "keyword"},
      "dst_ip":            {"type": "keyword"},
      "src_port":          {"type": "integer"},
      "dst_port":          {"type": "integer"},
      "raw_json":          {"type": "object", "enabled": false},
      "incident_group_id": {"type": "keyword"},
      "created_at":        {"type": "date"}
    }
  }
}`

// OpenSearchAlertRepository stores alerts as documents in a single index.
// Alerts with a complete key get a document id derived from the key, so a
// second create for the same key is rejected by OpenSearch itself.
type OpenSearchAlertRepository struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchAlertRepository connects to OpenSearch and makes sure the
// alert index exists.
func NewOpenSearchAlertRepository(ctx context.Context, cfg config.OpenSearchConfig) (*OpenSearchAlertRepository, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.TLSSkipVerify,
			},
		},
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	repo := &OpenSearchAlertRepository{client: client, index: cfg.Index}
	if err := repo.Ping(ctx); err != nil {
		return nil, err
	}
	if err := repo.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *OpenSearchAlertRepository) ensureIndex(ctx context.Context) error {
	exists, err := opensearchapi.IndicesExistsRequest{Index: []string{r.index}}.Do(ctx, r.client)
	if err != nil {
		return storageError("check index", err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := opensearchapi.IndicesCreateRequest{
		Index: r.index,
		Body:  strings.NewReader(alertMapping),
	}.Do(ctx, r.client)
	if err != nil {
		return storageError("create index", err)
	}
	defer res.Body.Close()

	if res.IsError() && !strings.Contains(readBody(res.Body), "resource_already_exists_exception") {
		return storageError("create index", fmt.Errorf("opensearch returned %s", res.Status()))
	}
	return nil
}

// Exists looks the key up by its derived document id.
func (r *OpenSearchAlertRepository) Exists(ctx context.Context, key models.DedupKey) (bool, error) {
	res, err := opensearchapi.ExistsRequest{Index: r.index, DocumentID: documentID(key)}.Do(ctx, r.client)
	if err != nil {
		return false, storageError("check alert", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, storageError("check alert", fmt.Errorf("opensearch returned %s", res.Status()))
	}
}

// Insert indexes the alert. Complete keys use op_type=create on the derived
// id; a 409 means another writer stored the same key first.
func (r *OpenSearchAlertRepository) Insert(ctx context.Context, alert *models.Alert) (bool, error) {
	body, err := json.Marshal(alertDocument(alert))
	if err != nil {
		return false, storageError("encode alert", err)
	}

	req := opensearchapi.IndexRequest{
		Index: r.index,
		Body:  bytes.NewReader(body),
	}
	if key := alert.Key(); key.Complete() {
		req.DocumentID = documentID(key)
		req.OpType = "create"
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return false, storageError("insert alert", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		return false, nil
	}
	if res.IsError() {
		return false, storageError("insert alert", fmt.Errorf("opensearch returned %s: %s", res.Status(), readBody(res.Body)))
	}
	return true, nil
}

// Count returns the number of alert documents.
func (r *OpenSearchAlertRepository) Count(ctx context.Context) (int64, error) {
	res, err := opensearchapi.CountRequest{Index: []string{r.index}}.Do(ctx, r.client)
	if err != nil {
		return 0, storageError("count alerts", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, storageError("count alerts", fmt.Errorf("opensearch returned %s", res.Status()))
	}

	var out struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, storageError("count alerts", err)
	}
	return out.Count, nil
}

// Ping checks the cluster answers.
func (r *OpenSearchAlertRepository) Ping(ctx context.Context) error {
	res, err := opensearchapi.InfoRequest{}.Do(ctx, r.client)
	if err != nil {
		return storageError("ping", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return storageError("ping", fmt.Errorf("opensearch returned %s", res.Status()))
	}
	return nil
}

func (r *OpenSearchAlertRepository) Close() error { return nil }

func documentID(key models.DedupKey) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{key.SignatureID, key.Timestamp, key.SrcIP, key.DstIP}, "\x00")))
	return hex.EncodeToString(sum[:])
}

func alertDocument(a *models.Alert) map[string]any {
	doc := map[string]any{
		"alert_id":          a.AlertID,
		"timestamp":         a.Timestamp,
		"src_ip":            a.SrcIP,
		"dst_ip":            a.DstIP,
		"src_port":          a.SrcPort,
		"dst_port":          a.DstPort,
		"incident_group_id": a.IncidentGroupID,
		"created_at":        a.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if len(a.RawJSON) > 0 {
		doc["raw_json"] = a.RawJSON
	}
	return doc
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(b)
}
