// Package processing wraps the external diagnostics endpoint. Each queued
// file is posted once; the endpoint returns a summary the queue stores
// verbatim. Failures are converted to UploadError and never panic.
package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/fin-diagnostics/backend/internal/models"
)

// HTTPDoer describes the HTTP client used by the adapter.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UploadError is the adapter-boundary failure type: transport errors, server
// rejections and malformed responses all surface as one of these.
type UploadError struct {
	Message string
	Details string
}

func (e *UploadError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Details)
}

// Client posts files to the diagnostics endpoint.
type Client struct {
	endpoint string
	client   HTTPDoer
}

// NewClient creates an adapter for the given endpoint URL.
func NewClient(endpoint string, client HTTPDoer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		client:   client,
	}
}

// resultPayload is the wire shape of the endpoint's success response. Fields
// beyond the two the views render are kept as-is in Extra.
type resultPayload struct {
	RowCount     int                    `json:"rowCount"`
	AnomalyCount int                    `json:"anomalyCount"`
	Extra        map[string]interface{} `json:"extra"`
}

// Process uploads one file and returns its diagnostic summary. Progress is
// reported as the request body is consumed by the transport; when the body is
// small enough to be buffered by the client this degrades to a coarse 0→100.
func (c *Client) Process(ctx context.Context, item models.FileItem, onProgress func(int)) (*models.ProcessingResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", item.FileName)
	if err != nil {
		return nil, &UploadError{Message: "failed to encode upload", Details: err.Error()}
	}
	if _, err := part.Write(item.Data); err != nil {
		return nil, &UploadError{Message: "failed to encode upload", Details: err.Error()}
	}
	if item.ClientID != "" {
		if err := writer.WriteField("clientId", item.ClientID); err != nil {
			return nil, &UploadError{Message: "failed to encode upload", Details: err.Error()}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &UploadError{Message: "failed to encode upload", Details: err.Error()}
	}

	reader := &progressReader{
		r:          bytes.NewReader(body.Bytes()),
		total:      int64(body.Len()),
		onProgress: onProgress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/diagnostics/analyze", reader)
	if err != nil {
		return nil, &UploadError{Message: "failed to build upload request", Details: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.ContentLength = int64(body.Len())

	resp, err := c.client.Do(req)
	if err != nil {
		// Timeouts arrive here wrapped around the context error; let the
		// caller distinguish them.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &UploadError{Message: "upload failed", Details: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UploadError{
			Message: fmt.Sprintf("diagnostics endpoint returned %d", resp.StatusCode),
			Details: strings.TrimSpace(string(detail)),
		}
	}

	var payload resultPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &UploadError{Message: "invalid response from diagnostics endpoint", Details: err.Error()}
	}

	if onProgress != nil {
		onProgress(100)
	}

	return &models.ProcessingResult{
		RowCount:     payload.RowCount,
		AnomalyCount: payload.AnomalyCount,
		Extra:        payload.Extra,
	}, nil
}

// progressReader reports how much of the request body has been read. The
// last percentage point is withheld until the response is in.
type progressReader struct {
	r          *bytes.Reader
	total      int64
	read       int64
	onProgress func(int)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.onProgress != nil && p.total > 0 {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 99 {
			pct = 99
		}
		p.onProgress(pct)
	}
	return n, err
}
