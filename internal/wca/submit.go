package wca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const maxResponseSize = 16 * 1024 * 1024

// Submit posts an encoded prompt envelope and optional attachments and
// returns the generated text. It does not retry: any failure, including a
// reply without text at ContentPath, is returned as is.
func (c *Client) Submit(parentCtx context.Context, payload string, attachments []string) (string, error) {
	start := time.Now()
	requestID := uuid.NewString()
	logger := c.logger.With(zap.String("wca_request_id", requestID))

	files, err := c.loadAttachments(attachments)
	if err != nil {
		return "", err
	}

	body, contentType, err := buildForm(payload, files)
	if err != nil {
		return "", err
	}

	logger.Debug("wca request starting",
		zap.Int("payload_bytes", len(payload)),
		zap.Int("attachments", len(files)),
	)

	ctx, cancel := context.WithTimeout(parentCtx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("wca: build HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set(headerOrigin, originValue)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("wca request failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return "", fmt.Errorf("wca: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("wca: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("wca upstream error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(raw), 200)),
			zap.Duration("duration", time.Since(start)),
		)
		return "", &StatusError{Endpoint: "generation", StatusCode: resp.StatusCode, Body: truncate(string(raw), 200)}
	}

	content, err := extractContent(raw)
	if err != nil {
		logger.Error("wca response malformed",
			zap.Error(err),
			zap.String("body", truncate(string(raw), 200)),
		)
		return "", err
	}

	logger.Info("wca request completed",
		zap.Int("content_bytes", len(content)),
		zap.Duration("duration", time.Since(start)),
	)
	return content, nil
}

func extractContent(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("wca: decode upstream response: invalid JSON")
	}
	v := gjson.GetBytes(raw, ContentPath)
	if !v.Exists() || v.Type != gjson.String {
		return "", ErrMissingContent
	}
	return v.Str, nil
}

// buildForm lays out the multipart body: the "message" field holds the
// payload as a JSON string, each attachment follows as a "files" part.
func buildForm(payload string, files []attachment) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	msg, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("wca: marshal payload: %w", err)
	}
	if err := w.WriteField(formFieldMessage, string(msg)); err != nil {
		return nil, "", fmt.Errorf("wca: write message field: %w", err)
	}

	for _, f := range files {
		part, err := w.CreatePart(f.header())
		if err != nil {
			return nil, "", fmt.Errorf("wca: create file part %s: %w", f.name, err)
		}
		if _, err := part.Write(f.encoded); err != nil {
			return nil, "", fmt.Errorf("wca: write file part %s: %w", f.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("wca: close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// truncate limits string length for logging
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
