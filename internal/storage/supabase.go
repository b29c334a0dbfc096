package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseBucket talks to a Supabase Storage API (or any server speaking the
// same /storage/v1/object routes).
type SupabaseBucket struct {
	baseURL    string
	serviceKey string
	name       string
	client     *http.Client
	logger     *slog.Logger
}

// Error is a non-2xx response from the storage API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: HTTP %d: %s", e.StatusCode, e.Message)
}

func NewSupabaseBucket(baseURL, serviceKey, name string, logger *slog.Logger) *SupabaseBucket {
	if logger == nil {
		logger = slog.Default()
	}
	return &SupabaseBucket{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		name:       name,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func (b *SupabaseBucket) objectURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", b.baseURL, url.PathEscape(b.name), escapeKey(key))
}

func (b *SupabaseBucket) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	if key == "" {
		return ErrInvalidKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.objectURL(key), r)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	return b.do(req)
}

func (b *SupabaseBucket) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", b.baseURL, url.PathEscape(b.name), escapeKey(key))
}

func (b *SupabaseBucket) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.objectURL(key), nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.serviceKey)

	err = b.do(req)
	var se *Error
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return ErrObjectNotFound
	}
	return err
}

func (b *SupabaseBucket) do(req *http.Request) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("storage request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			b.logger.Warn("failed to close storage response body", "url", req.URL.Redacted(), "error", closeErr)
		}
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			msg = payload.Message
		} else if payload.Error != "" {
			msg = payload.Error
		}
	}
	return &Error{StatusCode: resp.StatusCode, Message: msg}
}
