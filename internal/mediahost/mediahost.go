// Package mediahost uploads accepted images to a CDN and returns their durable URL.
package mediahost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"zeroai/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// ErrMissingURL is returned when the host accepted the upload but returned no URL.
var ErrMissingURL = errors.New("mediahost: response has no secure_url")

// Upload is a hosted asset.
type Upload struct {
	URL      string `json:"secure_url"`
	PublicID string `json:"public_id,omitempty"`
}

// Host stores image bytes.
type Host interface {
	Upload(ctx context.Context, image io.Reader, filename string) (Upload, error)
}

// CloudinaryClient performs unsigned uploads with a fixed upload preset.
type CloudinaryClient struct {
	url    string
	preset string
	http   *http.Client
}

// NewCloudinaryClient creates a client for uploadURL. Each upload is bounded by timeout.
func NewCloudinaryClient(uploadURL, preset string, timeout time.Duration) *CloudinaryClient {
	return &CloudinaryClient{
		url:    uploadURL,
		preset: preset,
		http:   &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload streams image as the multipart "file" field next to "upload_preset".
func (c *CloudinaryClient) Upload(ctx context.Context, image io.Reader, filename string) (up Upload, err error) {
	ctx, span := observability.StartClientSpan(ctx, "mediahost.Upload",
		attribute.String("peer.service", "mediahost"),
	)
	defer func() { observability.EndSpan(span, err) }()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, image, filename, c.preset))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, pr)
	if err != nil {
		_ = pr.Close()
		return Upload{}, fmt.Errorf("mediahost: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return Upload{}, fmt.Errorf("mediahost: request failed: %w", err)
	}
	defer resp.Body.Close()

	var body uploadResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && body.Error != nil && body.Error.Message != "" {
			msg = body.Error.Message
		}
		return Upload{}, fmt.Errorf("mediahost: unexpected status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return Upload{}, fmt.Errorf("mediahost: decode response: %w", decodeErr)
	}
	if body.SecureURL == "" {
		return Upload{}, ErrMissingURL
	}

	span.SetAttributes(attribute.String("mediahost.public_id", body.PublicID))
	return Upload{URL: body.SecureURL, PublicID: body.PublicID}, nil
}

func writeForm(mw *multipart.Writer, image io.Reader, filename, preset string) error {
	if err := mw.WriteField("upload_preset", preset); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, image); err != nil {
		return err
	}
	return mw.Close()
}
