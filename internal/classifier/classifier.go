// Package classifier scores images as AI-generated or human-made through a remote detection model.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"zeroai/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// ErrMalformedResponse is returned when the model answered but its scores could not be read.
var ErrMalformedResponse = errors.New("classifier: malformed response")

// Scores are the model's confidences, each in [0,1].
type Scores struct {
	AI    float64 `json:"ai"`
	Human float64 `json:"human"`
}

// IsAI reports whether the image is rejected: strictly more AI than human.
func (s Scores) IsAI() bool {
	return s.AI > s.Human
}

// Classifier scores an image.
type Classifier interface {
	Classify(ctx context.Context, image io.Reader, contentType string) (Scores, error)
}

// HTTPClient calls a hosted detection model that accepts raw image bytes.
type HTTPClient struct {
	url   string
	token string
	http  *http.Client
}

// NewHTTPClient creates a classifier for endpoint. Each call is bounded by timeout.
func NewHTTPClient(endpoint, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		url:   endpoint,
		token: token,
		http:  &http.Client{Timeout: timeout},
	}
}

// Classify posts the image and parses the model's scores.
func (c *HTTPClient) Classify(ctx context.Context, image io.Reader, contentType string) (scores Scores, err error) {
	ctx, span := observability.StartClientSpan(ctx, "classifier.Classify",
		attribute.String("peer.service", "classifier"),
	)
	defer func() { observability.EndSpan(span, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, image)
	if err != nil {
		return Scores{}, fmt.Errorf("classifier: build request: %w", err)
	}
	if sized, ok := image.(interface{ Size() int64 }); ok {
		req.ContentLength = sized.Size()
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Scores{}, fmt.Errorf("classifier: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Scores{}, fmt.Errorf("classifier: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Scores{}, fmt.Errorf("classifier: unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	scores, err = ParseScores(body)
	if err != nil {
		return Scores{}, err
	}
	span.SetAttributes(
		attribute.Float64("classifier.ai", scores.AI),
		attribute.Float64("classifier.human", scores.Human),
	)
	return scores, nil
}

type labelScore struct {
	Label      string   `json:"label"`
	Score      *float64 `json:"score"`
	Confidence *float64 `json:"confidence"`
}

// ParseScores accepts either a score map ({"ai": x, "hum"|"human": y}) or a
// label list ([{"label": "...", "score": x}, ...]), optionally wrapped in
// {"confidences": [...]}.
func ParseScores(body []byte) (Scores, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Scores{}, ErrMalformedResponse
	}

	var (
		s   Scores
		err error
	)
	switch trimmed[0] {
	case '{':
		s, err = parseObject(trimmed)
	case '[':
		s, err = parseLabels(trimmed)
	default:
		err = ErrMalformedResponse
	}
	if err != nil {
		return Scores{}, err
	}

	if !inUnitRange(s.AI) || !inUnitRange(s.Human) || (s.AI == 0 && s.Human == 0) {
		return Scores{}, fmt.Errorf("%w: scores out of range (ai=%v, human=%v)", ErrMalformedResponse, s.AI, s.Human)
	}
	return s, nil
}

func parseObject(body []byte) (Scores, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Scores{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if conf, ok := raw["confidences"]; ok {
		return parseLabels(conf)
	}

	var s Scores
	aiRaw, okAI := raw["ai"]
	humRaw, okHum := raw["hum"]
	if !okHum {
		humRaw, okHum = raw["human"]
	}
	if !okAI || !okHum {
		return Scores{}, fmt.Errorf("%w: missing ai/human keys", ErrMalformedResponse)
	}
	if err := json.Unmarshal(aiRaw, &s.AI); err != nil {
		return Scores{}, fmt.Errorf("%w: ai: %v", ErrMalformedResponse, err)
	}
	if err := json.Unmarshal(humRaw, &s.Human); err != nil {
		return Scores{}, fmt.Errorf("%w: human: %v", ErrMalformedResponse, err)
	}
	return s, nil
}

func parseLabels(body []byte) (Scores, error) {
	var labels []labelScore
	if err := json.Unmarshal(body, &labels); err != nil {
		// Some hosted pipelines nest the list once more.
		var nested [][]labelScore
		if nestedErr := json.Unmarshal(body, &nested); nestedErr != nil || len(nested) == 0 {
			return Scores{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		labels = nested[0]
	}

	var s Scores
	var foundAI, foundHuman bool
	for _, l := range labels {
		v := l.Score
		if v == nil {
			v = l.Confidence
		}
		if v == nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(l.Label)) {
		case "ai", "artificial", "fake", "ai-generated":
			s.AI, foundAI = *v, true
		case "hum", "human", "real":
			s.Human, foundHuman = *v, true
		}
	}
	if !foundAI || !foundHuman {
		return Scores{}, fmt.Errorf("%w: missing ai/human labels", ErrMalformedResponse)
	}
	return s, nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
