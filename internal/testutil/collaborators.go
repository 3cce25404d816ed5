package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"zeroai/internal/classifier"
	"zeroai/internal/mediahost"
)

// ClassifierStub returns fixed scores or an error and records what it received.
type ClassifierStub struct {
	mu     sync.Mutex
	Scores classifier.Scores
	Err    error
	Calls  int
	Bodies [][]byte
}

// Classify records the payload and returns the configured result.
func (c *ClassifierStub) Classify(_ context.Context, r io.Reader, _ string) (classifier.Scores, error) {
	body, err := io.ReadAll(r)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	c.Bodies = append(c.Bodies, body)
	if err != nil {
		return classifier.Scores{}, err
	}
	if c.Err != nil {
		return classifier.Scores{}, c.Err
	}
	return c.Scores, nil
}

// CallCount returns the number of Classify calls.
func (c *ClassifierStub) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls
}

// MediaHostStub returns a fixed URL or an error and records uploads.
type MediaHostStub struct {
	mu        sync.Mutex
	URL       string
	Err       error
	Calls     int
	Bodies    [][]byte
	Filenames []string
}

// Upload records the payload and returns the configured result.
func (h *MediaHostStub) Upload(_ context.Context, r io.Reader, filename string) (mediahost.Upload, error) {
	body, err := io.ReadAll(r)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Calls++
	h.Bodies = append(h.Bodies, body)
	h.Filenames = append(h.Filenames, filename)
	if err != nil {
		return mediahost.Upload{}, err
	}
	if h.Err != nil {
		return mediahost.Upload{}, h.Err
	}
	return mediahost.Upload{URL: h.URL}, nil
}

// CallCount returns the number of Upload calls.
func (h *MediaHostStub) CallCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Calls
}

// TinyPNG returns a valid 2x2 PNG image.
func TinyPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
