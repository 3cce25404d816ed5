package service

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"net/http"
	"os"

	"zeroai/internal/models"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

const sniffLen = 512

var allowedImageMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// spooledImage is an upload copied to a temp file so it can be read once per external call.
type spooledImage struct {
	file        *os.File
	size        int64
	contentType string
}

// spoolImage copies r into a temp file under dir and checks it is a decodable image of at most maxBytes.
// On error nothing is left on disk.
func spoolImage(dir string, r io.Reader, maxBytes int64) (_ *spooledImage, err error) {
	if r == nil {
		return nil, models.NewValidationError("No image uploaded")
	}

	f, err := os.CreateTemp(dir, "zeroai-upload-*")
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("create spool file: %w", err))
	}
	s := &spooledImage{file: f}
	defer func() {
		if err != nil {
			_ = s.Release()
		}
	}()

	n, err := io.Copy(f, io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded image")
	}
	if n == 0 {
		return nil, models.NewValidationError("No image uploaded")
	}
	if n > maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", maxBytes/(1024*1024)))
	}
	s.size = n

	if err := s.Rewind(); err != nil {
		return nil, models.NewInternalError(err)
	}
	head := make([]byte, sniffLen)
	hn, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, models.NewInternalError(err)
	}
	detected := http.DetectContentType(head[:hn])
	if _, ok := allowedImageMIME[detected]; !ok {
		return nil, models.NewValidationError("Invalid image type")
	}
	s.contentType = detected

	if err := s.Rewind(); err != nil {
		return nil, models.NewInternalError(err)
	}
	if _, _, err := image.DecodeConfig(f); err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	if err := s.Rewind(); err != nil {
		return nil, models.NewInternalError(err)
	}
	return s, nil
}

// Rewind seeks to the start of the spooled bytes.
func (s *spooledImage) Rewind() error {
	_, err := s.file.Seek(0, io.SeekStart)
	return err
}

// Reader returns an independent view of the spooled bytes. Callers cannot close the
// underlying file; only Release does.
func (s *spooledImage) Reader() *io.SectionReader {
	return io.NewSectionReader(s.file, 0, s.size)
}

// Extension returns the file extension matching the sniffed type.
func (s *spooledImage) Extension() string {
	return allowedImageMIME[s.contentType]
}

// Path returns the temp file location.
func (s *spooledImage) Path() string {
	return s.file.Name()
}

// Release closes and removes the temp file.
func (s *spooledImage) Release() error {
	closeErr := s.file.Close()
	if err := os.Remove(s.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return closeErr
}
