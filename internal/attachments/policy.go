// Package attachments validates uploaded files and stores them in S3-compatible object storage.
package attachments

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"example.com/tripplanner/internal/domain"
)

// DefaultMaxBytes is the default upload size limit (10 MiB).
const DefaultMaxBytes int64 = 10 << 20

var (
	// ErrTooLarge is returned for files over the size limit.
	ErrTooLarge = fmt.Errorf("%w: file size exceeds the limit", domain.ErrValidation)
	// ErrTypeNotAllowed is returned for files whose content or extension is not accepted.
	ErrTypeNotAllowed = fmt.Errorf("%w: file type is not allowed", domain.ErrValidation)
)

// Policy decides which uploads are accepted.
type Policy struct {
	MaxBytes   int64
	Types      []string
	Extensions []string
}

// DefaultPolicy accepts JPEG, PNG and PDF files up to DefaultMaxBytes.
func DefaultPolicy() Policy {
	return Policy{
		MaxBytes:   DefaultMaxBytes,
		Types:      []string{"image/jpeg", "image/png", "application/pdf"},
		Extensions: []string{".jpg", ".jpeg", ".png", ".pdf"},
	}
}

func baseMIME(mime string) string {
	head, _, _ := strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(head))
}

// Inspect checks an upload against the policy and returns it ready for storage. The content
// type is sniffed from the bytes; the client-declared type is ignored.
func (p Policy) Inspect(filename string, size int64, body io.ReadSeeker) (domain.Upload, error) {
	if size < 0 {
		return domain.Upload{}, fmt.Errorf("%w: unknown file size", domain.ErrValidation)
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return domain.Upload{}, ErrTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if len(p.Extensions) > 0 && !slices.Contains(p.Extensions, ext) {
		return domain.Upload{}, fmt.Errorf("%w (extension %q)", ErrTypeNotAllowed, ext)
	}

	mt, err := mimetype.DetectReader(body)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("%w: failed to detect file type", domain.ErrValidation)
	}
	detected := baseMIME(mt.String())
	allowed := slices.ContainsFunc(p.Types, func(t string) bool { return baseMIME(t) == detected })
	if !allowed {
		return domain.Upload{}, fmt.Errorf("%w (detected %s)", ErrTypeNotAllowed, detected)
	}

	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return domain.Upload{}, fmt.Errorf("rewind upload: %w", err)
	}
	return domain.Upload{
		Filename:    filename,
		ContentType: detected,
		Size:        size,
		Body:        body,
	}, nil
}

// IsTooLarge reports whether err means the upload exceeded a size limit.
func IsTooLarge(err error) bool {
	return errors.Is(err, ErrTooLarge)
}
