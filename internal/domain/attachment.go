package domain

import (
	"context"
	"io"
	"time"
)

// Attachment is a file stored alongside an activity.
type Attachment struct {
	ID          string
	ProjectID   string
	ActivityID  string
	Filename    string
	ObjectKey   string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// Upload is a validated file ready to be stored.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ObjectStore keeps attachment bytes.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	URL(ctx context.Context, key, filename string) (string, error)
}

// AttachmentView pairs an attachment with a download URL.
type AttachmentView struct {
	Attachment
	URL string
}
