package services

import (
	"context"
	"io"
	"time"
)

// ReminderTask is one pending item listed in a reminder email.
type ReminderTask struct {
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// Mailer delivers client notifications. A successful send returns a non-empty message id.
type Mailer interface {
	SendReminder(ctx context.Context, to, clientName, projectName string, tasks []ReminderTask, portalToken string) (string, error)
	SendInvite(ctx context.Context, to, clientName, projectName string, communityName *string, portalToken string) (string, error)
}

// BlobInfo describes a stored object.
type BlobInfo struct {
	Size        int64
	ContentType string
}

// BlobStore holds uploaded file bytes in a single configured bucket.
type BlobStore interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
	Download(ctx context.Context, path string) (io.ReadCloser, BlobInfo, error)
}

// Deduper grants a key at most once per window.
type Deduper interface {
	AcquireOnce(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
}
