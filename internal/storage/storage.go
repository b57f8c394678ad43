// Package storage reads files from public cloud storage: S3 buckets, Google Drive and Google Sheets.
package storage

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrInvalidSource is returned for URLs that cannot be fetched or browsed.
	ErrInvalidSource = errors.New("invalid storage source")
	// ErrTooLarge is returned when a file exceeds the configured size limit.
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrNoHeader is returned for CSV files without a header row.
	ErrNoHeader = errors.New("csv has no header row")
)

const (
	defaultMaxBytes     = 20 << 20
	defaultDriveBaseURL = "https://www.googleapis.com"
	userAgent           = "annotation-hub/1.0"
)

// Options configures a Client.
type Options struct {
	MaxBytes     int64
	GoogleAPIKey string
	// S3Endpoint switches S3 access to path-style requests against a custom endpoint.
	S3Endpoint   string
	DriveBaseURL string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Client fetches and lists remote files.
type Client struct {
	http         *http.Client
	maxBytes     int64
	googleAPIKey string
	s3Endpoint   string
	driveBaseURL string
}

// NewClient creates a storage client.
func NewClient(opts Options) *Client {
	c := &Client{
		http:         opts.HTTPClient,
		maxBytes:     opts.MaxBytes,
		googleAPIKey: opts.GoogleAPIKey,
		s3Endpoint:   strings.TrimRight(opts.S3Endpoint, "/"),
		driveBaseURL: strings.TrimRight(opts.DriveBaseURL, "/"),
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.maxBytes <= 0 {
		c.maxBytes = defaultMaxBytes
	}
	if c.driveBaseURL == "" {
		c.driveBaseURL = defaultDriveBaseURL
	}
	return c
}

type accessTokenKey struct{}

// WithAccessToken attaches a caller's Drive OAuth token to ctx for Fetch.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func accessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

// Object is a downloaded file.
type Object struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"-"`
}

// Entry is one item of a bucket or folder listing.
type Entry struct {
	ID           string     `json:"id,omitempty"`
	Name         string     `json:"name"`
	Path         string     `json:"path"`
	Size         int64      `json:"size"`
	MimeType     string     `json:"mimeType,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	IsFolder     bool       `json:"isFolder"`
}
