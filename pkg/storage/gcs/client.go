// Package gcs deletes and probes objects in the Firebase Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	fb "firebase.google.com/go/v4"

	"github.com/netaconnect/billing-backend/pkg/logger"
)

var errClientNotInitialized = errors.New("storage client not initialized")

// bucketAPI is the slice of the bucket handle this package uses.
type bucketAPI interface {
	Name() string
	DeleteObject(ctx context.Context, object string) error
	Attrs(ctx context.Context) error
}

type bucketHandle struct {
	h *storage.BucketHandle
}

func (b bucketHandle) Name() string { return b.h.BucketName() }

func (b bucketHandle) DeleteObject(ctx context.Context, object string) error {
	return b.h.Object(object).Delete(ctx)
}

func (b bucketHandle) Attrs(ctx context.Context) error {
	_, err := b.h.Attrs(ctx)
	return err
}

type Client struct {
	bucket bucketAPI
	logg   *logger.Logger
}

type Pinger interface {
	Ping(context.Context) error
}

// NewClient binds to the app's default storage bucket.
func NewClient(ctx context.Context, app *fb.App, logg *logger.Logger) (*Client, error) {
	sc, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	handle, err := sc.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("resolving default bucket: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "storage client initialized")
	}
	return &Client{bucket: bucketHandle{h: handle}, logg: logg}, nil
}

// Bucket returns the bound bucket name.
func (c *Client) Bucket() string {
	if c == nil || c.bucket == nil {
		return ""
	}
	return c.bucket.Name()
}

// DeleteObject removes an object. A missing object counts as deleted.
func (c *Client) DeleteObject(ctx context.Context, path string) error {
	if c == nil || c.bucket == nil {
		return errClientNotInitialized
	}
	object := ObjectName(path, c.bucket.Name())
	if object == "" {
		return fmt.Errorf("invalid storage path %q", path)
	}
	err := c.bucket.DeleteObject(ctx, object)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return fmt.Errorf("deleting %s: %w", object, err)
}

// Ping verifies the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.bucket == nil {
		return errClientNotInitialized
	}
	return c.bucket.Attrs(ctx)
}

// ObjectName normalizes a queued storage path into an object name. Paths may
// be bare object names or gs:// URLs for the bound bucket.
func ObjectName(path, bucket string) string {
	p := strings.TrimSpace(path)
	if rest, ok := strings.CutPrefix(p, "gs://"); ok {
		name, object, found := strings.Cut(rest, "/")
		if !found || (bucket != "" && name != bucket) {
			return ""
		}
		p = object
	}
	return strings.TrimLeft(p, "/")
}
