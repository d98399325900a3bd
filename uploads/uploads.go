// Package uploads stores evidence photos and response proof in object storage.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	// MaxIssueImages is the number of photos a citizen may attach to an issue.
	MaxIssueImages = 5
	// MaxFileSize bounds a single upload.
	MaxFileSize = 10 << 20
)

var (
	ErrTooManyFiles = errors.New("too many files")
	ErrNotAnImage   = errors.New("only image uploads are allowed")
	ErrFileTooLarge = errors.New("file too large")
	ErrNoBucket     = errors.New("UPLOAD_BUCKET is not configured")
)

// Uploader writes an object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error)
}

// GCSUploader stores objects in a Google Cloud Storage bucket.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

// NewGCSUploader creates a client using application default credentials.
func NewGCSUploader(ctx context.Context, bucket string) (*GCSUploader, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSUploader{client: client, bucket: bucket}, nil
}

// Upload implements Uploader.
func (u *GCSUploader) Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", objectName, err)
	}
	return PublicURL(u.bucket, objectName), nil
}

// Close releases the storage client.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}

// PublicURL is the download URL of an object in a public bucket.
func PublicURL(bucket, objectName string) string {
	segments := strings.Split(objectName, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "https://storage.googleapis.com/" + bucket + "/" + strings.Join(segments, "/")
}

// ObjectName builds "<prefix>/<owner>/<unix ms>_<short id>_<file name>".
func ObjectName(prefix, owner, filename string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		base = "file"
	}
	base = strings.ReplaceAll(base, " ", "_")
	short := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s/%s/%d_%s_%s", prefix, owner, now.UnixMilli(), short, base)
}

// SaveImages validates and uploads multipart images under prefix/owner and
// returns their URLs in upload order. Nothing is uploaded if validation of
// any file fails.
func SaveImages(ctx context.Context, up Uploader, prefix, owner string, files []*multipart.FileHeader, limit int) ([]string, error) {
	if limit > 0 && len(files) > limit {
		return nil, fmt.Errorf("%w: at most %d allowed", ErrTooManyFiles, limit)
	}

	type pending struct {
		name, contentType string
		data              []byte
	}
	var batch []pending
	for _, fh := range files {
		if fh.Size > MaxFileSize {
			return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, fh.Filename)
		}
		data, err := readAll(fh)
		if err != nil {
			return nil, err
		}
		mt := mimetype.Detect(data)
		if !strings.HasPrefix(mt.String(), "image/") {
			return nil, fmt.Errorf("%w: %s is %s", ErrNotAnImage, fh.Filename, mt.String())
		}
		batch = append(batch, pending{name: fh.Filename, contentType: mt.String(), data: data})
	}

	urls := make([]string, 0, len(batch))
	for _, p := range batch {
		u, err := up.Upload(ctx, ObjectName(prefix, owner, p.name, time.Now()), p.contentType, bytes.NewReader(p.data))
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxFileSize+1))
}
