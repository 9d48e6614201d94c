package report

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/chmdznr/bulk-renamer/internal/config"
)

// Uploader stores run reports in an S3-compatible bucket
type Uploader struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewUploader creates a MinIO client for cfg
func NewUploader(cfg config.S3Config) (*Uploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 endpoint and bucket are required")
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	opts := minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.Secure,
		Transport:    tr,
		Region:       "auto",
		BucketLookup: minio.BucketLookupAuto,
	}

	client, err := minio.New(cfg.Endpoint, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %v", err)
	}

	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ObjectKey names the report object for a document generated at t
func ObjectKey(prefix string, t time.Time) string {
	return prefix + "bulkrename-" + t.UTC().Format("20060102T150405Z") + ".json"
}

// Upload stores doc and returns the object key it was written to
func (u *Uploader) Upload(ctx context.Context, doc Document) (string, error) {
	b, err := doc.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	key := ObjectKey(u.prefix, doc.GeneratedAt)
	_, err = u.client.PutObject(
		ctx,
		u.bucket,
		key,
		bytes.NewReader(b),
		int64(len(b)),
		minio.PutObjectOptions{
			ContentType: "application/json",
			UserMetadata: map[string]string{
				"dry-run": fmt.Sprintf("%t", doc.DryRun),
				"runs":    fmt.Sprintf("%d", len(doc.Runs)),
			},
		},
	)
	if err != nil {
		if minioErr, ok := err.(minio.ErrorResponse); ok {
			return "", fmt.Errorf("failed to upload report %s/%s: %s: %s", u.bucket, key, minioErr.Code, minioErr.Message)
		}
		return "", fmt.Errorf("failed to upload report %s/%s: %v", u.bucket, key, err)
	}
	return key, nil
}
