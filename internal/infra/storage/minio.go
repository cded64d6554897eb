package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	EndpointURL() *url.URL
}

// Store archives analyzed screenshots in a MinIO bucket.
type Store struct {
	client     objectPutter
	bucketName string
	secure     bool
}

// New connects to MinIO and makes sure the bucket exists.
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, secure: useSSL}, nil
}

// PutImage uploads the image under key (an extension is added from the
// MIME type) and returns its object URL.
func (s *Store) PutImage(ctx context.Context, key string, img analysis.InlineImage) (string, error) {
	contentType := img.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key = key + extensionFor(contentType)

	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(img.Data), int64(len(img.Data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put image %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

// objectURL is the public URL; private buckets need a presigned URL instead.
func (s *Store) objectURL(key string) string {
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, s.client.EndpointURL().Host, path.Join(s.bucketName, key))
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
