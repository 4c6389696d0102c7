package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// CloudStorageClient uploads avatar and message photos to GCS.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// UploadFile stores the content under folder and returns its public
// URL. Object names carry a uuid plus timestamp so uploads never
// collide.
func (c *CloudStorageClient) UploadFile(ctx context.Context, file io.Reader, contentType, folder string) (string, error) {
	objectName := fmt.Sprintf("%s/%s-%s%s",
		folder,
		uuid.New().String(),
		time.Now().Format("20060102150405"),
		extensionFor(contentType),
	)

	obj := c.client.Bucket(c.bucketName).Object(objectName)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(wc, file); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object: %w", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("failed to set object ACL: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, objectName), nil
}

// DeleteFile removes the object a previously returned URL points at.
func (c *CloudStorageClient) DeleteFile(ctx context.Context, fileURL string) error {
	const prefix = "https://storage.googleapis.com/"
	if !strings.HasPrefix(fileURL, prefix) {
		return fmt.Errorf("not a GCS object URL")
	}

	parts := strings.SplitN(fileURL[len(prefix):], "/", 2)
	if len(parts) != 2 || parts[0] != c.bucketName {
		return fmt.Errorf("URL does not belong to bucket %s", c.bucketName)
	}

	if err := c.client.Bucket(c.bucketName).Object(parts[1]).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
