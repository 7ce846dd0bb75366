package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
)

// Upload stores file under bucket/objectPath and returns its public URL.
// Existing objects with the same path are replaced.
func (c *Client) Upload(ctx context.Context, bucket, objectPath string, file io.Reader) (string, error) {
	bucket = strings.Trim(strings.TrimSpace(bucket), "/")
	objectPath = strings.Trim(strings.TrimSpace(objectPath), "/")
	if bucket == "" || objectPath == "" {
		return "", errors.New("bucket and path are required")
	}
	if file == nil {
		return "", errors.New("file is required")
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	part, err := w.CreateFormFile("file", path.Base(objectPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s%s/%s/%s", c.APIURL, storagePath, bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &b)
	if err != nil {
		return "", err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("x-upsert", "true")

	if err := c.do(req, nil); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, objectPath, err)
	}

	return c.PublicURL(bucket, objectPath), nil
}

// PublicURL follows the {bucket}/public/{path} convention of the storage service.
func (c *Client) PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("%s%s/public/%s/%s", c.APIURL, storagePath,
		strings.Trim(bucket, "/"), strings.Trim(objectPath, "/"))
}
