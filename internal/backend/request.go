package backend

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/spigell/skillmatch/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
)

// Item is a single decoded JSON row.
type Item = map[string]any

// GetItems makes GET request to the rest endpoint and returns the decoded rows.
func (c *Client) GetItems(ctx context.Context, q *Query) ([]Item, error) {
	values, err := q.Values()
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.restURL(q.Resource()), values, nil)
	if err != nil {
		return nil, err
	}

	var items []Item
	if err := c.do(req, &items); err != nil {
		return nil, fmt.Errorf("get %s: %w", q.Resource(), err)
	}

	c.logger.Debug("got rows from backend", zap.String("resource", q.Resource()), zap.Int("rows", len(items)))

	return items, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, q url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	return req, nil
}

// do sends req and decodes a 2xx JSON body into target. Other statuses become *APIError.
func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, data)
		c.logger.Debug("backend returned error",
			zap.String("url", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", utils.TruncateForLog(string(data), c.MaxLogLen)),
		)
		return apiErr
	}

	if target == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("apikey", c.apiKey)
	if bearer := c.bearer(); bearer != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}
