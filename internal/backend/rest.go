package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// timeLayouts are tried in order. Columns without a time zone carry no offset and are read as UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

const (
	preferRepresentation = "return=representation"
	preferMergeDupes     = "resolution=merge-duplicates"
)

// Select fetches rows matching q and decodes them into target (a pointer to a slice).
func (c *Client) Select(ctx context.Context, q *Query, target any) error {
	items, err := c.GetItems(ctx, q)
	if err != nil {
		return err
	}

	if err := Decode(items, target); err != nil {
		return fmt.Errorf("decode %s rows: %w", q.Resource(), err)
	}

	return nil
}

// Insert creates row in resource. Created rows are decoded into target when it is not nil.
func (c *Client) Insert(ctx context.Context, resource string, row any, target any) error {
	return c.mutate(ctx, http.MethodPost, From(resource), row, []string{preferRepresentation}, target)
}

// Upsert inserts row or merges it into the existing row with the same onConflict key.
func (c *Client) Upsert(ctx context.Context, resource string, row any, onConflict []string, target any) error {
	q := From(resource).OnConflict(onConflict...)
	return c.mutate(ctx, http.MethodPost, q, row, []string{preferMergeDupes, preferRepresentation}, target)
}

// Update patches every row matching q.
func (c *Client) Update(ctx context.Context, q *Query, patch any, target any) error {
	return c.mutate(ctx, http.MethodPatch, q, patch, []string{preferRepresentation}, target)
}

// Delete removes every row matching q.
func (c *Client) Delete(ctx context.Context, q *Query) error {
	return c.mutate(ctx, http.MethodDelete, q, nil, nil, nil)
}

func (c *Client) mutate(ctx context.Context, method string, q *Query, body any, prefer []string, target any) error {
	values, err := q.Values()
	if err != nil {
		return err
	}

	if method != http.MethodPost && !hasFilter(values) {
		return fmt.Errorf("%s %s: refusing to run without filters", method, q.Resource())
	}

	req, err := c.newRequest(ctx, method, c.restURL(q.Resource()), values, body)
	if err != nil {
		return err
	}
	if len(prefer) > 0 {
		req.Header.Set("Prefer", strings.Join(prefer, ","))
	}

	var items []Item
	var out any
	if target != nil {
		out = &items
	}

	if err := c.do(req, out); err != nil {
		return fmt.Errorf("%s %s: %w", strings.ToLower(method), q.Resource(), err)
	}

	if target == nil {
		return nil
	}

	if err := Decode(items, target); err != nil {
		return fmt.Errorf("decode %s rows: %w", q.Resource(), err)
	}

	return nil
}

func hasFilter(values url.Values) bool {
	for key := range values {
		switch key {
		case "select", "order", "limit", "on_conflict":
			continue
		default:
			return true
		}
	}
	return false
}

// Decode converts raw rows into typed values using their json tags.
func Decode(input any, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   target,
		TagName:  "json",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToTimeHook,
		),
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

func stringToTimeHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t != reflect.TypeOf(time.Time{}) {
		return data, nil
	}

	return parseTime(data.(string))
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	var firstErr error
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			return parsed, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	return time.Time{}, firstErr
}
