package backend

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrEmptyIn is returned when an in.() filter is built with no values.
// PostgREST treats "in.()" as a meaningless filter, so such queries never leave the client.
var ErrEmptyIn = errors.New("in filter requires at least one value")

// Query describes a filtered request against a single resource.
type Query struct {
	resource string
	values   url.Values
	err      error
}

// From starts a query against resource.
func From(resource string) *Query {
	return &Query{resource: resource, values: url.Values{}}
}

func (q *Query) Resource() string { return q.resource }

// Select sets the projection, including embedded relations like "*,jobs(*)".
func (q *Query) Select(columns string) *Query {
	q.values.Set("select", columns)
	return q
}

func (q *Query) Eq(column, value string) *Query {
	q.values.Add(column, "eq."+value)
	return q
}

// ILike adds a case-insensitive substring filter.
func (q *Query) ILike(column, substr string) *Query {
	q.values.Add(column, "ilike."+likePattern(substr))
	return q
}

// In adds a batch lookup filter. Empty values poison the query with ErrEmptyIn.
func (q *Query) In(column string, values []string) *Query {
	if len(values) == 0 {
		q.err = fmt.Errorf("%s: %w", column, ErrEmptyIn)
		return q
	}
	q.values.Add(column, "in.("+strings.Join(quoteAll(values), ",")+")")
	return q
}

// Or adds a disjunction of conditions built with ILikeCond.
func (q *Query) Or(conditions ...string) *Query {
	if len(conditions) == 0 {
		return q
	}
	q.values.Add("or", "("+strings.Join(conditions, ",")+")")
	return q
}

func (q *Query) Order(column string, desc bool) *Query {
	direction := "asc"
	if desc {
		direction = "desc"
	}
	q.values.Set("order", column+"."+direction)
	return q
}

func (q *Query) Limit(n int) *Query {
	if n > 0 {
		q.values.Set("limit", strconv.Itoa(n))
	}
	return q
}

// OnConflict names the unique constraint columns used for upserts.
func (q *Query) OnConflict(columns ...string) *Query {
	if len(columns) > 0 {
		q.values.Set("on_conflict", strings.Join(columns, ","))
	}
	return q
}

// Values returns the encoded filters or the first build error.
func (q *Query) Values() (url.Values, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.values, nil
}

// Get returns the raw filter value for column, mostly useful in tests.
func (q *Query) Get(column string) string {
	return q.values.Get(column)
}

func (q *Query) String() string {
	if q.err != nil {
		return q.resource + "?<invalid: " + q.err.Error() + ">"
	}
	return q.resource + "?" + q.values.Encode()
}

// ILikeCond renders a condition usable inside Or.
func ILikeCond(column, substr string) string {
	return column + ".ilike." + likePattern(substr)
}

func likePattern(s string) string {
	// Reserved characters of the or=() grammar would split the condition.
	s = strings.NewReplacer(",", " ", "(", " ", ")", " ").Replace(s)
	return "*" + strings.TrimSpace(s) + "*"
}

func quoteAll(values []string) []string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		if strings.ContainsAny(v, ",()\" ") {
			v = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
		}
		quoted = append(quoted, v)
	}
	return quoted
}
