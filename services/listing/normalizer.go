// Package listing turns whatever envelope the institute API returns for a
// collection into one stable page shape, then applies the client-side
// filters and sort every list screen uses.
package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eduadmin_go/utils"

	"github.com/sirupsen/logrus"
)

// Record is implemented by every entity that can be listed.
type Record interface {
	Field(name string) string
	CreatedTime() time.Time
}

// Envelope declares where a collection lives in an API response.
// ItemsKey is the entity-specific array property ("students", "courses").
// TotalKeys are checked, in order, before the generic "total" and "count".
type Envelope struct {
	ItemsKey  string
	TotalKeys []string
}

// Outcome separates a failed fetch from a fetch that found nothing.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeEmpty  Outcome = "empty"
	OutcomeFailed Outcome = "failed"
)

// Query describes one page request.
type Query struct {
	Page     int
	PageSize int
	// Params are forwarded to the API as query parameters.
	Params  url.Values
	Filters []Filter
	Sort    SortKey
}

// Page is the normalized result of a listing fetch.
type Page[T any] struct {
	Items      []T     `json:"items"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalCount int     `json:"totalCount"`
	TotalPages int     `json:"totalPages"`
	Outcome    Outcome `json:"outcome"`
	Err        error   `json:"-"`
}

// Pager returns the pagination state for this page.
func (p Page[T]) Pager() Pager {
	return Pager{Page: p.Page, PageSize: p.PageSize, TotalCount: p.TotalCount, DeclaredPages: p.TotalPages}
}

// Fetcher returns the raw API body for a page. It returns an error only for
// transport failures; "no results" is a successful, empty body.
type Fetcher func(ctx context.Context, q Query) ([]byte, error)

// Getter is the read half of the API client.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// FromAPI builds a Fetcher that GETs path with page/limit parameters.
func FromAPI(api Getter, path string) Fetcher {
	return func(ctx context.Context, q Query) ([]byte, error) {
		params := url.Values{}
		for k, vs := range q.Params {
			for _, v := range vs {
				params.Add(k, v)
			}
		}
		params.Set("page", strconv.Itoa(q.Page))
		params.Set("limit", strconv.Itoa(q.PageSize))
		return api.Get(ctx, path, params)
	}
}

// FetchPage fetches, normalizes, filters and sorts one page.
//
// A failing fetcher never propagates: the result is the empty page shape with
// Outcome set to OutcomeFailed and Err holding the cause, so callers can tell
// an outage apart from an empty collection.
func FetchPage[T Record](ctx context.Context, fetch Fetcher, env Envelope, q Query) Page[T] {
	q = q.normalized()
	raw, err := fetch(ctx, q)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"items_key": env.ItemsKey,
			"page":      q.Page,
		}).WithError(err).Warn("listing fetch failed")
		return failedPage[T](q, err)
	}
	page, err := Normalize[T](raw, env, q)
	if err != nil {
		logrus.WithField("items_key", env.ItemsKey).WithError(err).Warn("listing response undecodable")
		return failedPage[T](q, err)
	}
	return page
}

// FetchAll walks every page from q.Page onwards and returns the combined
// items. It stops at the declared last page or the first empty page, and
// returns the cause of the first failed page.
func FetchAll[T Record](ctx context.Context, fetch Fetcher, env Envelope, q Query) ([]T, error) {
	q = q.normalized()
	var items []T
	for {
		page := FetchPage[T](ctx, fetch, env, q)
		if page.Outcome == OutcomeFailed {
			return nil, page.Err
		}
		items = append(items, page.Items...)
		if page.Page >= page.TotalPages || len(page.Items) == 0 {
			return items, nil
		}
		q.Page = page.Page + 1
	}
}

// Normalize decodes raw according to env and applies q's filters and sort.
func Normalize[T Record](raw []byte, env Envelope, q Query) (Page[T], error) {
	q = q.normalized()
	decoded, err := decodeEnvelope(raw, env)
	if err != nil {
		return Page[T]{}, err
	}

	items := make([]T, 0, len(decoded.items))
	if len(decoded.items) > 0 {
		if err := json.Unmarshal(decoded.items, &items); err != nil {
			return Page[T]{}, &utils.TransportError{Op: "decode " + env.itemsLabel(), Err: err}
		}
	}

	items = ApplyFilters(items, q.Filters)
	SortRecords(items, q.Sort)

	total := len(items)
	if decoded.total >= 0 {
		total = decoded.total
	}
	pages := TotalPages(total, q.PageSize)
	if decoded.totalPages > 0 {
		pages = decoded.totalPages
	}

	outcome := OutcomeOK
	if len(items) == 0 {
		outcome = OutcomeEmpty
	}

	return Page[T]{
		Items:      items,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalCount: total,
		TotalPages: pages,
		Outcome:    outcome,
	}, nil
}

// DecodeOne extracts a single entity from a response that is either the bare
// object, {"data": {...}} or {"<key>": {...}}.
func DecodeOne[T any](raw []byte, key string) (T, error) {
	var out T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, &utils.NotFoundError{Resource: key}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return out, &utils.TransportError{Op: "decode " + key, Err: err}
	}
	body := json.RawMessage(trimmed)
	for _, k := range []string{"data", key} {
		if k == "" {
			continue
		}
		if v, ok := obj[k]; ok && isObject(v) {
			body = v
			break
		}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, &utils.TransportError{Op: "decode " + key, Err: err}
	}
	return out, nil
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	return q
}

func (e Envelope) itemsLabel() string {
	if e.ItemsKey == "" {
		return "items"
	}
	return e.ItemsKey
}

func failedPage[T any](q Query, err error) Page[T] {
	return Page[T]{
		Items:      []T{},
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalCount: 0,
		TotalPages: 1,
		Outcome:    OutcomeFailed,
		Err:        err,
	}
}

type envelopeParts struct {
	items      json.RawMessage
	total      int // -1 when absent
	totalPages int // 0 when absent
}

var errNotJSON = errors.New("response is not a JSON object or array")

// decodeEnvelope applies the declared priority: data array, bare array,
// declared items key, otherwise empty.
func decodeEnvelope(raw []byte, env Envelope) (envelopeParts, error) {
	parts := envelopeParts{total: -1}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return parts, nil
	}

	switch trimmed[0] {
	case '[':
		parts.items = trimmed
		return parts, nil
	case '{':
	default:
		return parts, &utils.TransportError{Op: "decode " + env.itemsLabel(), Err: errNotJSON}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return parts, &utils.TransportError{Op: "decode " + env.itemsLabel(), Err: err}
	}

	if data, ok := obj["data"]; ok {
		switch {
		case isArray(data):
			parts.items = data
		case isObject(data) && env.ItemsKey != "":
			// {"data": {"students": [...], "total": n}}
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(data, &inner); err == nil {
				if v, ok := inner[env.ItemsKey]; ok && isArray(v) {
					parts.items = v
					parts.total = lookupTotal(inner, env)
				}
			}
		}
	}
	if parts.items == nil && env.ItemsKey != "" {
		if v, ok := obj[env.ItemsKey]; ok && isArray(v) {
			parts.items = v
		}
	}

	if parts.total < 0 {
		parts.total = lookupTotal(obj, env)
	}

	if pg, ok := obj["pagination"]; ok && isObject(pg) {
		var pagination map[string]json.RawMessage
		if err := json.Unmarshal(pg, &pagination); err == nil {
			if n, ok := intValue(pagination["totalPages"]); ok && n > 0 {
				parts.totalPages = n
			}
			if parts.total < 0 {
				parts.total = lookupTotal(pagination, env)
			}
		}
	}
	return parts, nil
}

func lookupTotal(obj map[string]json.RawMessage, env Envelope) int {
	keys := append(append([]string{}, env.TotalKeys...), "total", "count")
	for _, k := range keys {
		if n, ok := intValue(obj[k]); ok && n >= 0 {
			return n
		}
	}
	return -1
}

func intValue(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		n = json.Number(strings.TrimSpace(s))
	}
	if i, err := n.Int64(); err == nil {
		return int(i), true
	}
	if f, err := n.Float64(); err == nil {
		return int(f), true
	}
	return 0, false
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func isObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}
