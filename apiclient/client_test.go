package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"eduadmin_go/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	base := []Option{WithBackoff(0), WithTimeout(2 * time.Second)}
	return New(srv.URL+"/api", append(base, opts...)...)
}

func TestGetSendsQueryAndBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/students", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get(IdempotencyHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"students":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv).WithToken("Bearer tok-123")
	body, err := c.Get(context.Background(), "/students", url.Values{"page": {"2"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"students":[]}`, string(body))
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(srv, WithReadRetries(2))
	body, err := c.Get(context.Background(), "courses", nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestGetGivesUpAfterRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv, WithReadRetries(1))
	_, err := c.Get(context.Background(), "courses", nil)
	require.Error(t, err)
	assert.True(t, utils.IsTransport(err))
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestWritesAreNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	c := newTestClient(srv, WithReadRetries(5))
	_, err := c.Post(context.Background(), "fee-assignments", map[string]int{"paidAmount": 100})
	require.Error(t, err)
	assert.True(t, utils.IsTransport(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestWritesCarryIdempotencyKeyAndJSON(t *testing.T) {
	keys := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get(IdempotencyHeader)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "s1", payload["studentId"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	for i := 0; i < 2; i++ {
		_, err := c.Post(context.Background(), "fee-assignments", map[string]string{"studentId": "s1"})
		require.NoError(t, err)
	}
	first, second := <-keys, <-keys
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.True(t, utils.IsNotFound(err))
				assert.Equal(t, "students 42 not found", err.Error())
			},
		},
		{
			name:   "validation",
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"email already registered"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, utils.IsValidation(err))
				assert.Equal(t, "email already registered", err.Error())
			},
		},
		{
			name:   "bad request with error key",
			status: http.StatusBadRequest,
			body:   `{"error":"bad payload"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, utils.IsValidation(err))
				assert.Equal(t, "bad payload", err.Error())
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				assert.True(t, utils.IsTransport(err))
			},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv, WithReadRetries(0)).Get(context.Background(), "/students/42", nil)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestCancelledContextSkipsRequest(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv).Get(ctx, "students", nil)
	require.Error(t, err)
	assert.True(t, utils.IsTransport(err))
	assert.EqualValues(t, 0, atomic.LoadInt32(&hits))
}

func TestUnreachableHostIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := New(addr, WithReadRetries(0), WithTimeout(500*time.Millisecond))
	_, err := c.Get(context.Background(), "students", nil)
	require.Error(t, err)
	assert.True(t, utils.IsTransport(err))
}
