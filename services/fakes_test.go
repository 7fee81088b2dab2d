package services

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"eduadmin_go/utils"
)

type apiCall struct {
	Method  string
	Path    string
	Query   url.Values
	Payload interface{}
}

// fakeAPI answers GETs from a path->body table and records every call.
// Paths in pages answer with the body for the requested page number.
type fakeAPI struct {
	mu       sync.Mutex
	gets     map[string]string
	pages    map[string][]string
	getErr   map[string]error
	postBody string
	writeErr error
	calls    []apiCall
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{gets: map[string]string{}, pages: map[string][]string{}, getErr: map[string]error{}}
}

func (f *fakeAPI) record(c apiCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeAPI) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	f.record(apiCall{Method: "GET", Path: path, Query: query})
	if err, ok := f.getErr[path]; ok {
		return nil, err
	}
	if bodies, ok := f.pages[path]; ok {
		n, _ := strconv.Atoi(query.Get("page"))
		if n < 1 || n > len(bodies) {
			return []byte(`[]`), nil
		}
		return []byte(bodies[n-1]), nil
	}
	body, ok := f.gets[path]
	if !ok {
		parts := strings.Split(strings.Trim(path, "/"), "/")
		return nil, &utils.NotFoundError{Resource: parts[0], ID: parts[len(parts)-1]}
	}
	return []byte(body), nil
}

func (f *fakeAPI) Post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	return f.write("POST", path, payload)
}

func (f *fakeAPI) Put(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	return f.write("PUT", path, payload)
}

func (f *fakeAPI) Delete(ctx context.Context, path string) ([]byte, error) {
	return f.write("DELETE", path, nil)
}

func (f *fakeAPI) write(method, path string, payload interface{}) ([]byte, error) {
	f.record(apiCall{Method: method, Path: path, Payload: payload})
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	if f.postBody != "" {
		return []byte(f.postBody), nil
	}
	return json.Marshal(map[string]interface{}{"success": true, "data": payload})
}

func (f *fakeAPI) writes() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method != "GET" {
			out = append(out, c)
		}
	}
	return out
}

type publishedEvent struct {
	Type string
	Data interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
}
