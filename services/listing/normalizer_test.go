package listing

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"eduadmin_go/models"
	"eduadmin_go/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var studentEnvelope = Envelope{ItemsKey: "students", TotalKeys: []string{"totalStudents"}}

func staticFetcher(body string) Fetcher {
	return func(ctx context.Context, q Query) ([]byte, error) {
		return []byte(body), nil
	}
}

func ids[T Record](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Field("id")
	}
	return out
}

func TestFetchPageDataEnvelope(t *testing.T) {
	body := `{"success":true,"data":[{"id":"a"},{"id":"b"},{"id":"c"}],"pagination":{"totalPages":5}}`

	page := FetchPage[models.Student](context.Background(), staticFetcher(body), studentEnvelope, Query{Page: 1, PageSize: 3})

	assert.Equal(t, OutcomeOK, page.Outcome)
	assert.Equal(t, []string{"a", "b", "c"}, ids(page.Items))
	assert.Equal(t, 5, page.TotalPages)
	assert.Equal(t, 3, page.TotalCount)
}

func TestFetchPageBareArray(t *testing.T) {
	page := FetchPage[models.Student](context.Background(), staticFetcher(`[{"id":"a"},{"id":"b"}]`), studentEnvelope, Query{Page: 1, PageSize: 25})

	assert.Equal(t, []string{"a", "b"}, ids(page.Items))
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
}

func TestFetchPageFailedFetcher(t *testing.T) {
	cause := &utils.TransportError{Op: "GET students", Err: errors.New("connection refused")}
	fetch := func(ctx context.Context, q Query) ([]byte, error) { return nil, cause }

	page := FetchPage[models.Student](context.Background(), fetch, studentEnvelope, Query{Page: 2, PageSize: 10})

	assert.Equal(t, OutcomeFailed, page.Outcome)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
	assert.ErrorIs(t, page.Err, cause)
}

func TestFetchPageEmptyIsNotFailure(t *testing.T) {
	page := FetchPage[models.Student](context.Background(), staticFetcher(`{"students":[],"totalStudents":0}`), studentEnvelope, Query{})

	assert.Equal(t, OutcomeEmpty, page.Outcome)
	assert.NoError(t, page.Err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Equal(t, 1, page.TotalPages)
}

func TestFetchPageUndecodableBodyFails(t *testing.T) {
	page := FetchPage[models.Student](context.Background(), staticFetcher(`<html>bad gateway</html>`), studentEnvelope, Query{})

	assert.Equal(t, OutcomeFailed, page.Outcome)
	assert.True(t, utils.IsTransport(page.Err))
}

func TestNormalizeEnvelopes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		pageSize  int
		wantIDs   []string
		wantTotal int
		wantPages int
	}{
		{
			name:      "declared items key with entity total",
			body:      `{"students":[{"id":"1"},{"id":"2"}],"totalStudents":60}`,
			pageSize:  25,
			wantIDs:   []string{"1", "2"},
			wantTotal: 60,
			wantPages: 3,
		},
		{
			name:      "generic total beats length",
			body:      `{"data":[{"id":"1"}],"total":"12"}`,
			pageSize:  5,
			wantIDs:   []string{"1"},
			wantTotal: 12,
			wantPages: 3,
		},
		{
			name:      "count inside pagination",
			body:      `{"data":[{"id":"1"}],"pagination":{"count":30}}`,
			pageSize:  10,
			wantIDs:   []string{"1"},
			wantTotal: 30,
			wantPages: 3,
		},
		{
			name:      "items nested in data object",
			body:      `{"success":true,"data":{"students":[{"id":"x"}],"totalStudents":1}}`,
			pageSize:  25,
			wantIDs:   []string{"x"},
			wantTotal: 1,
			wantPages: 1,
		},
		{
			name:      "undeclared array property is ignored",
			body:      `{"rows":[{"id":"1"}]}`,
			pageSize:  25,
			wantIDs:   []string{},
			wantTotal: 0,
			wantPages: 1,
		},
		{
			name:      "null body",
			body:      `null`,
			pageSize:  25,
			wantIDs:   []string{},
			wantTotal: 0,
			wantPages: 1,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			page, err := Normalize[models.Student]([]byte(tc.body), studentEnvelope, Query{Page: 1, PageSize: tc.pageSize})
			require.NoError(t, err)
			assert.Equal(t, tc.wantIDs, ids(page.Items))
			assert.Equal(t, tc.wantTotal, page.TotalCount)
			assert.Equal(t, tc.wantPages, page.TotalPages)
		})
	}
}

func TestFetchPageStatusFilterKeepsOrder(t *testing.T) {
	body := `[
		{"id":"e1","name":"Asha","status":"New"},
		{"id":"e2","name":"Ravi","status":"New"},
		{"id":"e3","name":"Meena","status":"Closed"},
		{"id":"e4","name":"John","status":"Converted"},
		{"id":"e5","name":"Priya","status":"Closed"}
	]`
	q := Query{Page: 1, PageSize: 25, Filters: []Filter{StatusFilter{Field: "status", Value: "Closed"}}}

	page := FetchPage[models.Enquiry](context.Background(), staticFetcher(body), Envelope{ItemsKey: "enquiries"}, q)

	assert.Equal(t, []string{"e3", "e5"}, ids(page.Items))
	assert.Equal(t, 2, page.TotalCount)
}

func TestFetchPageIsRepeatable(t *testing.T) {
	body := `[{"id":"1","name":"b"},{"id":"2","name":"a"}]`
	q := Query{Page: 1, PageSize: 25, Sort: SortKey{Field: "name", Asc: true}}

	first := FetchPage[models.Enquiry](context.Background(), staticFetcher(body), Envelope{}, q)
	second := FetchPage[models.Enquiry](context.Background(), staticFetcher(body), Envelope{}, q)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"2", "1"}, ids(first.Items))
}

func TestFetchPageSortsNewestFirstByDefault(t *testing.T) {
	body := `[
		{"id":"old","name":"x","createdAt":"2024-01-01T00:00:00Z"},
		{"id":"none","name":"y"},
		{"id":"new","name":"z","createdAt":"2024-06-01T00:00:00Z"}
	]`
	page := FetchPage[models.Enquiry](context.Background(), staticFetcher(body), Envelope{}, Query{})

	assert.Equal(t, []string{"new", "old", "none"}, ids(page.Items))
}

type fakeGetter struct {
	path  string
	query url.Values
}

func (f *fakeGetter) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	f.path, f.query = path, query
	return []byte(`[]`), nil
}

func TestFromAPIForwardsPaging(t *testing.T) {
	g := &fakeGetter{}
	fetch := FromAPI(g, "/enquiries")

	page := FetchPage[models.Enquiry](context.Background(), fetch, Envelope{}, Query{
		Page:     3,
		PageSize: 10,
		Params:   url.Values{"search": {"asha"}, "page": {"99"}},
	})

	assert.Equal(t, OutcomeEmpty, page.Outcome)
	assert.Equal(t, "/enquiries", g.path)
	assert.Equal(t, "3", g.query.Get("page"))
	assert.Equal(t, "10", g.query.Get("limit"))
	assert.Equal(t, "asha", g.query.Get("search"))
}

func TestDecodeOne(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantName string
		notFound bool
	}{
		{name: "bare object", body: `{"id":"c1","name":"IELTS"}`, wantName: "IELTS"},
		{name: "data wrapper", body: `{"success":true,"data":{"id":"c1","name":"TOEFL"}}`, wantName: "TOEFL"},
		{name: "entity key", body: `{"course":{"id":"c1","name":"GRE"}}`, wantName: "GRE"},
		{name: "null", body: `null`, notFound: true},
		{name: "empty", body: ``, notFound: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			c, err := DecodeOne[models.Course]([]byte(tc.body), "course")
			if tc.notFound {
				assert.True(t, utils.IsNotFound(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, c.Name)
		})
	}
}

func TestTextFilterAnyField(t *testing.T) {
	now := time.Now()
	items := []models.Student{
		{ID: "1", FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", CreatedAt: now},
		{ID: "2", FirstName: "Ravi", LastName: "Kumar", Email: "ravi@example.com", CreatedAt: now},
		{ID: "3", FirstName: "Meena", LastName: "Iyer", Phone: "98450", CreatedAt: now},
	}
	tests := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{"case insensitive", []Filter{TextFilter{Fields: []string{"name", "email"}, Term: "ASHA"}}, []string{"1"}},
		{"substring on phone", []Filter{TextFilter{Fields: []string{"name", "phone"}, Term: "845"}}, []string{"3"}},
		{"blank term inactive", []Filter{TextFilter{Fields: []string{"name"}, Term: "  "}}, []string{"1", "2", "3"}},
		{"all sentinel inactive", []Filter{StatusFilter{Field: "status", Value: "all"}}, []string{"1", "2", "3"}},
		{
			"every filter must match",
			[]Filter{
				TextFilter{Fields: []string{"email"}, Term: "example.com"},
				TextFilter{Fields: []string{"lastName"}, Term: "kum"},
			},
			[]string{"2"},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(ApplyFilters(items, tc.filters)))
		})
	}
}

func TestParseSortKey(t *testing.T) {
	assert.Equal(t, SortKey{}, ParseSortKey(""))
	assert.Equal(t, SortKey{Field: "name"}, ParseSortKey("-name"))
	assert.Equal(t, SortKey{Field: "price", Asc: true}, ParseSortKey("price"))
}

func TestSortNumericFields(t *testing.T) {
	items := []models.Course{{ID: "a", Price: 900}, {ID: "b", Price: 10000}, {ID: "c", Price: 95}}
	SortRecords(items, SortKey{Field: "price", Asc: true})
	assert.Equal(t, []string{"c", "a", "b"}, ids(items))
}

func TestSortMissingTimestampAsEpoch(t *testing.T) {
	items := []models.Student{
		{ID: "recent", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "missing"},
		{ID: "old", CreatedAt: time.Date(1965, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	tests := []struct {
		name string
		key  SortKey
		want []string
	}{
		{"ascending", SortKey{Field: CreatedAtField, Asc: true}, []string{"old", "missing", "recent"}},
		{"newest first", SortKey{}, []string{"recent", "missing", "old"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			sorted := append([]models.Student(nil), items...)
			SortRecords(sorted, tc.key)
			assert.Equal(t, tc.want, ids(sorted))
		})
	}
}

func TestNormalizeDateOnlyValues(t *testing.T) {
	students, err := Normalize[models.Student](
		[]byte(`{"students":[{"id":"s1","dateOfBirth":"2001-05-04"},{"id":"s2"}]}`), studentEnvelope, Query{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, students.Outcome)
	require.Len(t, students.Items, 2)
	dob := map[string]*models.Date{}
	for _, s := range students.Items {
		dob[s.ID] = s.DateOfBirth
	}
	require.NotNil(t, dob["s1"])
	assert.Equal(t, "2001-05-04", dob["s1"].String())
	assert.Nil(t, dob["s2"])

	page := FetchPage[models.AttendanceRecord](context.Background(), staticFetcher(
		`{"attendance":[{"studentId":"s1","date":"2024-03-01","status":"Present"},{"studentId":"s2","date":"2024-03-01T08:30:00Z","status":"Absent"}]}`),
		Envelope{ItemsKey: "attendance"}, Query{})
	assert.Equal(t, OutcomeOK, page.Outcome)
	require.Len(t, page.Items, 2)
	for _, rec := range page.Items {
		assert.Equal(t, "2024-03-01", rec.Field("date"))
	}
}
