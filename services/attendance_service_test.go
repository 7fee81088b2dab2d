package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"eduadmin_go/models"
	"eduadmin_go/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibleStudents(t *testing.T) {
	day := time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)
	students := []models.Student{{ID: "s1"}, {ID: "s2"}, {ID: "s3"}}
	records := []models.AttendanceRecord{
		{StudentID: "s1", Date: models.NewDate(day.Add(5 * time.Hour))},
		{StudentID: "s3", Date: models.NewDate(day.AddDate(0, 0, -1))},
	}

	got := EligibleStudents(students, records, day, time.UTC)

	require.Len(t, got, 2)
	assert.Equal(t, "s2", got[0].ID)
	assert.Equal(t, "s3", got[1].ID)
}

func TestAttendanceServiceEligible(t *testing.T) {
	api := newFakeAPI()
	api.gets["/students"] = `{"students":[{"id":"s1"},{"id":"s2"}],"totalStudents":2}`
	api.gets["/attendance"] = `{"attendance":[{"studentId":"s2","courseId":"c1","date":"2024-04-10T08:00:00Z","status":"Present"}]}`

	got, err := NewAttendanceService(api, nil, time.UTC).Eligible(context.Background(), "c1", time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)

	assert.Equal(t, "c1", api.calls[0].Query.Get("courseId"))
	assert.Equal(t, "2024-04-10", api.calls[1].Query.Get("date"))
}

func TestAttendanceServiceEligibleReadsEveryPage(t *testing.T) {
	api := newFakeAPI()
	api.pages["/students"] = []string{
		`{"students":[{"id":"s1"},{"id":"s2"}],"pagination":{"totalPages":3}}`,
		`{"students":[{"id":"s3"},{"id":"s4"}],"pagination":{"totalPages":3}}`,
		`{"students":[{"id":"s5"}],"pagination":{"totalPages":3}}`,
	}
	api.pages["/attendance"] = []string{
		`{"attendance":[{"studentId":"s1","date":"2024-04-10","status":"Present"}],"pagination":{"totalPages":2}}`,
		`{"attendance":[{"studentId":"s4","date":"2024-04-10","status":"Absent"}],"pagination":{"totalPages":2}}`,
	}

	got, err := NewAttendanceService(api, nil, time.UTC).Eligible(context.Background(), "c1", time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"s2", "s3", "s5"}, ids)

	require.Len(t, api.calls, 5)
	for i, want := range []struct{ path, page string }{
		{"/students", "1"}, {"/students", "2"}, {"/students", "3"}, {"/attendance", "1"}, {"/attendance", "2"},
	} {
		assert.Equal(t, want.path, api.calls[i].Path)
		assert.Equal(t, want.page, api.calls[i].Query.Get("page"))
		assert.Equal(t, "c1", api.calls[i].Query.Get("courseId"))
	}
	assert.Empty(t, api.calls[0].Query.Get("date"))
	assert.Equal(t, "2024-04-10", api.calls[4].Query.Get("date"))
}

func TestAttendanceServiceEligibleLaterPageFails(t *testing.T) {
	api := newFakeAPI()
	api.pages["/students"] = []string{
		`{"students":[{"id":"s1"}],"pagination":{"totalPages":2}}`,
		`<html>bad gateway</html>`,
	}

	_, err := NewAttendanceService(api, nil, time.UTC).Eligible(context.Background(), "", time.Now())
	assert.Error(t, err)
}

func TestEligibleStudentsDateOnlyRecords(t *testing.T) {
	// Midnight UTC on the 10th is still the 9th in New York.
	ny := time.FixedZone("EST", -5*3600)
	day := time.Date(2024, 4, 10, 9, 0, 0, 0, ny)
	var records []models.AttendanceRecord
	require.NoError(t, json.Unmarshal([]byte(`[
		{"studentId":"s1","courseId":"c1","date":"2024-04-10","status":"Present"},
		{"studentId":"s2","courseId":"c1","date":"2024-04-09","status":"Absent"}
	]`), &records))

	got := EligibleStudents([]models.Student{{ID: "s1"}, {ID: "s2"}}, records, day, ny)

	require.Len(t, got, 1)
	assert.Equal(t, "s2", got[0].ID)
}

func TestAttendanceServiceEligibleFailure(t *testing.T) {
	api := newFakeAPI()
	api.getErr["/students"] = &utils.TransportError{Op: "GET /students", Err: errors.New("down")}

	_, err := NewAttendanceService(api, nil, time.UTC).Eligible(context.Background(), "", time.Now())
	assert.True(t, utils.IsTransport(err))
}

func TestAttendanceMark(t *testing.T) {
	api := newFakeAPI()
	pub := &recordingPublisher{}
	day := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

	results := NewAttendanceService(api, pub, time.UTC).Mark(context.Background(), []models.AttendanceRecord{
		{StudentID: "s1", CourseID: "c1", Date: models.NewDate(day), Status: models.AttendancePresent},
		{StudentID: "s2", CourseID: "c1", Date: models.NewDate(day), Status: "Late"},
		{StudentID: "s3", CourseID: "c1", Status: models.AttendanceAbsent},
	})

	require.Len(t, results, 3)
	require.NotNil(t, results[0].Saved)
	assert.Empty(t, results[0].Error)
	assert.Nil(t, results[1].Saved)
	assert.Equal(t, "status", results[1].Fields[0].Field)
	assert.Equal(t, "date", results[2].Fields[0].Field)

	assert.Len(t, api.writes(), 1)
	require.Len(t, pub.events, 1)
	assert.Equal(t, EventAttendanceMarked, pub.events[0].Type)
}

func TestAttendanceMarkTransportFailure(t *testing.T) {
	api := newFakeAPI()
	api.writeErr = &utils.TransportError{Op: "POST /attendance", Err: errors.New("reset")}
	pub := &recordingPublisher{}

	results := NewAttendanceService(api, pub, nil).Mark(context.Background(), []models.AttendanceRecord{
		{StudentID: "s1", CourseID: "c1", Date: models.NewDate(time.Now()), Status: models.AttendancePresent},
	})

	require.Len(t, results, 1)
	assert.Nil(t, results[0].Saved)
	assert.Contains(t, results[0].Error, "reset")
	assert.Empty(t, pub.events)
}
