package services

import (
	"context"
	"net/url"
	"time"

	"eduadmin_go/models"
	"eduadmin_go/services/listing"
	"eduadmin_go/utils"

	"github.com/sirupsen/logrus"
)

// AttendanceEnvelope is how the API wraps attendance lists.
var AttendanceEnvelope = listing.Envelope{ItemsKey: "attendance", TotalKeys: []string{"totalAttendance"}}

// StudentEnvelope is how the API wraps student lists.
var StudentEnvelope = listing.Envelope{ItemsKey: "students", TotalKeys: []string{"totalStudents"}}

const eligiblePageSize = 500

// ValidateAttendance checks one record before it is submitted.
func ValidateAttendance(r models.AttendanceRecord) error {
	err := utils.ValidateStruct(r)
	if !r.Date.IsZero() {
		return err
	}
	fields := append([]utils.FieldError{{Field: "date", Message: "is required"}}, utils.ValidationFields(err)...)
	return &utils.ValidationError{Message: "invalid input", Fields: fields}
}

// EligibleStudents drops students that already have a record on day.
// This only keeps the picker tidy; the API does not enforce one record per day.
func EligibleStudents(students []models.Student, records []models.AttendanceRecord, day time.Time, loc *time.Location) []models.Student {
	marked := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Date.SameDay(day, loc) {
			marked[r.StudentID] = true
		}
	}
	out := make([]models.Student, 0, len(students))
	for _, s := range students {
		if !marked[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// MarkResult is the outcome of submitting one record.
type MarkResult struct {
	StudentID string                   `json:"studentId"`
	Saved     *models.AttendanceRecord `json:"saved,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Fields    []utils.FieldError       `json:"fields,omitempty"`
}

// AttendanceService submits attendance through the API.
type AttendanceService struct {
	api    RestAPI
	events EventPublisher
	loc    *time.Location
}

func NewAttendanceService(api RestAPI, events EventPublisher, loc *time.Location) *AttendanceService {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceService{api: api, events: publisherOrNoop(events), loc: loc}
}

// Eligible returns the students of a course with no record on day. Every
// page of both listings is read.
func (s *AttendanceService) Eligible(ctx context.Context, courseID string, day time.Time) ([]models.Student, error) {
	params := url.Values{}
	if courseID != "" {
		params.Set("courseId", courseID)
	}
	students, err := listing.FetchAll[models.Student](ctx, listing.FromAPI(s.api, "/students"), StudentEnvelope,
		listing.Query{PageSize: eligiblePageSize, Params: params})
	if err != nil {
		return nil, err
	}

	recordParams := url.Values{}
	for k, vs := range params {
		recordParams[k] = append([]string(nil), vs...)
	}
	recordParams.Set("date", day.In(s.loc).Format("2006-01-02"))
	records, err := listing.FetchAll[models.AttendanceRecord](ctx, listing.FromAPI(s.api, "/attendance"), AttendanceEnvelope,
		listing.Query{PageSize: eligiblePageSize, Params: recordParams})
	if err != nil {
		return nil, err
	}
	return EligibleStudents(students, records, day, s.loc), nil
}

// Mark validates and submits each record independently. A failure on one
// record does not stop the rest.
func (s *AttendanceService) Mark(ctx context.Context, records []models.AttendanceRecord) []MarkResult {
	results := make([]MarkResult, 0, len(records))
	saved := 0
	for _, r := range records {
		res := MarkResult{StudentID: r.StudentID}
		if err := ValidateAttendance(r); err != nil {
			res.Error, res.Fields = err.Error(), utils.ValidationFields(err)
			results = append(results, res)
			continue
		}
		raw, err := s.api.Post(ctx, "/attendance", r)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"student_id": r.StudentID,
				"course_id":  r.CourseID,
			}).WithError(err).Warn("failed to mark attendance")
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		rec := r
		if decoded, err := listing.DecodeOne[models.AttendanceRecord](raw, "attendance"); err == nil && decoded.StudentID != "" {
			rec = decoded
		}
		res.Saved = &rec
		saved++
		results = append(results, res)
	}
	if saved > 0 {
		s.events.Publish(ctx, EventAttendanceMarked, map[string]int{"saved": saved, "submitted": len(records)})
	}
	return results
}
