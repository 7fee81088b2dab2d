package services

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"eduadmin_go/models"
	"eduadmin_go/services/listing"
	"eduadmin_go/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FeeAssignmentEnvelope is how the API wraps fee assignment lists.
var FeeAssignmentEnvelope = listing.Envelope{
	ItemsKey:  "feeAssignments",
	TotalKeys: []string{"totalFeeAssignments"},
}

// CourseEnvelope is how the API wraps course lists.
var CourseEnvelope = listing.Envelope{ItemsKey: "courses", TotalKeys: []string{"totalCourses"}}

// Breakdown is the fee position of one (student, course) pair.
type Breakdown struct {
	TotalFee      int64  `json:"totalFee"`
	TotalPaid     int64  `json:"totalPaid"`
	PendingAmount int64  `json:"pendingAmount"`
	Status        string `json:"status"`
}

// Terms are the fee and discount a pair is charged. They are fixed by the
// first recorded payment.
type Terms struct {
	ActualFee          int64 `json:"actualFee"`
	AdditionalDiscount int64 `json:"additionalDiscount"`
}

// ComputeBreakdown derives the totals from the terms and the prior paid
// amounts. It never returns negative fees or balances.
func ComputeBreakdown(actualFee, additionalDiscount int64, priorPayments []int64) Breakdown {
	total := actualFee - additionalDiscount
	if total < 0 {
		total = 0
	}
	var paid int64
	for _, p := range priorPayments {
		paid += p
	}
	pending := total - paid
	if pending < 0 {
		pending = 0
	}
	status := models.FeeStatusPending
	if pending == 0 {
		status = models.FeeStatusPaid
	}
	return Breakdown{TotalFee: total, TotalPaid: paid, PendingAmount: pending, Status: status}
}

// ValidateDiscount checks the fee and discount a new pair would start with.
func ValidateDiscount(actualFee, additionalDiscount int64) error {
	if actualFee < 0 {
		return utils.NewValidationError("invalid amount", utils.FieldError{Field: "actualFee", Message: "must not be negative"})
	}
	if additionalDiscount < 0 {
		return utils.NewValidationError("invalid amount", utils.FieldError{Field: "additionalDiscount", Message: "must not be negative"})
	}
	if additionalDiscount > actualFee {
		return utils.NewValidationError("discount exceeds fee", utils.FieldError{Field: "additionalDiscount", Message: "must not exceed the actual fee"})
	}
	return nil
}

// ValidateNewPayment accepts amounts in (0, pendingAmount] and returns them unchanged.
func ValidateNewPayment(addAmount, pendingAmount int64) (int64, error) {
	if addAmount <= 0 {
		return 0, utils.NewValidationError("amount required", utils.FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if addAmount > pendingAmount {
		return 0, utils.NewValidationError("exceeds pending", utils.FieldError{Field: "amount", Message: "must not exceed the pending amount"})
	}
	return addAmount, nil
}

// ResolveTerms returns the terms a submission must use. Once events exist
// the earliest one is authoritative and requested values are ignored. Before
// that, the course's final fee wins over its list price.
func ResolveTerms(events []models.FeeAssignment, course *models.Course, requested Terms) Terms {
	if len(events) > 0 {
		first := SortEvents(events)[0]
		return Terms{ActualFee: first.ActualFee, AdditionalDiscount: first.AdditionalDiscount}
	}
	terms := requested
	if course != nil {
		terms.ActualFee = course.Price
		if course.FinalFee > 0 {
			terms.ActualFee = course.FinalFee
		}
	}
	return terms
}

// SortEvents returns a copy of events ordered by createdAt ascending.
func SortEvents(events []models.FeeAssignment) []models.FeeAssignment {
	out := make([]models.FeeAssignment, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// PaidAmounts lists the paid amount of each event in order.
func PaidAmounts(events []models.FeeAssignment) []int64 {
	out := make([]int64, 0, len(events))
	for _, e := range events {
		out = append(out, e.PaidAmount)
	}
	return out
}

// PaymentRequest is the add-payment form submission.
type PaymentRequest struct {
	StudentID          string `json:"studentId" validate:"required,notblank"`
	CourseID           string `json:"courseId" validate:"required,notblank"`
	ActualFee          int64  `json:"actualFee" validate:"gte=0"`
	AdditionalDiscount int64  `json:"additionalDiscount" validate:"gte=0"`
	Amount             int64  `json:"amount"`
	PaymentMethod      string `json:"paymentMethod" validate:"required,payment_method"`
}

// NewPaymentEvent validates a payment against the prior events' balance and
// builds the next append-only event. CreatedAt is left for the API to assign.
func NewPaymentEvent(req PaymentRequest, terms Terms, prior []int64, reference string) (models.FeeAssignment, error) {
	if err := ValidateDiscount(terms.ActualFee, terms.AdditionalDiscount); err != nil {
		return models.FeeAssignment{}, err
	}
	before := ComputeBreakdown(terms.ActualFee, terms.AdditionalDiscount, prior)
	amount, err := ValidateNewPayment(req.Amount, before.PendingAmount)
	if err != nil {
		return models.FeeAssignment{}, err
	}

	paid := make([]int64, 0, len(prior)+1)
	paid = append(append(paid, prior...), amount)
	after := ComputeBreakdown(terms.ActualFee, terms.AdditionalDiscount, paid)

	return models.FeeAssignment{
		StudentID:          req.StudentID,
		CourseID:           req.CourseID,
		ActualFee:          terms.ActualFee,
		AdditionalDiscount: terms.AdditionalDiscount,
		TotalFee:           after.TotalFee,
		PaidAmount:         amount,
		PendingAmount:      after.PendingAmount,
		Status:             after.Status,
		PaymentMethod:      strings.ToLower(strings.TrimSpace(req.PaymentMethod)),
		PaymentReference:   reference,
	}, nil
}

// newFeeEvent is the POST body of a payment. The outer CreatedAt shadows the
// embedded one so the timestamp is never sent.
type newFeeEvent struct {
	models.FeeAssignment
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// LedgerView is everything the fee screen shows for a pair.
type LedgerView struct {
	StudentID      string                 `json:"studentId"`
	CourseID       string                 `json:"courseId"`
	Terms          Terms                  `json:"terms"`
	Breakdown      Breakdown              `json:"breakdown"`
	History        []models.FeeAssignment `json:"history"`
	DiscountLocked bool                   `json:"discountLocked"`
}

// FeeLedgerService reads and appends fee assignment events through the API.
type FeeLedgerService struct {
	api    RestAPI
	lock   SubmitLock
	events EventPublisher
	newRef func() string
}

// NewFeeLedgerService creates the service. lock and events may be nil.
func NewFeeLedgerService(api RestAPI, lock SubmitLock, events EventPublisher) *FeeLedgerService {
	if lock == nil {
		lock = NewLocalSubmitLock()
	}
	return &FeeLedgerService{
		api:    api,
		lock:   lock,
		events: publisherOrNoop(events),
		newRef: func() string { return "PAY-" + strings.ToUpper(uuid.NewString()) },
	}
}

// History returns the pair's events, oldest first.
func (s *FeeLedgerService) History(ctx context.Context, studentID, courseID string) ([]models.FeeAssignment, error) {
	raw, err := s.api.Get(ctx, "/fee-assignments", url.Values{
		"studentId": {studentID},
		"courseId":  {courseID},
	})
	if err != nil {
		if utils.IsNotFound(err) {
			return []models.FeeAssignment{}, nil
		}
		return nil, err
	}
	page, err := listing.Normalize[models.FeeAssignment](raw, FeeAssignmentEnvelope, listing.Query{
		// The API may ignore the query filters, so apply them here too.
		Filters: []listing.Filter{
			listing.StatusFilter{Field: "studentId", Value: studentID},
			listing.StatusFilter{Field: "courseId", Value: courseID},
		},
		Sort: listing.SortKey{Field: listing.CreatedAtField, Asc: true},
	})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Course fetches a single course.
func (s *FeeLedgerService) Course(ctx context.Context, courseID string) (*models.Course, error) {
	raw, err := s.api.Get(ctx, "/courses/"+url.PathEscape(courseID), nil)
	if err != nil {
		return nil, err
	}
	course, err := listing.DecodeOne[models.Course](raw, "course")
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// Breakdown computes the current fee position for a pair. requested only
// matters when the pair has no events yet.
func (s *FeeLedgerService) Breakdown(ctx context.Context, studentID, courseID string, requested Terms) (LedgerView, error) {
	history, err := s.History(ctx, studentID, courseID)
	if err != nil {
		return LedgerView{}, err
	}
	var course *models.Course
	if len(history) == 0 {
		if course, err = s.Course(ctx, courseID); err != nil {
			return LedgerView{}, err
		}
	}
	terms := ResolveTerms(history, course, requested)
	return LedgerView{
		StudentID:      studentID,
		CourseID:       courseID,
		Terms:          terms,
		Breakdown:      ComputeBreakdown(terms.ActualFee, terms.AdditionalDiscount, PaidAmounts(history)),
		History:        history,
		DiscountLocked: len(history) > 0,
	}, nil
}

// RecordPayment validates req against the freshly fetched balance and
// appends one event. API failures are returned unchanged and never retried,
// since a replay could double-count a payment.
func (s *FeeLedgerService) RecordPayment(ctx context.Context, req PaymentRequest) (models.FeeAssignment, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.CourseID = strings.TrimSpace(req.CourseID)
	if err := utils.ValidateStruct(req); err != nil {
		return models.FeeAssignment{}, err
	}

	key := req.StudentID + ":" + req.CourseID
	ok, err := s.lock.Acquire(ctx, key)
	if err != nil {
		logrus.WithField("key", key).WithError(err).Warn("submit lock unavailable, continuing without it")
	} else if !ok {
		return models.FeeAssignment{}, utils.NewValidationError("payment already in progress")
	} else {
		defer s.lock.Release(context.Background(), key)
	}

	view, err := s.Breakdown(ctx, req.StudentID, req.CourseID, Terms{
		ActualFee:          req.ActualFee,
		AdditionalDiscount: req.AdditionalDiscount,
	})
	if err != nil {
		return models.FeeAssignment{}, err
	}

	event, err := NewPaymentEvent(req, view.Terms, PaidAmounts(view.History), s.newRef())
	if err != nil {
		return models.FeeAssignment{}, err
	}

	raw, err := s.api.Post(ctx, "/fee-assignments", newFeeEvent{FeeAssignment: event})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"student_id": req.StudentID,
			"course_id":  req.CourseID,
			"reference":  event.PaymentReference,
		}).WithError(err).Error("failed to record payment")
		return models.FeeAssignment{}, err
	}
	if saved, err := listing.DecodeOne[models.FeeAssignment](raw, "feeAssignment"); err == nil && saved.PaymentReference != "" {
		event = saved
	}

	logrus.WithFields(logrus.Fields{
		"student_id": event.StudentID,
		"course_id":  event.CourseID,
		"amount":     event.PaidAmount,
		"pending":    event.PendingAmount,
		"reference":  event.PaymentReference,
	}).Info("payment recorded")

	s.events.Publish(ctx, EventPaymentRecorded, event)
	return event, nil
}
