package services

import (
	"context"
	"net/url"
	"strings"

	"eduadmin_go/models"
	"eduadmin_go/services/listing"
	"eduadmin_go/utils"

	"github.com/sirupsen/logrus"
)

// EnquiryEnvelope is how the API wraps enquiry lists.
var EnquiryEnvelope = listing.Envelope{ItemsKey: "enquiries", TotalKeys: []string{"totalEnquiries"}}

// EnquiryStatuses lists every status an enquiry can hold.
var EnquiryStatuses = []string{
	models.EnquiryStatusNew,
	models.EnquiryStatusInProgress,
	models.EnquiryStatusContacted,
	models.EnquiryStatusConverted,
	models.EnquiryStatusClosed,
}

// IsEnquiryStatus reports whether s is a known enquiry status.
func IsEnquiryStatus(s string) bool {
	for _, v := range EnquiryStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ValidateStatusChange allows any known status except the current one and
// requires a reason.
func ValidateStatusChange(current, next, reason string) error {
	var fields []utils.FieldError
	switch {
	case !IsEnquiryStatus(next):
		fields = append(fields, utils.FieldError{Field: "status", Message: "must be one of: " + strings.Join(EnquiryStatuses, ", ")})
	case next == current:
		fields = append(fields, utils.FieldError{Field: "status", Message: "is already " + current})
	}
	if strings.TrimSpace(reason) == "" {
		fields = append(fields, utils.FieldError{Field: "reason", Message: "is required"})
	}
	if len(fields) > 0 {
		return utils.NewValidationError("invalid status change", fields...)
	}
	return nil
}

// StatusChange is the payload sent to the API.
type StatusChange struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// EnquiryStatusChanged is published after a successful change.
type EnquiryStatusChanged struct {
	EnquiryID string `json:"enquiryId"`
	Name      string `json:"name"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason"`
}

// EnquiryService runs the enquiry status workflow.
type EnquiryService struct {
	api    RestAPI
	events EventPublisher
}

func NewEnquiryService(api RestAPI, events EventPublisher) *EnquiryService {
	return &EnquiryService{api: api, events: publisherOrNoop(events)}
}

// Get fetches one enquiry.
func (s *EnquiryService) Get(ctx context.Context, id string) (models.Enquiry, error) {
	raw, err := s.api.Get(ctx, "/enquiries/"+url.PathEscape(id), nil)
	if err != nil {
		return models.Enquiry{}, err
	}
	return listing.DecodeOne[models.Enquiry](raw, "enquiry")
}

// ChangeStatus moves an enquiry to next, recording reason with the change.
func (s *EnquiryService) ChangeStatus(ctx context.Context, id, next, reason string) (models.Enquiry, error) {
	enquiry, err := s.Get(ctx, id)
	if err != nil {
		return models.Enquiry{}, err
	}
	next = strings.TrimSpace(next)
	reason = strings.TrimSpace(reason)
	if err := ValidateStatusChange(enquiry.Status, next, reason); err != nil {
		return models.Enquiry{}, err
	}

	if _, err := s.api.Put(ctx, "/enquiries/"+url.PathEscape(id)+"/status", StatusChange{Status: next, Reason: reason}); err != nil {
		return models.Enquiry{}, err
	}

	previous := enquiry.Status
	enquiry.Status = next

	logrus.WithFields(logrus.Fields{
		"enquiry_id": id,
		"from":       previous,
		"to":         next,
	}).Info("enquiry status changed")

	s.events.Publish(ctx, EventEnquiryStatusChanged, EnquiryStatusChanged{
		EnquiryID: id,
		Name:      enquiry.Name,
		From:      previous,
		To:        next,
		Reason:    reason,
	})
	return enquiry, nil
}
