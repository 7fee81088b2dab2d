package services

import (
	"context"
	"net/url"
)

// RestAPI is the subset of apiclient.Client the services depend on.
type RestAPI interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
	Post(ctx context.Context, path string, payload interface{}) ([]byte, error)
	Put(ctx context.Context, path string, payload interface{}) ([]byte, error)
	Delete(ctx context.Context, path string) ([]byte, error)
}

// EventPublisher fans dashboard events out to live sockets and chat.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{})
}

// Dashboard event types
const (
	EventPaymentRecorded      = "payment.recorded"
	EventEnquiryStatusChanged = "enquiry.status_changed"
	EventAttendanceMarked     = "attendance.marked"
)

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
