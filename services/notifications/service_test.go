package notifications

import (
	"context"
	"errors"
	"testing"

	"eduadmin_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureHub struct{ messages []interface{} }

func (h *captureHub) Broadcast(m interface{}) { h.messages = append(h.messages, m) }

type captureLine struct {
	group string
	texts []string
	err   error
}

func (l *captureLine) PushText(groupID, text string) error {
	l.group = groupID
	l.texts = append(l.texts, text)
	return l.err
}

func TestPublishPaymentFansOut(t *testing.T) {
	hub := &captureHub{}
	line := &captureLine{}
	s := NewService(WithHub(hub), WithLine(line, "G123"))

	s.Publish(context.Background(), "payment.recorded", models.FeeAssignment{
		StudentID:        "s1",
		Course:           &models.Course{Name: "IELTS"},
		PaidAmount:       4000,
		PendingAmount:    5000,
		PaymentMethod:    "cash",
		PaymentReference: "PAY-1",
	})

	require.Len(t, hub.messages, 1)
	ev := hub.messages[0].(Event)
	assert.Equal(t, "payment.recorded", ev.Type)
	assert.False(t, ev.At.IsZero())

	assert.Equal(t, "G123", line.group)
	require.Len(t, line.texts, 1)
	assert.Contains(t, line.texts[0], "Course: IELTS")
	assert.Contains(t, line.texts[0], "Amount: 4000 (cash)")
	assert.Contains(t, line.texts[0], "Ref: PAY-1")
}

func TestPublishOtherEventsSkipLine(t *testing.T) {
	line := &captureLine{}
	s := NewService(WithLine(line, "G123"))

	s.Publish(context.Background(), "enquiry.status_changed", map[string]string{"to": "Closed"})

	assert.Empty(t, line.texts)
}

func TestLineFailureIsSwallowed(t *testing.T) {
	line := &captureLine{err: errors.New("quota exceeded")}
	s := NewService(WithLine(line, "G123"))

	assert.NotPanics(t, func() {
		s.Publish(context.Background(), "payment.recorded", models.FeeAssignment{StudentID: "s1"})
	})
	events, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestWithLineNeedsGroup(t *testing.T) {
	line := &captureLine{}
	s := NewService(WithLine(line, ""))

	s.Publish(context.Background(), "payment.recorded", models.FeeAssignment{})

	assert.Empty(t, line.texts)
}

func TestRecentInMemory(t *testing.T) {
	s := NewService()
	for i := 0; i < recentCap+5; i++ {
		s.Publish(context.Background(), "attendance.marked", i)
	}

	all, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, recentCap)
	assert.Equal(t, recentCap+4, all[0].Data)

	three, err := s.Recent(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, three, 3)
}
