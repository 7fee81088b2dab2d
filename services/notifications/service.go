package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"eduadmin_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Event is one dashboard event as pushed to sockets and kept in the feed.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	At   time.Time   `json:"at"`
}

// Broadcaster pushes a message to every connected dashboard socket.
type Broadcaster interface {
	Broadcast(message interface{})
}

// Messenger delivers a text message to a chat group.
type Messenger interface {
	PushText(groupID, text string) error
}

const (
	recentKey = "events:recent"
	recentCap = 100
)

// Service fans events out to the socket hub, the LINE payment group and
// the recent-events feed. Every sink is optional; sink failures are logged
// and never returned to the caller.
type Service struct {
	hub          Broadcaster
	line         Messenger
	paymentGroup string
	redis        *redis.Client

	mu     sync.Mutex
	recent []Event
}

// Option configures a Service
type Option func(*Service)

func WithHub(h Broadcaster) Option { return func(s *Service) { s.hub = h } }

// WithLine sends payment events to groupID through m.
func WithLine(m Messenger, groupID string) Option {
	return func(s *Service) {
		if m != nil && groupID != "" {
			s.line, s.paymentGroup = m, groupID
		}
	}
}

// WithRedis keeps the recent-events feed in Redis instead of process memory.
func WithRedis(c *redis.Client) Option { return func(s *Service) { s.redis = c } }

func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish implements services.EventPublisher.
func (s *Service) Publish(ctx context.Context, eventType string, data interface{}) {
	ev := Event{Type: eventType, Data: data, At: time.Now().UTC()}

	if s.hub != nil {
		s.hub.Broadcast(ev)
	}
	s.remember(ctx, ev)

	if s.line != nil {
		if text, ok := lineText(ev); ok {
			if err := s.line.PushText(s.paymentGroup, text); err != nil {
				logrus.WithField("event", eventType).WithError(err).Warn("LINE notification failed")
			}
		}
	}
}

func (s *Service) remember(ctx context.Context, ev Event) {
	if s.redis != nil {
		b, err := json.Marshal(ev)
		if err == nil {
			pipe := s.redis.TxPipeline()
			pipe.LPush(ctx, recentKey, b)
			pipe.LTrim(ctx, recentKey, 0, recentCap-1)
			if _, err = pipe.Exec(ctx); err == nil {
				return
			}
		}
		logrus.WithError(err).Warn("event feed write to Redis failed, keeping in memory")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append([]Event{ev}, s.recent...)
	if len(s.recent) > recentCap {
		s.recent = s.recent[:recentCap]
	}
}

// Recent returns up to n events, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]Event, error) {
	if n <= 0 || n > recentCap {
		n = recentCap
	}
	if s.redis != nil {
		vals, err := s.redis.LRange(ctx, recentKey, 0, int64(n-1)).Result()
		if err == nil {
			out := make([]Event, 0, len(vals))
			for _, v := range vals {
				var ev Event
				if err := json.Unmarshal([]byte(v), &ev); err == nil {
					out = append(out, ev)
				}
			}
			return out, nil
		}
		logrus.WithError(err).Warn("event feed read from Redis failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.recent) {
		n = len(s.recent)
	}
	out := make([]Event, n)
	copy(out, s.recent[:n])
	return out, nil
}

// lineText renders the chat message for events that have one.
func lineText(ev Event) (string, bool) {
	fa, ok := ev.Data.(models.FeeAssignment)
	if !ok {
		return "", false
	}
	var b strings.Builder
	b.WriteString("💰 Payment recorded\n")
	if fa.Student != nil {
		fmt.Fprintf(&b, "Student: %s\n", fa.Student.FullName())
	} else {
		fmt.Fprintf(&b, "Student: %s\n", fa.StudentID)
	}
	if fa.Course != nil {
		fmt.Fprintf(&b, "Course: %s\n", fa.Course.Name)
	} else {
		fmt.Fprintf(&b, "Course: %s\n", fa.CourseID)
	}
	fmt.Fprintf(&b, "Amount: %d (%s)\n", fa.PaidAmount, fa.PaymentMethod)
	fmt.Fprintf(&b, "Pending: %d\n", fa.PendingAmount)
	fmt.Fprintf(&b, "Ref: %s", fa.PaymentReference)
	return b.String(), true
}
