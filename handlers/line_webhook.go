package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/line/line-bot-sdk-go/linebot"
	"github.com/sirupsen/logrus"
)

// Event types published by the webhook
const (
	EventLineGroupJoined = "line.group_joined"
	EventLineGroupLeft   = "line.group_left"
)

// GroupNamer resolves a LINE group id to its display name.
type GroupNamer interface {
	GroupName(groupID string) (string, error)
}

// Publisher receives group membership events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{})
}

// LineGroup is published when the bot joins or leaves a group. Operators
// copy GroupID into LINE_PAYMENT_GROUP_ID.
type LineGroup struct {
	GroupID   string `json:"groupId"`
	GroupName string `json:"groupName,omitempty"`
}

type LineWebhookHandler struct {
	secret string
	groups GroupNamer
	events Publisher
}

// NewLineWebhookHandler returns a handler that acknowledges and ignores
// every request when secret is empty. groups and events may be nil.
func NewLineWebhookHandler(secret string, groups GroupNamer, events Publisher) *LineWebhookHandler {
	if secret == "" {
		logrus.Warn("LINE channel secret missing: webhook disabled")
	}
	return &LineWebhookHandler{secret: secret, groups: groups, events: events}
}

// Handle receives LINE webhook events.
func (h *LineWebhookHandler) Handle(c *fiber.Ctx) error {
	if h.secret == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	signature := c.Get("X-Line-Signature")
	if signature == "" {
		logrus.Warn("LINE webhook: missing signature header")
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if !ValidateSignature(h.secret, c.Body(), signature) {
		logrus.Warn("LINE webhook: signature mismatch")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var webhook struct {
		Events []*linebot.Event `json:"events"`
	}
	if err := json.Unmarshal(c.Body(), &webhook); err != nil {
		logrus.WithError(err).Warn("LINE webhook: failed to parse events")
		return c.SendStatus(fiber.StatusBadRequest)
	}

	for _, event := range webhook.Events {
		if event == nil || event.Source == nil || event.Source.GroupID == "" {
			continue
		}
		group := LineGroup{GroupID: event.Source.GroupID}

		switch event.Type {
		case linebot.EventTypeJoin:
			if h.groups != nil {
				name, err := h.groups.GroupName(group.GroupID)
				if err != nil {
					logrus.WithField("group_id", group.GroupID).WithError(err).Warn("LINE webhook: group summary failed")
				}
				group.GroupName = name
			}
			logrus.WithFields(logrus.Fields{
				"group_id":   group.GroupID,
				"group_name": group.GroupName,
			}).Info("LINE bot joined group")
			h.publish(c.UserContext(), EventLineGroupJoined, group)
		case linebot.EventTypeLeave:
			logrus.WithField("group_id", group.GroupID).Info("LINE bot left group")
			h.publish(c.UserContext(), EventLineGroupLeft, group)
		}
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *LineWebhookHandler) publish(ctx context.Context, eventType string, group LineGroup) {
	if h.events != nil {
		h.events.Publish(ctx, eventType, group)
	}
}

// ComputeSignature returns the base64 HMAC-SHA256 LINE signs bodies with.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateSignature checks the X-Line-Signature header value.
func ValidateSignature(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(ComputeSignature(secret, body)))
}
