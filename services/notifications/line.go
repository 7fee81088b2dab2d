package notifications

import (
	"fmt"

	"github.com/line/line-bot-sdk-go/linebot"
	"github.com/sirupsen/logrus"
)

// LineMessenger pushes text to LINE groups through the Messaging API.
type LineMessenger struct {
	bot *linebot.Client
}

// NewLineMessenger returns nil when the channel credentials are not
// configured, which disables LINE delivery.
func NewLineMessenger(channelSecret, channelToken string) (*LineMessenger, error) {
	if channelSecret == "" || channelToken == "" {
		logrus.Warn("LINE Messaging API disabled: missing LINE_CHANNEL_SECRET or LINE_CHANNEL_ACCESS_TOKEN")
		return nil, nil
	}
	bot, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, fmt.Errorf("cannot create LINE bot client: %w", err)
	}
	return &LineMessenger{bot: bot}, nil
}

// PushText implements Messenger.
func (m *LineMessenger) PushText(groupID, text string) error {
	if m == nil || m.bot == nil {
		return fmt.Errorf("LINE bot client is not initialized")
	}
	if _, err := m.bot.PushMessage(groupID, linebot.NewTextMessage(text)).Do(); err != nil {
		return fmt.Errorf("LINE Messaging API failed: %w", err)
	}
	return nil
}

// GroupName looks up the display name of a group the bot is in.
func (m *LineMessenger) GroupName(groupID string) (string, error) {
	if m == nil || m.bot == nil {
		return "", fmt.Errorf("LINE bot client is not initialized")
	}
	summary, err := m.bot.GetGroupSummary(groupID).Do()
	if err != nil {
		return "", fmt.Errorf("LINE group summary failed: %w", err)
	}
	return summary.GroupName, nil
}
