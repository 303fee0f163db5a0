package notify

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	sent []tgbotapi.MessageConfig
}

func (s *captureSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestAnnounce(t *testing.T) {
	s := &captureSender{}
	tg := NewTelegramWithSender(s, -100, nil)

	require.NoError(t, tg.Announce(context.Background(), "Hack Week", "Grace", "Submissions close at *noon*"))
	require.Len(t, s.sent, 1)
	assert.Equal(t, int64(-100), s.sent[0].ChatID)
	assert.Empty(t, s.sent[0].ParseMode)
	assert.Contains(t, s.sent[0].Text, "Hack Week")
	assert.Contains(t, s.sent[0].Text, "Submissions close at *noon*")
}

func TestFormatAnnouncementTruncates(t *testing.T) {
	text := FormatAnnouncement("Hack Week", "Grace", strings.Repeat("é", 5000))
	assert.Equal(t, maxTelegramText, utf8.RuneCountInString(text))
	assert.True(t, strings.HasSuffix(text, "…"))
}
