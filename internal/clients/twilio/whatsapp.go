package twilio

import (
	"context"
	"fmt"
	"strings"

	types "github.com/yungbote/waxal-backend/internal/domain/collection"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
	"github.com/yungbote/waxal-backend/internal/platform/vars"
)

// SenderVar names the variable holding the WhatsApp business number.
const SenderVar = "whatsapp-number"

// Messenger delivers workflow messages over WhatsApp.
type Messenger struct {
	client Client
	vars   vars.Store
	log    *logger.Logger
}

func NewMessenger(client Client, v vars.Store, baseLog *logger.Logger) *Messenger {
	return &Messenger{client: client, vars: v, log: baseLog.With("service", "WhatsAppMessenger")}
}

// Send delivers text, mediaURL or both to recipient. Either may be empty,
// not both.
func (m *Messenger) Send(ctx context.Context, recipient, text, mediaURL string) error {
	to := WhatsAppAddress(recipient)
	if to == "" {
		return fmt.Errorf("whatsapp: recipient %q has no digits", recipient)
	}
	sender, err := m.vars.Get(SenderVar)
	if err != nil {
		return err
	}
	req := SendMessageRequest{
		To:   to,
		From: WhatsAppAddress(sender),
		Body: text,
	}
	if strings.TrimSpace(mediaURL) != "" {
		req.MediaURLs = []string{mediaURL}
	}
	msg, err := m.client.SendMessage(ctx, req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	if msg != nil {
		m.log.Debug("WhatsApp message accepted", "sid", msg.SID, "status", msg.Status, "to", to)
	}
	return nil
}

// WhatsAppAddress renders a phone number as "whatsapp:+<digits>".
func WhatsAppAddress(number string) string {
	digits := types.NormalizePhone(number)
	if digits == "" {
		return ""
	}
	return "whatsapp:+" + digits
}
