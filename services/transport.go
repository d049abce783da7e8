package services

import (
	"context"
	"fmt"

	"repairdesk-backend/utils"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// Transport delivers one message. It returns a provider reference when the
// provider hands one back.
type Transport interface {
	Name() string
	Send(ctx context.Context, phone, message string) (string, error)
}

// LogTransport only records the intent to notify. It never fails.
type LogTransport struct {
	log *zap.Logger
}

func NewLogTransport(log *zap.Logger) *LogTransport {
	return &LogTransport{log: log}
}

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Send(ctx context.Context, phone, message string) (string, error) {
	t.log.Info("notification queued", zap.String("phone", phone), zap.Int("length", len([]rune(message))))
	return "", nil
}

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	From         string
	WhatsAppFrom string
}

// TwilioTransport sends SMS, or WhatsApp when a WhatsApp sender is configured.
type TwilioTransport struct {
	client       *twilio.RestClient
	from         string
	whatsAppFrom string
	log          *zap.Logger
}

func NewTwilioTransport(cfg TwilioConfig, log *zap.Logger) *TwilioTransport {
	return &TwilioTransport{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from:         cfg.From,
		whatsAppFrom: cfg.WhatsAppFrom,
		log:          log,
	}
}

func (t *TwilioTransport) Name() string {
	if t.whatsAppFrom != "" {
		return "whatsapp"
	}
	return "sms"
}

func (t *TwilioTransport) Send(ctx context.Context, phone, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	to := utils.ToE164(phone)
	params := &twilioApi.CreateMessageParams{}
	params.SetBody(message)
	if t.whatsAppFrom != "" {
		params.SetTo("whatsapp:" + to)
		params.SetFrom("whatsapp:" + t.whatsAppFrom)
	} else {
		params.SetTo(to)
		params.SetFrom(t.from)
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		t.log.Warn("twilio send failed", zap.String("to", to), zap.Error(err))
		return "", fmt.Errorf("twilio send to %s: %w", to, err)
	}
	if resp.Sid == nil {
		t.log.Info("message sent without SID", zap.String("to", to))
		return "", nil
	}
	t.log.Info("message sent", zap.String("to", to), zap.String("sid", *resp.Sid))
	return *resp.Sid, nil
}
