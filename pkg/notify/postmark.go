package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/mrz1836/postmark"
)

var (
	ErrInvalidPostmarkConfig = errors.New("notify: invalid postmark configuration")
	ErrDeliveryFailed        = errors.New("notify: delivery failed")
)

// PostmarkConfig configures e-mail delivery of alerts.
type PostmarkConfig struct {
	ServerToken  string   `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string   `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string   `env:"ALERT_SENDER_EMAIL"`
	Recipients   []string `env:"ALERT_RECIPIENTS" envSeparator:","`
	Tag          string   `env:"ALERT_EMAIL_TAG" envDefault:"launchkit-alert"`
	// BaseURL overrides the Postmark API endpoint; empty keeps the client default.
	BaseURL string `env:"POSTMARK_BASE_URL"`
}

// PostmarkSink sends alerts as plain-text e-mails. It delivers immediately;
// wrap it with Deferred to honour delays.
type PostmarkSink struct {
	client *postmark.Client
	config PostmarkConfig
}

// NewPostmarkSink validates cfg and creates the sink.
func NewPostmarkSink(cfg PostmarkConfig) (*PostmarkSink, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidPostmarkConfig)
	}
	if _, err := mail.ParseAddress(cfg.SenderEmail); err != nil {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidPostmarkConfig)
	}
	if len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", ErrInvalidPostmarkConfig)
	}
	for _, r := range cfg.Recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			return nil, fmt.Errorf("%w: recipient %q is not a valid email address", ErrInvalidPostmarkConfig, r)
		}
	}

	client := postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	if cfg.BaseURL != "" {
		client.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &PostmarkSink{client: client, config: cfg}, nil
}

func (s *PostmarkSink) Notify(ctx context.Context, title, body string, _ time.Duration) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.config.SenderEmail,
		To:       strings.Join(s.config.Recipients, ","),
		Subject:  title,
		TextBody: body,
		Tag:      s.config.Tag,
	})
	if err != nil {
		return errors.Join(ErrDeliveryFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrDeliveryFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}
