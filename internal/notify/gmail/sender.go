package gmail

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"avsched/internal/config"
	"avsched/internal/notify"
)

// Sender mails sync reports through the Gmail API as the authorised user.
type Sender struct {
	service *gmail.Service
	from    string
	to      []string
}

func NewSender(ctx context.Context, cfg config.Config) (*Sender, error) {
	required := []struct{ name, value string }{
		{"GMAIL_CLIENT_ID", cfg.GmailClientID},
		{"GMAIL_CLIENT_SECRET", cfg.GmailClientSecret},
		{"GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken},
		{"REPORT_FROM", cfg.ReportFrom},
	}
	for _, r := range required {
		if err := cfg.Require(r.name, r.value); err != nil {
			return nil, err
		}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailSendScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}
	return NewSenderWithService(svc, cfg.ReportFrom, cfg.ReportTo), nil
}

func NewSenderWithService(svc *gmail.Service, from string, to []string) *Sender {
	return &Sender{service: svc, from: from, to: to}
}

func (s *Sender) Name() string { return "gmail" }

func (s *Sender) Notify(ctx context.Context, r notify.Report) error {
	raw, err := notify.BuildReportMessage(s.from, s.to, r)
	if err != nil {
		return err
	}
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := s.service.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	return nil
}
