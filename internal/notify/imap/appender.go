package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"avsched/internal/config"
	"avsched/internal/notify"
)

// Appender files sync reports into an IMAP mailbox that the ops team
// watches.
type Appender struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	mailbox  string
	from     string
	to       []string
}

func NewAppender(cfg config.Config) (*Appender, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}

	from := cfg.ReportFrom
	if from == "" {
		from = cfg.IMAPUser
	}
	to := cfg.ReportTo
	if len(to) == 0 {
		to = []string{cfg.IMAPUser}
	}

	return &Appender{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		mailbox:  cfg.IMAPMailbox,
		from:     from,
		to:       to,
	}, nil
}

func (a *Appender) Name() string { return "imap" }

func (a *Appender) Notify(ctx context.Context, r notify.Report) error {
	raw, err := notify.BuildReportMessage(a.from, a.to, r)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", a.host, a.port)
	var client *imapclient.Client
	if a.secure {
		client, err = imapclient.DialTLS(addr, &tls.Config{ServerName: a.host})
	} else {
		client, err = imapclient.Dial(addr)
	}
	if err != nil {
		return err
	}
	defer client.Logout()
	if deadline, ok := ctx.Deadline(); ok {
		client.Timeout = time.Until(deadline)
	}

	if err := client.Login(a.user, a.password); err != nil {
		return err
	}

	if err := a.ensureMailbox(client); err != nil {
		return err
	}

	literal := bytes.NewBuffer(raw)
	if err := client.Append(a.mailbox, []string{imap.SeenFlag}, time.Now(), literal); err != nil {
		return fmt.Errorf("append to %s: %w", a.mailbox, err)
	}
	return nil
}

func (a *Appender) ensureMailbox(client *imapclient.Client) error {
	mailboxes := make(chan *imap.MailboxInfo, 16)
	done := make(chan error, 1)
	go func() { done <- client.List("", a.mailbox, mailboxes) }()

	found := false
	for m := range mailboxes {
		if m != nil && m.Name == a.mailbox {
			found = true
		}
	}
	if err := <-done; err != nil {
		return err
	}
	if found {
		return nil
	}
	return client.Create(a.mailbox)
}
