package scheduler

import (
	"context"
	"fmt"
	"strings"

	"avsched/internal/config"
	"avsched/internal/notify"
	gmailnotify "avsched/internal/notify/gmail"
	imapnotify "avsched/internal/notify/imap"
)

// MakeNotifiers builds the notifiers listed in NotifyProviders.
func MakeNotifiers(ctx context.Context, cfg config.Config) (notify.Multi, error) {
	var out notify.Multi
	for _, provider := range cfg.NotifyProviders {
		n, err := makeNotifier(ctx, cfg, strings.ToLower(strings.TrimSpace(provider)))
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func makeNotifier(ctx context.Context, cfg config.Config, provider string) (notify.Notifier, error) {
	switch provider {
	case "redis":
		return notify.NewRedisNotifier(cfg)
	case "gmail":
		return gmailnotify.NewSender(ctx, cfg)
	case "imap":
		return imapnotify.NewAppender(cfg)
	default:
		return nil, fmt.Errorf("unsupported notify provider: %s", provider)
	}
}
