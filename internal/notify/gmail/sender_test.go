package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"avsched/internal"
	"avsched/internal/config"
	"avsched/internal/notify"
)

func TestSenderPostsRawMessage(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/users/me/messages/send") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var msg gmail.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode body: %v", err)
		}
		raw, _ = base64.URLEncoding.DecodeString(msg.Raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "m-1", "threadId": "t-1"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	s := NewSenderWithService(svc, "sync@example.edu", []string{"ops@example.edu"})
	err = s.Notify(ctx, notify.Report{Window: internal.SyncWindow{From: "2025-07-14", To: "2025-07-29"}, Canonical: 3})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Subject: AV schedule sync 2025-07-14..2025-07-29: 3 events")
}

func TestNewSenderRequiresCredentials(t *testing.T) {
	cfg := config.Defaults()
	cfg.GmailClientID = "id"
	_, err := NewSender(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GMAIL_CLIENT_SECRET")
}
