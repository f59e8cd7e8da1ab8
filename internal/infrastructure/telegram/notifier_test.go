package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	mu       sync.Mutex
	methods  []string
	messages []string
	chats    []string
	failSend bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	f.mu.Lock()
	f.methods = append(f.methods, method)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"scanner","username":"scanner_bot"}}`))
	case "sendMessage":
		if f.failSend {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		f.mu.Lock()
		f.messages = append(f.messages, r.Form.Get("text"))
		f.chats = append(f.chats, r.Form.Get("chat_id"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100200,"type":"channel"}}}`))
	default:
		http.NotFound(w, r)
	}
}

func newFakeNotifier(t *testing.T, api *fakeBotAPI) *Notifier {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	n, err := NewNotifierWithEndpoint("123:abc", "-100200", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)
	return n
}

func TestPublishDigest(t *testing.T) {
	api := &fakeBotAPI{}
	n := newFakeNotifier(t, api)

	require.NoError(t, n.PublishDigest(context.Background(), "Ingestion run abc\nQuestions: 2 new"))
	require.Equal(t, []string{"getMe", "sendMessage"}, api.methods)
	require.Equal(t, []string{"Ingestion run abc\nQuestions: 2 new"}, api.messages)
	require.Equal(t, []string{"-100200"}, api.chats)
}

func TestPublishDigestReportsAPIErrors(t *testing.T) {
	n := newFakeNotifier(t, &fakeBotAPI{failSend: true})

	err := n.PublishDigest(context.Background(), "digest")
	require.Error(t, err)
	require.Contains(t, err.Error(), "chat not found")
}

func TestPublishDigestHonoursContext(t *testing.T) {
	api := &fakeBotAPI{}
	n := newFakeNotifier(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, n.PublishDigest(ctx, "digest"), context.Canceled)
	require.Equal(t, []string{"getMe"}, api.methods)
}

func TestNewNotifierValidation(t *testing.T) {
	_, err := NewNotifierWithEndpoint("", "1", "http://unused/bot%s/%s", nil)
	require.Error(t, err)

	_, err = NewNotifierWithEndpoint("token", "not-a-number", "http://unused/bot%s/%s", nil)
	require.Error(t, err)

	var nilNotifier *Notifier
	require.Error(t, nilNotifier.PublishDigest(context.Background(), "x"))
}
