package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	ChatID string
	Text   string
}

func fakeBotAPI(t *testing.T) (*httptest.Server, func() []sentMessage) {
	t.Helper()

	var mu sync.Mutex
	var sent []sentMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			http.NotFound(w, r)
			return
		}

		body, _ := io.ReadAll(r.Body)
		msg := sentMessage{}
		var payload map[string]any
		if json.Unmarshal(body, &payload) == nil {
			msg.ChatID, _ = payload["chat_id"].(string)
			msg.Text, _ = payload["text"].(string)
		} else if form, err := url.ParseQuery(string(body)); err == nil {
			msg.ChatID = form.Get("chat_id")
			msg.Text = form.Get("text")
		}

		mu.Lock()
		sent = append(sent, msg)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":123456,"type":"private"},"text":"ok"}}`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []sentMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]sentMessage(nil), sent...)
	}
}

func TestMessenger_Send(t *testing.T) {
	srv, sent := fakeBotAPI(t)

	m, err := New(Config{Token: "test-token", APIURL: srv.URL}, zerolog.Nop())
	require.NoError(t, err)

	t.Run("Success: Message reaches the chat", func(t *testing.T) {
		err := m.Send(context.Background(), "123456", "It's time to do Run at Park!")

		require.NoError(t, err)
		msgs := sent()
		require.Len(t, msgs, 1)
		assert.Equal(t, "123456", msgs[0].ChatID)
		assert.Equal(t, "It's time to do Run at Park!", msgs[0].Text)
	})

	t.Run("Error: Chat id must be numeric", func(t *testing.T) {
		err := m.Send(context.Background(), "@someone", "hi")
		assert.Error(t, err)
	})

	t.Run("Error: Cancelled context stops waiting for the limiter", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		slow, err := New(Config{Token: "test-token", APIURL: srv.URL, RatePerSec: 0.001}, zerolog.Nop())
		require.NoError(t, err)
		require.NoError(t, slow.Send(context.Background(), "1", "first"))

		err = slow.Send(ctx, "1", "second")
		assert.Error(t, err)
	})
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(Config{Token: "  "}, zerolog.Nop())
	assert.Error(t, err)
}

func TestLogMessenger(t *testing.T) {
	var buf strings.Builder
	m := NewLogMessenger(zerolog.New(&buf))

	require.NoError(t, m.Send(context.Background(), "42", "hello"))

	assert.Contains(t, buf.String(), `"chat_id":"42"`)
	assert.Contains(t, buf.String(), `"text":"hello"`)
}
