package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	Path    string
	Payload map[string]any
}

func newTestClient(t *testing.T, handler func(call apiCall) any) (*Client, *[]apiCall) {
	t.Helper()

	var calls []apiCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		call := apiCall{Path: r.URL.Path, Payload: payload}
		calls = append(calls, call)

		result := handler(call)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
	}))
	t.Cleanup(srv.Close)

	return NewClientWithBaseURL("test-token", srv.URL), &calls
}

func TestSend(t *testing.T) {
	client, calls := newTestClient(t, func(apiCall) any { return nil })

	kb := Keyboard(Row(Button("Да", "confirm")))
	require.NoError(t, client.Send(context.Background(), 42, "привет", kb))

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/bottest-token/sendMessage", call.Path)
	assert.Equal(t, float64(42), call.Payload["chat_id"])
	assert.Equal(t, "привет", call.Payload["text"])
	assert.Contains(t, call.Payload, "reply_markup")
}

func TestSendWithoutKeyboard(t *testing.T) {
	client, calls := newTestClient(t, func(apiCall) any { return nil })

	require.NoError(t, client.Send(context.Background(), 42, "привет", nil))
	assert.NotContains(t, (*calls)[0].Payload, "reply_markup")
}

func TestEdit(t *testing.T) {
	client, calls := newTestClient(t, func(apiCall) any { return nil })

	require.NoError(t, client.Edit(context.Background(), 42, 7, "обновлено", nil))

	call := (*calls)[0]
	assert.Equal(t, "/bottest-token/editMessageText", call.Path)
	assert.Equal(t, float64(7), call.Payload["message_id"])
}

func TestGetUpdates(t *testing.T) {
	client, calls := newTestClient(t, func(apiCall) any {
		return []Update{
			{UpdateID: 10, Message: &Message{MessageID: 1, Chat: Chat{ID: 42}, Text: "/start"}},
			{UpdateID: 11, CallbackQuery: &CallbackQuery{ID: "cb", Data: "menu"}},
		}
	})

	updates, err := client.GetUpdates(context.Background(), 10, 25*time.Second)
	require.NoError(t, err)

	require.Len(t, updates, 2)
	assert.Equal(t, int64(10), updates[0].UpdateID)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, "menu", updates[1].CallbackQuery.Data)

	payload := (*calls)[0].Payload
	assert.Equal(t, float64(10), payload["offset"])
	assert.Equal(t, float64(25), payload["timeout"])
}

func TestGetUpdatesOmitsZeroOffset(t *testing.T) {
	client, calls := newTestClient(t, func(apiCall) any { return []Update{} })

	_, err := client.GetUpdates(context.Background(), 0, time.Second)
	require.NoError(t, err)
	assert.NotContains(t, (*calls)[0].Payload, "offset")
}

func TestAPIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "Bad Request: chat not found"})
	}))
	t.Cleanup(srv.Close)

	client := NewClientWithBaseURL("test-token", srv.URL)

	err := client.Send(context.Background(), 42, "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
