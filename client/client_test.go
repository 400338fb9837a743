package main

import (
	"chat-relay/domain"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_ParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    outgoing
		wantErr bool
	}{
		{"message", "2 hello there", outgoing{ReceiverID: 2, Message: "hello there"}, false},
		{"trims message", "7   hi ", outgoing{ReceiverID: 7, Message: "hi"}, false},
		{"missing message", "2", outgoing{}, true},
		{"not a number", "bob hi", outgoing{}, true},
		{"negative id", "-1 hi", outgoing{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func Test_WebsocketURL(t *testing.T) {
	req := require.New(t)

	u, err := websocketURL("http://localhost:8000")
	req.NoError(err)
	req.Equal("ws://localhost:8000/ws", u)

	u, err = websocketURL("https://chat.example/api/")
	req.NoError(err)
	req.Equal("wss://chat.example/api/ws", u)

	_, err = websocketURL("ftp://chat.example")
	req.Error(err)
}

func Test_Login(t *testing.T) {
	req := require.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.URL.Path != "/token" || r.PostForm.Get("password") != "password123" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer"}`))
	}))
	t.Cleanup(srv.Close)

	token, err := login(context.Background(), srv.Client(), srv.URL, "alice", "password123")
	req.NoError(err)
	req.Equal("abc", token)

	_, err = login(context.Background(), srv.Client(), srv.URL, "alice", "wrong")
	req.ErrorContains(err, "Incorrect username or password")
}

func Test_FormatMessage(t *testing.T) {
	line := formatMessage(domain.OutboundMessage{
		SenderID:          1,
		ReceiverID:        2,
		SenderDisplayName: "alice",
		Content:           "hello",
		Timestamp:         time.Now(),
	})
	require.Contains(t, line, "alice (#1) -> #2")
	require.Contains(t, line, "hello")
}
