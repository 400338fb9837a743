package main

import (
	"bufio"
	"chat-relay/domain"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=http://localhost:8000"`
	Username  string `env:"CHAT_USERNAME,required=true"`
	Password  string `env:"CHAT_PASSWORD,required=true"`
	LogLevel  string `env:"LOG_LEVEL,default=WARN"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run logs in, opens the live connection and relays stdin lines of the form
// "<receiverId> <message>" until Ctrl+C or the server hangs up.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := login(ctx, http.DefaultClient, config.ServerURL, config.Username, config.Password)
	if err != nil {
		return exitRuntime, err
	}

	wsURL, err := websocketURL(config.ServerURL)
	if err != nil {
		return exitConfig, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL,
		http.Header{"Authorization": {"Bearer " + token}})
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", wsURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	color.Green.Printf(">>> Connected as %s. Type \"<receiverId> <message>\" (Ctrl+C to quit)\n", config.Username)

	received := make(chan error, 1)
	go func() { received <- readLoop(conn, os.Stdout) }()
	go writeLoop(ctx, conn, os.Stdin, log)

	select {
	case <-ctx.Done():
		return exitOK, nil
	case err := <-received:
		if err == nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("connection lost: %w", err)
	}
}

func login(ctx context.Context, client *http.Client, serverURL, username, password string) (string, error) {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(serverURL, "/")+"/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("login refused (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("invalid login response: %w", err)
	}
	return token.AccessToken, nil
}

// websocketURL turns the REST base URL into the live endpoint URL.
func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

func readLoop(conn *websocket.Conn, out io.Writer) error {
	for {
		var msg domain.OutboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		fmt.Fprintln(out, formatMessage(msg))
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, in io.Reader, log *slog.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		payload, err := parseLine(line)
		if err != nil {
			color.Red.Println(err.Error())
			continue
		}
		if err := conn.WriteJSON(payload); err != nil {
			log.Warn("Send failed", "error", err)
			return
		}
	}
}

type outgoing struct {
	ReceiverID int64  `json:"receiverId"`
	Message    string `json:"message"`
}

func parseLine(line string) (outgoing, error) {
	target, text, found := strings.Cut(line, " ")
	if !found {
		return outgoing{}, fmt.Errorf("usage: <receiverId> <message>")
	}
	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil || id <= 0 {
		return outgoing{}, fmt.Errorf("receiverId must be a positive integer, got %q", target)
	}
	return outgoing{ReceiverID: id, Message: strings.TrimSpace(text)}, nil
}

func formatMessage(msg domain.OutboundMessage) string {
	header := fmt.Sprintf("[%s] %s (#%d) -> #%d",
		msg.Timestamp.Local().Format(time.TimeOnly),
		msg.SenderDisplayName,
		msg.SenderID,
		msg.ReceiverID,
	)
	return color.New(color.FgCyan).Render(header) + " " + msg.Content
}
