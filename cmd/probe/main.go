// Command probe connects to a running presence hub as a dev user, joins a
// room, optionally posts a message, and prints what the room looks like.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"presence-hub/auth"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	identity := domain.Identity{ID: config.UserID, DisplayName: config.DisplayName}
	token, err := auth.GenerateToken(config.Secret, config.Issuer, identity, time.Hour)
	if err != nil {
		return fmt.Errorf("token generation failed: %w", err)
	}

	header(os.Stdout, fmt.Sprintf("Live events in %s as %s", config.Room, config.DisplayName), config.Colours)
	if err := listen(config, token); err != nil {
		return err
	}

	header(os.Stdout, "Roster", config.Colours)
	var users struct {
		Users []domain.Identity `json:"users"`
	}
	if err := getJSON(config.URL+"/api/rooms/"+url.PathEscape(config.Room)+"/users", token, &users); err != nil {
		return err
	}
	renderRoster(os.Stdout, users.Users)

	header(os.Stdout, "History", config.Colours)
	var history struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	if err := getJSON(config.URL+"/api/rooms/"+url.PathEscape(config.Room)+"/messages", token, &history); err != nil {
		return err
	}
	renderHistory(os.Stdout, history.Messages)
	return nil
}

// listen joins the room, sends the optional message and prints every frame
// received until the listen window is over.
func listen(config Config, token string) error {
	wsURL := "ws" + strings.TrimPrefix(config.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Authorization": []string{"Bearer " + token}})
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer conn.Close()

	if err := send(conn, event.JoinRoomKind, config.Room); err != nil {
		return err
	}
	if config.Message != "" {
		message := map[string]string{"roomId": config.Room, "content": config.Message}
		if err := send(conn, event.NewMessageKind, message); err != nil {
			return err
		}
	}

	deadline := time.Now().Add(config.Listen)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return err
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
				break
			}
			return fmt.Errorf("websocket read failed: %w", err)
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			fmt.Fprintf(os.Stderr, "Unreadable frame: %s\n", raw)
			continue
		}
		printFrame(os.Stdout, f, config.Colours)
	}

	_ = send(conn, event.DisconnectKind, nil)
	return nil
}

func send(conn *websocket.Conn, kind event.Kind, data any) error {
	if err := conn.WriteJSON(map[string]any{"event": kind, "data": data}); err != nil {
		return fmt.Errorf("sending %s failed: %w", kind, err)
	}
	return nil
}

func getJSON(target, token string, dst any) error {
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	client := http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", target, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
