package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/entertainbot/internal/domain"
)

var (
	chatAddr    string
	chatSession string

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running server over WebSocket",
		RunE:  runChat,
	}
)

func init() {
	chatCmd.Flags().StringVar(&chatAddr, "addr", "ws://localhost:5000/ws", "WebSocket server address")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "resume an existing session ID")
}

// chatClient is a line-oriented WebSocket client.
type chatClient struct {
	conn      *websocket.Conn
	sessionID string
	replies   chan domain.WSMessage
	done      chan struct{}
}

func dialChat(addr string) (*chatClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &chatClient{
		conn:    conn,
		replies: make(chan domain.WSMessage, 1),
		done:    make(chan struct{}),
	}, nil
}

func (c *chatClient) Close() error {
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// hello sends a hello message and waits for hello_ack.
func (c *chatClient) hello(sessionID string) error {
	msg := domain.WSMessage{
		Type:      domain.WSTypeHello,
		Ts:        time.Now().UnixMilli(),
		SessionID: sessionID,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	var ack domain.WSMessage
	if err := c.conn.ReadJSON(&ack); err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}
	if ack.Type == domain.WSTypeError {
		return fmt.Errorf("hello failed: %s - %s", ack.Code, ack.Message)
	}
	if ack.Type != domain.WSTypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", ack.Type)
	}

	c.sessionID = ack.SessionID
	return nil
}

// readLoop forwards server frames to replies until the connection closes.
func (c *chatClient) readLoop() {
	defer close(c.done)
	for {
		var msg domain.WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, io.EOF) {
				fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			}
			return
		}
		c.replies <- msg
	}
}

func (c *chatClient) send(msgType, text string) error {
	return c.conn.WriteJSON(domain.WSMessage{
		Type:      msgType,
		Ts:        time.Now().UnixMilli(),
		SessionID: c.sessionID,
		Message:   text,
	})
}

// wait blocks for the next server frame.
func (c *chatClient) wait(interrupt <-chan os.Signal) (domain.WSMessage, bool) {
	select {
	case msg := <-c.replies:
		return msg, true
	case <-c.done:
		return domain.WSMessage{}, false
	case <-interrupt:
		return domain.WSMessage{}, false
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connecting to %s...\n", chatAddr)

	client, err := dialChat(chatAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.hello(chatSession); err != nil {
		return err
	}

	fmt.Fprintf(out, "Session: %s\n", client.sessionID)
	fmt.Fprintln(out, "Type a message and press Enter. Commands: /clear, /quit")

	go client.readLoop()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Fprintln(out, "Bye!")
			return nil
		case "/clear":
			err = client.send(domain.WSTypeClear, "")
		default:
			err = client.send(domain.WSTypeChat, input)
		}
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}

		msg, ok := client.wait(interrupt)
		if !ok {
			fmt.Fprintln(out, "\nDisconnected")
			return nil
		}
		printFrame(out, msg)
	}
}

func printFrame(w io.Writer, msg domain.WSMessage) {
	switch msg.Type {
	case domain.WSTypeReply:
		fmt.Fprintf(w, "\n%s\n\n", msg.Response)
	case domain.WSTypeCleared:
		fmt.Fprintln(w, "History cleared.")
	case domain.WSTypeError:
		fmt.Fprintf(w, "error [%s]: %s\n", msg.Code, msg.Message)
	default:
		data, _ := json.MarshalIndent(msg, "", "  ")
		fmt.Fprintf(w, "[%s] %s\n", msg.Type, data)
	}
}
