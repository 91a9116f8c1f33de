// Package network talks to a running keyboardsim API from another process.
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/slimemax/keyboardsim/internal/protocol"
	"github.com/slimemax/keyboardsim/internal/runner"
)

// Client drives a remote instance over HTTP and tails it over websocket
type Client struct {
	hostAddr string
	token    string
	http     *http.Client

	// ReconnectDelay is the wait between Tail reconnect attempts
	ReconnectDelay time.Duration

	// Callbacks for Tail
	OnLog    func(line string)
	OnStatus func(st runner.Status)
	OnError  func(msg string)
}

// NewClient creates a client for hostAddr ("host:port")
func NewClient(hostAddr, token string) *Client {
	return &Client{
		hostAddr:       hostAddr,
		token:          token,
		http:           &http.Client{Timeout: 10 * time.Second},
		ReconnectDelay: 5 * time.Second,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://"+c.hostAddr+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", c.hostAddr, err)
	}
	return resp, nil
}

// remoteError turns a non-2xx response into an error
func remoteError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := gjson.GetBytes(body, "error").String()
	if msg == "" {
		msg = string(bytes.TrimSpace(body))
	}
	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("%w (remote)", runner.ErrBusy)
	}
	return fmt.Errorf("remote returned status %d: %s", resp.StatusCode, msg)
}

// Run starts a run remotely and returns the effective configuration
func (c *Client) Run(ctx context.Context, req protocol.RunRequest) (runner.RunConfig, error) {
	resp, err := c.do(ctx, "POST", "/api/run", req)
	if err != nil {
		return runner.RunConfig{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return runner.RunConfig{}, remoteError(resp)
	}

	var out struct {
		Config runner.RunConfig `json:"config"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return runner.RunConfig{}, fmt.Errorf("invalid run response: %w", err)
	}
	return out.Config, nil
}

// Stop requests the remote run to end
func (c *Client) Stop(ctx context.Context) error {
	resp, err := c.do(ctx, "POST", "/api/stop", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remoteError(resp)
	}
	return nil
}

// Status fetches the remote controller snapshot
func (c *Client) Status(ctx context.Context) (runner.Status, error) {
	var st runner.Status
	resp, err := c.do(ctx, "GET", "/api/status", nil)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return st, remoteError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("invalid status response: %w", err)
	}
	return st, nil
}

// Logs fetches up to n of the newest remote log lines; n <= 0 fetches all
func (c *Client) Logs(ctx context.Context, n int) ([]string, error) {
	path := "/api/logs"
	if n > 0 {
		path += "?n=" + strconv.Itoa(n)
	}
	resp, err := c.do(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range gjson.GetBytes(body, "lines").Array() {
		out = append(out, line.String())
	}
	return out, nil
}

// Tail streams log and status messages to the callbacks until ctx is done,
// reconnecting after ReconnectDelay when the connection drops.
func (c *Client) Tail(ctx context.Context) error {
	for {
		c.connect(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.ReconnectDelay):
			log.Println("WS Client: Attempting reconnection...")
		}
	}
}

func (c *Client) connect(ctx context.Context) {
	u := url.URL{Scheme: "ws", Host: c.hostAddr, Path: "/ws"}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		log.Printf("WS Client: Connection to %s failed: %v", u.String(), err)
		return
	}
	defer conn.Close()
	log.Printf("WS Client: Connected to %s", u.String())

	// Unblocks ReadMessage on cancellation
	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	c.readPump(conn)
}

func (c *Client) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(64 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WS Client: Read error: %v", err)
			}
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	if !gjson.ValidBytes(data) {
		log.Printf("WS Client: Invalid message")
		return
	}

	msg := gjson.ParseBytes(data)
	switch protocol.MessageType(msg.Get("type").String()) {
	case protocol.TypeLog:
		if c.OnLog != nil {
			c.OnLog(msg.Get("payload.line").String())
		}

	case protocol.TypeStatus:
		if c.OnStatus == nil {
			return
		}
		var st runner.Status
		if err := json.Unmarshal([]byte(msg.Get("payload").Raw), &st); err != nil {
			log.Printf("WS Client: Invalid status payload: %v", err)
			return
		}
		c.OnStatus(st)

	case protocol.TypeError:
		if c.OnError != nil {
			c.OnError(msg.Get("payload.error").String())
		}
	}
}
