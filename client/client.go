// Package client is a thin Go client for the game server. It keeps received
// snapshots in an interpolation buffer and exposes every other event.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"snakeball-backend/constants"
	"snakeball-backend/interpolation"
	"snakeball-backend/models"
	"snakeball-backend/protocol"
)

const writeWait = 10 * time.Second

type Client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	events chan protocol.Envelope
	log    zerolog.Logger

	Buffer *interpolation.Buffer
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges a username for a session token.
func Login(ctx context.Context, baseURL, username string) (string, error) {
	body, err := json.Marshal(map[string]string{"username": username})
	if err != nil {
		return "", errors.Wrap(err, "encode login")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "login")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("login: unexpected status %s", resp.Status)
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode login response")
	}
	return out.Token, nil
}

// Dial opens the game websocket, retrying with exponential backoff until ctx
// is done.
func Dial(ctx context.Context, wsURL, token string) (*Client, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse websocket url")
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	var conn *websocket.Conn
	connect := func() error {
		c, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				return backoff.Permanent(errors.New("token rejected"))
			}
			return err
		}
		conn = c
		return nil
	}
	if err := backoff.Retry(connect, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return nil, errors.Wrap(err, "dial game server")
	}

	return &Client{
		conn:   conn,
		events: make(chan protocol.Envelope, 256),
		log:    log.With().Str("component", "client").Logger(),
		Buffer: interpolation.NewBuffer(interpolation.DefaultDelay, interpolation.DefaultWindow),
	}, nil
}

func (c *Client) Send(msgType string, data any) error {
	frame, err := protocol.Encode(msgType, data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Events delivers every non-snapshot message. It is closed when Run returns.
func (c *Client) Events() <-chan protocol.Envelope {
	return c.events
}

// Run reads from the connection until it fails or ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return errors.Wrap(err, "read")
		}

		env, err := protocol.DecodeEnvelope(frame)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}

		switch env.Type {
		case constants.MSG_GAME_STATE, constants.MSG_GAME_START:
			snap, err := protocol.DecodePayload[models.Snapshot](env)
			if err != nil {
				c.log.Warn().Err(err).Msg("dropping malformed snapshot")
				continue
			}
			c.Buffer.Push(snap)
			if env.Type == constants.MSG_GAME_STATE {
				continue
			}
		}

		select {
		case c.events <- env:
		default:
			c.log.Warn().Str("type", env.Type).Msg("event buffer full")
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return c.conn.Close()
}
