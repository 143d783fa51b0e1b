// Package nostr implements the relay client and record signer.
package nostr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/interfaces"
)

const defaultTimeout = 30 * time.Second

// ErrRejected is returned when the relay answers OK false or closes a subscription
var ErrRejected = errors.New("relay rejected request")

// RelayClient speaks the relay websocket protocol over a single connection.
// Operations are serialized; a failed connection is redialed on next use.
type RelayClient struct {
	url     string
	dialer  *websocket.Dialer
	timeout time.Duration
	logger  interfaces.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewRelayClient creates a client for url. Nothing is dialed until the first operation.
func NewRelayClient(url string, logger interfaces.Logger) *RelayClient {
	return &RelayClient{
		url:     url,
		dialer:  &websocket.Dialer{HandshakeTimeout: 15 * time.Second},
		timeout: defaultTimeout,
		logger:  interfaces.OrNoOp(logger),
	}
}

// WithTimeout sets the per-operation timeout used when ctx has no deadline
func (c *RelayClient) WithTimeout(d time.Duration) *RelayClient {
	c.timeout = d
	return c
}

// Close closes the connection, if any
func (c *RelayClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Query sends a subscription and collects stored records until end-of-stored-events
func (c *RelayClient) Query(ctx context.Context, filter entities.RecordFilter) ([]*entities.PublicationRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subID := uuid.NewString()
	var records []*entities.PublicationRecord

	err := c.exchange(ctx, []interface{}{"REQ", subID, encodeFilter(filter)}, func(label string, msg []json.RawMessage) (bool, error) {
		switch label {
		case "EVENT":
			if len(msg) < 3 || unquote(msg[1]) != subID {
				return false, nil
			}
			var rec entities.PublicationRecord
			if err := json.Unmarshal(msg[2], &rec); err != nil {
				c.logger.Warn("Dropping malformed record", interfaces.F("error", err.Error()))
				return false, nil
			}
			records = append(records, &rec)
		case "EOSE":
			if len(msg) >= 2 && unquote(msg[1]) == subID {
				return true, c.write([]interface{}{"CLOSE", subID})
			}
		case "CLOSED":
			if len(msg) >= 2 && unquote(msg[1]) == subID {
				reason := ""
				if len(msg) >= 3 {
					reason = unquote(msg[2])
				}
				return true, fmt.Errorf("%w: subscription closed: %s", ErrRejected, reason)
			}
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Publish sends one record and waits for the relay's OK
func (c *RelayClient) Publish(ctx context.Context, rec *entities.PublicationRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exchange(ctx, []interface{}{"EVENT", rec}, func(label string, msg []json.RawMessage) (bool, error) {
		if label != "OK" || len(msg) < 3 || unquote(msg[1]) != rec.ID {
			return false, nil
		}
		var accepted bool
		if err := json.Unmarshal(msg[2], &accepted); err != nil {
			return true, fmt.Errorf("malformed OK message: %w", err)
		}
		if accepted {
			return true, nil
		}
		reason := ""
		if len(msg) >= 4 {
			reason = unquote(msg[3])
		}
		return true, fmt.Errorf("%w: %s", ErrRejected, reason)
	})
}

// exchange writes request and feeds every response to handle until it reports done.
// Must be called with mu held.
func (c *RelayClient) exchange(ctx context.Context, request interface{}, handle func(string, []json.RawMessage) (bool, error)) error {
	if err := c.ensureConn(ctx); err != nil {
		return err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return c.fail(err)
	}
	if err := c.write(request); err != nil {
		return c.fail(err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return c.fail(err)
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return c.fail(fmt.Errorf("failed to read from relay: %w", err))
		}

		var msg []json.RawMessage
		if err := json.Unmarshal(data, &msg); err != nil || len(msg) == 0 {
			c.logger.Debug("Ignoring malformed relay message", interfaces.F("message", string(data)))
			continue
		}
		label := unquote(msg[0])
		if label == "NOTICE" && len(msg) >= 2 {
			c.logger.Warn("Relay notice", interfaces.F("relay", c.url), interfaces.F("notice", unquote(msg[1])))
			continue
		}

		done, err := handle(label, msg)
		if done || err != nil {
			return err
		}
	}
}

func (c *RelayClient) ensureConn(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to relay %s: %w", c.url, err)
	}
	c.conn = conn
	c.logger.Debug("Connected to relay", interfaces.F("relay", c.url))
	return nil
}

func (c *RelayClient) write(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// fail drops the connection so the next operation starts clean
func (c *RelayClient) fail(err error) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	return err
}

// encodeFilter renders a filter in the relay wire format
func encodeFilter(f entities.RecordFilter) map[string]interface{} {
	out := make(map[string]interface{})
	if len(f.Kinds) > 0 {
		kinds := make([]int, len(f.Kinds))
		for i, k := range f.Kinds {
			kinds[i] = int(k)
		}
		out["kinds"] = kinds
	}
	if f.Search != "" {
		out["search"] = f.Search
	}
	for key, values := range f.Tags {
		out["#"+key] = values
	}
	if f.Limit > 0 {
		out["limit"] = f.Limit
	}
	return out
}

func unquote(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
