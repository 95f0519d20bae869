package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// ErrTimeout is returned when no matching response arrives in time.
var ErrTimeout = errors.New("request timed out")

// Client issues path requests to a path server over UDP. It handles one
// request at a time.
type Client struct {
	conn    *net.UDPConn
	maxSize int
	seq     atomic.Uint64
}

func Dial(addr string, maxSize int) (*Client, error) {
	if maxSize <= 0 {
		maxSize = 64 * 1024
	}
	target, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp addr: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, target)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &Client{conn: conn, maxSize: maxSize}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes a message without waiting for a reply.
func (c *Client) Send(msgType MessageType, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}
	data, err := Encode(Envelope{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Seq:       c.seq.Add(1),
		Payload:   raw,
	})
	if err != nil {
		return err
	}
	_, err = c.conn.Write(data)
	return err
}

// RequestPath sends req and waits for the response carrying the same
// RequestID. Unrelated datagrams are dropped.
func (c *Client) RequestPath(ctx context.Context, req PathRequest, timeout time.Duration) (PathResponse, error) {
	if err := c.Send(MessagePathRequest, req); err != nil {
		return PathResponse{}, fmt.Errorf("send path request: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	buffer := make([]byte, c.maxSize)
	for {
		if err := ctx.Err(); err != nil {
			return PathResponse{}, err
		}
		if !time.Now().Before(deadline) {
			return PathResponse{}, fmt.Errorf("path request %s: %w", req.RequestID, ErrTimeout)
		}

		readUntil := time.Now().Add(250 * time.Millisecond)
		if readUntil.After(deadline) {
			readUntil = deadline
		}
		c.conn.SetReadDeadline(readUntil)
		n, err := c.conn.Read(buffer)
		if err != nil {
			if nErr, ok := err.(net.Error); ok && nErr.Timeout() {
				continue
			}
			return PathResponse{}, err
		}

		env, err := Decode(buffer[:n])
		if err != nil || env.Type != MessagePathResponse {
			continue
		}
		var resp PathResponse
		if err := json.Unmarshal(env.Payload, &resp); err != nil {
			continue
		}
		if resp.RequestID == req.RequestID {
			return resp, nil
		}
	}
}
