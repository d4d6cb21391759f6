// Package transport relays a running session over a websocket: snapshots
// flow out to the browser, runtime commands flow in from it. The relay is
// bidirectional, since exactly one shape flows each way (snapshot.Snapshot
// out, session.Command in) rather than a family of interchangeable view
// models.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"groceria/session"
	"groceria/snapshot"
)

const (
	writeWait     = 1 * time.Second
	readDeadline  = 1 * time.Second
	writeDeadline = 1 * time.Second
	maxMessageSize = 1 << 16

	pubResolution  = 100 * time.Millisecond
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// ErrSockCongestion indicates too many concurrent waiters on the socket.
var ErrSockCongestion = errors.New("transport: socket operation congested")

// websock serializes reads and writes to a single websocket connection,
// which permits at most one concurrent reader and one concurrent writer.
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	conn     *websocket.Conn
}

func newWebsock(conn *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		conn:     conn,
	}
}

func (sock *websock) read(ctx context.Context, fn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return fn(sock.conn)
	case <-time.After(readDeadline):
		return ErrSockCongestion
	}
}

func (sock *websock) write(ctx context.Context, fn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return fn(sock.conn)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}

func isUnexpectedClose(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// Client relays one browser connection: it publishes snapshots pulled from
// updates, and forwards decoded commands onto commandsOut (typically a
// session.Controller's command channel).
type Client struct {
	updates    <-chan snapshot.Snapshot
	commandsOut chan<- session.Command
	ws         *websock
	rootCtx    context.Context
}

// Upgrade accepts a websocket handshake and returns a Client ready to Sync.
func Upgrade(updates <-chan snapshot.Snapshot, commandsOut chan<- session.Command, w http.ResponseWriter, r *http.Request) (*Client, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		updates:     updates,
		commandsOut: commandsOut,
		ws:          newWebsock(conn),
		rootCtx:     r.Context(),
	}, nil
}

// Sync runs the publish, command-read and ping-pong loops concurrently
// until the connection closes or the context is cancelled. It returns the
// first error any of them produces; a client closing the connection, even
// normally, ends the read loop with the close error, which Sync returns.
func (c *Client) Sync() error {
	group, ctx := errgroup.WithContext(c.rootCtx)

	group.Go(func() error { return c.readCommands(ctx) })
	group.Go(func() error { return c.pingPong(ctx) })
	group.Go(func() error { return c.publish(ctx) })

	return group.Wait()
}

// readCommands decodes incoming JSON Command messages and forwards them to
// commandsOut. Malformed messages are dropped rather than tearing down the
// connection — only a transport-level read error ends the loop.
func (c *Client) readCommands(ctx context.Context) error {
	for {
		var msg []byte
		err := c.ws.read(ctx, func(conn *websocket.Conn) error {
			var readErr error
			_, msg, readErr = conn.ReadMessage()
			return readErr
		})
		if err != nil {
			if isUnexpectedClose(err) {
				return fmt.Errorf("transport: read failed: %w", err)
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		var cmd session.Command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			continue
		}
		if c.commandsOut == nil {
			continue
		}
		select {
		case c.commandsOut <- cmd:
		case <-ctx.Done():
			return nil
		default:
			// Commands queue is full; drop rather than block the reader.
		}
	}
}

func (c *Client) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	c.ws.conn.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	ticker := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker:
			if time.Since(lastPong) > pongWait {
				return errors.New("transport: pong deadline exceeded")
			}
			if err := c.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (c *Client) ping(ctx context.Context) error {
	return c.ws.write(ctx, func(conn *websocket.Conn) error {
		return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
	})
}

// publish streams snapshots from updates out to the socket, dropping any
// that arrive faster than pubResolution so a slow client never backs up
// the session controller's emit call.
func (c *Client) publish(ctx context.Context) error {
	lastSent := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-c.updates:
			if !ok {
				return nil
			}
			if !snap.Final && time.Since(lastSent) < pubResolution {
				continue
			}
			lastSent = time.Now()
			err := c.ws.write(ctx, func(conn *websocket.Conn) error {
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return err
				}
				return conn.WriteJSON(snap)
			})
			if err != nil {
				return err
			}
		}
	}
}

