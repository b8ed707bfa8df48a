package events

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phuslu/log"
)

// Print copies newline-delimited events from r to w until r ends.
// With pretty set, JSON lines are re-indented; other lines pass through.
func Print(r io.Reader, w io.Writer, pretty bool) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := printLine(w, sc.Bytes(), pretty); err != nil {
			return err
		}
	}
	return sc.Err()
}

func printLine(w io.Writer, line []byte, pretty bool) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	if pretty {
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err == nil {
			line, _ = json.MarshalIndent(obj, "", "  ")
		}
	}
	_, err := fmt.Fprintln(w, string(line))
	return err
}

// FollowTCP prints events from a TCP feed, reconnecting after a second
// whenever the connection drops, until ctx is cancelled.
func FollowTCP(ctx context.Context, addr string, w io.Writer, pretty bool) error {
	return follow(ctx, func() error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		defer conn.Close()
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()

		log.Info().Str("addr", addr).Msg("connected to event feed")
		return Print(conn, w, pretty)
	})
}

// FollowWS is FollowTCP for the /ws endpoint.
func FollowWS(ctx context.Context, url string, w io.Writer, pretty bool) error {
	return follow(ctx, func() error {
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", url, err)
		}
		defer ws.Close()
		stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
		defer stop()

		log.Info().Str("url", url).Msg("connected to event feed")
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return err
			}
			if err := printLine(w, msg, pretty); err != nil {
				return err
			}
		}
	})
}

func follow(ctx context.Context, run func() error) error {
	for {
		err := run()
		if ctx.Err() != nil {
			return nil
		}
		log.Warn().Err(err).Msg("event feed disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}
