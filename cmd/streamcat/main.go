// ABOUTME: Entry point for the streamcat websocket client
// ABOUTME: Streams a local file to a democtl -serve endpoint and prints frame summaries as they arrive
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	addr      = flag.String("addr", "localhost:8080", "democtl -serve address, host:port")
	file      = flag.String("file", "", "File to stream (default: stdin)")
	chunkSize = flag.Int("chunk", 4096, "Bytes per websocket binary message")
)

// client wraps a single websocket connection to a democtl -serve instance,
// pushing binary chunks on one side while an independent goroutine drains
// and prints the JSON frame summaries that come back - the same
// connect-then-split-into-a-reader-goroutine shape the teacher's protocol
// client uses, stripped of its handshake and channel fan-out since a
// demux stream has no session state to negotiate.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

func dial(hostPort string) (*client, error) {
	u := url.URL{Scheme: "ws", Host: hostPort, Path: "/stream"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &client{conn: conn, ctx: ctx, cancel: cancel}
	go c.readSummaries()
	return c, nil
}

func (c *client) readSummaries() {
	defer c.cancel()
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var summary map[string]any
		if err := json.Unmarshal(data, &summary); err != nil {
			continue
		}
		fmt.Printf("%v\n", summary)
	}
}

func (c *client) sendChunk(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *client) close() {
	c.mu.Lock()
	_ = c.conn.Close()
	c.mu.Unlock()
	c.cancel()
}

func main() {
	flag.Parse()

	var src io.Reader = os.Stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatalf("streamcat: %v", err)
		}
		defer f.Close()
		src = f
	}

	c, err := dial(*addr)
	if err != nil {
		log.Fatalf("streamcat: %v", err)
	}
	defer c.close()

	buf := make([]byte, *chunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := c.sendChunk(buf[:n]); werr != nil {
				log.Fatalf("streamcat: write failed: %v", werr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("streamcat: read failed: %v", err)
		}
	}

	// Give the reader goroutine a moment to drain any trailing summaries
	// before the process exits and the connection is torn down.
	select {
	case <-c.ctx.Done():
	case <-time.After(500 * time.Millisecond):
	}
}
