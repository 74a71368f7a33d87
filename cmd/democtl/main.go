// ABOUTME: Entry point for the demux command-line front end
// ABOUTME: One-shot file parsing to stdout, or a websocket live-tail + metrics server
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/framewise-audio/demux/internal/metrics"
	"github.com/framewise-audio/demux/pkg/demux"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mime      = flag.String("mime", "", "MIME type: audio/mpeg, audio/aac, audio/aacp, audio/flac, audio/ogg, application/ogg")
	file      = flag.String("file", "", "Audio file to parse (default: stdin)")
	serve     = flag.String("serve", "", "Listen address for websocket live-tail + /metrics, e.g. :8080. One-shot mode if empty")
	enableLog = flag.Bool("log", false, "Enable parser warning logs")
)

func main() {
	flag.Parse()

	if *mime == "" {
		log.Fatal("democtl: -mime is required")
	}

	if *serve != "" {
		if err := runServe(*serve, *mime, *enableLog); err != nil {
			log.Fatalf("democtl: %v", err)
		}
		return
	}

	if err := runOneShot(*mime, *file, *enableLog); err != nil {
		log.Fatalf("democtl: %v", err)
	}
}

func runOneShot(mime, path string, enableLog bool) error {
	var data []byte
	var err error
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	opts := demux.Options{EnableLogging: enableLog}
	if enableLog {
		slog.SetDefault(logger)
	}

	d, err := demux.New(mime, opts)
	if err != nil {
		return fmt.Errorf("constructing driver: %w", err)
	}

	frames, err := d.ParseAll(data)
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}

	out := slog.New(slog.NewTextHandler(os.Stdout, nil))
	for i, f := range frames {
		switch v := f.(type) {
		case *demux.CodecFrame:
			out.Info("frame", "index", i, "codec", d.Codec(), "bytes", len(v.Data),
				"samples", v.Samples, "durationMs", v.Duration, "frameNumber", v.FrameNumber)
		case *demux.OggPage:
			out.Info("ogg_page", "index", i, "codec", d.Codec(), "sequence", v.PageSequenceNumber,
				"codecFrames", len(v.CodecFrames))
		}
	}
	return nil
}

// resyncTapHandler wraps a slog.Handler, incrementing a resync counter for
// every warning record whose message mentions "resync" or "sync lost" - the
// wording every parser's frame.Warn call uses on de-sync - without needing
// the core packages to know metrics exist.
type resyncTapHandler struct {
	slog.Handler
	m *metrics.Metrics
}

func (h resyncTapHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level == slog.LevelWarn && (strings.Contains(r.Message, "resync") || strings.Contains(r.Message, "sync lost")) {
		codec := "unknown"
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "codec" {
				codec = a.Value.String()
			}
			return true
		})
		h.m.ResyncsByCodec.WithLabelValues(codec).Inc()
	}
	return h.Handler.Handle(ctx, r)
}

func runServe(addr, mime string, enableLog bool) error {
	m := metrics.New()

	base := slog.NewTextHandler(os.Stderr, nil)
	logger := slog.New(resyncTapHandler{Handler: base, m: m})
	if enableLog {
		// Drivers log to slog.Default(); without -log they have no logger,
		// so no parser warning reaches the resync counter.
		slog.SetDefault(logger)
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		sessionID := uuid.New().String()
		m.ConnectionsTotal.Inc()
		m.ConnectionsOpen.Inc()
		defer m.ConnectionsOpen.Dec()
		logger.Info("session opened", "session", sessionID)

		opts := demux.Options{}
		if enableLog {
			opts.EnableLogging = true
		}
		d, err := demux.New(mime, opts)
		if err != nil {
			logger.Warn("failed to construct driver", "session", sessionID, "error", err)
			return
		}

		if err := conn.WriteJSON(map[string]string{"type": "hello", "session": sessionID, "mime": mime}); err != nil {
			return
		}

		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				logger.Info("session closed", "session", sessionID, "error", err)
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			m.BytesIn.Add(float64(len(data)))

			frames, err := d.ParseChunk(data)
			if err != nil {
				logger.Warn("parse error", "session", sessionID, "error", err)
				continue
			}
			for _, f := range frames {
				msg := frameSummary(f, d.Codec())
				m.FramesEmitted.WithLabelValues(d.Codec()).Inc()
				if b, err := json.Marshal(msg); err == nil {
					_ = conn.WriteMessage(websocket.TextMessage, b)
				}
			}
		}
	})

	httpServer := &http.Server{Addr: addr, Handler: mux}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		_ = httpServer.Close()
	}()

	logger.Info("democtl serving", "addr", addr, "mime", mime)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func frameSummary(f demux.Frame, codec string) map[string]any {
	switch v := f.(type) {
	case *demux.CodecFrame:
		return map[string]any{
			"type": "frame", "codec": codec, "bytes": len(v.Data),
			"samples": v.Samples, "durationMs": v.Duration, "frameNumber": v.FrameNumber,
		}
	case *demux.OggPage:
		return map[string]any{
			"type": "ogg_page", "codec": codec, "sequence": v.PageSequenceNumber,
			"codecFrames": len(v.CodecFrames),
		}
	default:
		return map[string]any{"type": "unknown"}
	}
}
