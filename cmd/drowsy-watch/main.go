// drowsy-watch: tails a running monitor's status stream in the terminal
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/monitor"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "Monitor dashboard host:port")
	retry := flag.Duration("retry", 2*time.Second, "Reconnect delay")
	flag.Parse()

	log.Init(os.Getenv("LOG_LEVEL"), os.Getenv("GO_ENV"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/status"}
	for {
		err := watch(ctx, u.String(), os.Stdout)
		if ctx.Err() != nil {
			return
		}
		log.Warn("status stream closed", "url", u.String(), "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(*retry):
		}
	}
}

// watch prints one line per status message until the stream ends.
func watch(ctx context.Context, rawURL string, out io.Writer) error {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	ws, _, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", rawURL, err)
	}
	defer ws.Close()

	go func() {
		<-ctx.Done()
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		ws.Close()
	}()

	log.Info("watching", "url", rawURL)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		var snap monitor.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Warn("bad status message", "error", err)
			continue
		}
		fmt.Fprintln(out, formatSnapshot(time.Now(), snap))
	}
}

func formatSnapshot(now time.Time, s monitor.Snapshot) string {
	line := fmt.Sprintf("%s  %-14s", now.Format("15:04:05"), s.Display.Label)
	if !s.Running {
		return line
	}
	alertMark := ""
	if s.AlertActive {
		alertMark = "  ALERT"
	}
	return fmt.Sprintf("%s  ratio=%.3f low=%d events=%d frames=%d%s",
		line, s.LastRatio, s.ConsecutiveLow, s.Events, s.FramesProcessed, alertMark)
}
