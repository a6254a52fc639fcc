package mqttpub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/monitor"
)

func init() {
	log.Set(log.Discard())
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, published{topic, qos, retained, payload.([]byte)})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) sent() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.msgs...)
}

func TestNotifier_PublishesEvent(t *testing.T) {
	client := &fakeClient{}
	n := NewNotifier(client, "drowsy/events")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Start(ctx)
		close(done)
	}()

	ev := monitor.Event{
		SessionID: "7f1c",
		EventID:   3,
		Timestamp: "2026-10-17 09:15:02",
		Status:    "Drowsy",
		Ratio:     0.21,
	}
	require.NoError(t, n.Notify(context.Background(), ev))

	require.Eventually(t, func() bool { return len(client.sent()) == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done

	msg := client.sent()[0]
	assert.Equal(t, "drowsy/events", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.False(t, msg.retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, map[string]any{
		"session_id": "7f1c",
		"event_id":   float64(3),
		"timestamp":  "2026-10-17 09:15:02",
		"status":     "Drowsy",
		"ratio":      0.21,
	}, got)
}

func TestNotifier_QueueFull(t *testing.T) {
	n := NewNotifier(&fakeClient{}, "t")
	for i := 0; i < queueSize; i++ {
		require.NoError(t, n.Notify(context.Background(), monitor.Event{EventID: int64(i)}))
	}
	assert.ErrorIs(t, n.Notify(context.Background(), monitor.Event{}), ErrQueueFull)
}

func TestNotifier_DrainsOnShutdown(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	n := NewNotifier(client, "t")
	for i := 0; i < 5; i++ {
		require.NoError(t, n.Notify(context.Background(), monitor.Event{EventID: int64(i)}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Start(ctx) // returns after draining; publish errors are only logged

	assert.Len(t, client.sent(), 5)
}
