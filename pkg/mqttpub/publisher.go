package mqttpub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/monitor"
)

const (
	qos            = 1
	publishTimeout = 5 * time.Second
	queueSize      = 32
)

// ErrQueueFull is returned by Notify when the broker cannot keep up.
var ErrQueueFull = errors.New("mqttpub: publish queue full")

// Publisher is the subset of mqtt.Client used for publishing.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Notifier queues events and publishes them from its own goroutine, so a
// slow broker never holds up the detection loop.
type Notifier struct {
	client Publisher
	topic  string
	queue  chan monitor.Event
}

var _ monitor.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier publishing to topic.
func NewNotifier(client Publisher, topic string) *Notifier {
	return &Notifier{
		client: client,
		topic:  topic,
		queue:  make(chan monitor.Event, queueSize),
	}
}

// Notify enqueues an event without blocking.
func (n *Notifier) Notify(_ context.Context, e monitor.Event) error {
	select {
	case n.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start publishes queued events until ctx is canceled, then drains the queue.
func (n *Notifier) Start(ctx context.Context) {
	log.Info("mqtt publisher started", "topic", n.topic)
	for {
		select {
		case <-ctx.Done():
			n.drain()
			log.Info("mqtt publisher stopped")
			return
		case e := <-n.queue:
			if err := n.publish(e); err != nil {
				log.Error("mqtt publish failed", "event", e.EventID, "error", err)
			}
		}
	}
}

func (n *Notifier) drain() {
	for {
		select {
		case e := <-n.queue:
			if err := n.publish(e); err != nil {
				log.Error("mqtt publish failed", "event", e.EventID, "error", err)
			}
		default:
			return
		}
	}
}

func (n *Notifier) publish(e monitor.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	token := n.client.Publish(n.topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timed out", n.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", n.topic, err)
	}

	log.Debug("event published", "topic", n.topic, "event", e.EventID)
	return nil
}
