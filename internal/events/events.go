// Package events publishes domain events about status changes to MQTT.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Type names a domain event.
type Type string

const (
	TripStatusChanged        Type = "trip.status_changed"
	MaintenanceStatusChanged Type = "maintenance.status_changed"
	DriverAssignmentChanged  Type = "driver.assignment_changed"
	AlertsRegenerated        Type = "alerts.regenerated"
)

// Event is the JSON body published for every domain event.
type Event struct {
	Type       Type        `json:"type"`
	EntityKind string      `json:"entityKind"`
	EntityID   string      `json:"entityId,omitempty"`
	From       string      `json:"from,omitempty"`
	To         string      `json:"to,omitempty"`
	At         time.Time   `json:"at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close()                               {}

// MQTTPublisher sends events to an MQTT broker at QoS 1.
type MQTTPublisher struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
	log     *log.Logger
}

// NewMQTTPublisher connects to brokerURL and returns a publisher writing to
// <prefix>/events/<type>.
func NewMQTTPublisher(brokerURL, prefix string, logger *log.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("aivodrive-api-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", brokerURL, err)
	}
	logger.WithField("broker", brokerURL).Info("Connected to MQTT broker")
	return &MQTTPublisher{client: client, prefix: prefix, timeout: 5 * time.Second, log: logger}, nil
}

// Topic is the MQTT topic for events of type t.
func Topic(prefix string, t Type) string {
	if prefix == "" {
		return "events/" + string(t)
	}
	return prefix + "/events/" + string(t)
}

func (p *MQTTPublisher) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	token := p.client.Publish(Topic(p.prefix, event.Type), 1, false, body)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("publish %s: timed out", event.Type)
	}
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

const (
	// emitTimeout bounds one background publish.
	emitTimeout = 2 * time.Second
	// maxInflight caps background publishes; events beyond it are dropped.
	maxInflight = 64
)

var (
	inflight = semaphore.NewWeighted(maxInflight)
	pending  sync.WaitGroup
)

// Emit publishes event in the background and logs a failure instead of
// returning it. Event delivery never fails or delays the operation that
// produced it; when the broker stalls and the backlog is full the event is
// dropped.
func Emit(ctx context.Context, pub Publisher, logger log.FieldLogger, event Event) {
	if pub == nil {
		return
	}
	if _, ok := pub.(Noop); ok {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	entry := logger.WithField("event", event.Type)
	if !inflight.TryAcquire(1) {
		entry.Warn("Event dropped, publish backlog is full")
		return
	}

	pending.Add(1)
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer pending.Done()
		defer inflight.Release(1)
		ctx, cancel := context.WithTimeout(ctx, emitTimeout)
		defer cancel()
		if err := pub.Publish(ctx, event); err != nil {
			entry.WithError(err).Warn("Failed to publish event")
		}
	}()
}

// Flush waits for the publishes started by Emit, or until ctx is done.
func Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
