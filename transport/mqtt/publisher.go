// Package mqtt publishes robot state snapshots to an MQTT broker under
// <prefix>/<session>/state.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/wricardo/mcp-training/coveragebot/game/engine"
	"github.com/wricardo/mcp-training/coveragebot/game/service"
)

const (
	// DefaultTopicPrefix is the first topic level of published snapshots
	DefaultTopicPrefix = "coveragebot"

	// DefaultInterval is the minimum gap between snapshots of one session
	DefaultInterval = 250 * time.Millisecond

	// staleAfter drops throttle state of sessions that stopped publishing,
	// such as sessions removed by expiry cleanup
	staleAfter = 10 * time.Minute
)

// Options configures the broker connection
type Options struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Interval    time.Duration
}

// Message is the JSON payload of a state snapshot
type Message struct {
	SessionID string       `json:"session_id"`
	Event     string       `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
	State     engine.State `json:"state"`
}

// PublishFunc sends one payload to a topic
type PublishFunc func(topic string, payload []byte) error

// Option customizes a Publisher
type Option func(*Publisher)

// WithPublishFunc replaces the broker client, mainly for tests
func WithPublishFunc(fn PublishFunc) Option {
	return func(p *Publisher) {
		p.publish = fn
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

type lastSent struct {
	at   time.Time
	mode engine.Mode
}

// Publisher mirrors robot state to an MQTT broker. It implements
// service.Notifier; tick updates are throttled per session while every
// command and mode change goes out immediately.
type Publisher struct {
	opts    Options
	client  paho.Client
	publish PublishFunc
	now     func() time.Time

	mu        sync.Mutex
	last      map[string]lastSent
	lastSweep time.Time
}

var _ service.Notifier = (*Publisher)(nil)

// NewPublisher creates a publisher. Call Connect before use unless a
// PublishFunc was supplied.
func NewPublisher(opts Options, options ...Option) *Publisher {
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = DefaultTopicPrefix
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ClientID == "" {
		opts.ClientID = "coveragebot"
	}

	p := &Publisher{
		opts: opts,
		now:  time.Now,
		last: make(map[string]lastSent),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Connect dials the broker and disconnects when ctx is done
func (p *Publisher) Connect(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(p.opts.Broker).
		SetClientID(p.opts.ClientID).
		SetUsername(p.opts.Username).
		SetPassword(p.opts.Password).
		SetKeepAlive(60 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(10 * time.Second).
		SetCleanSession(true)

	opts.SetOnConnectHandler(func(paho.Client) {
		log.Printf("[MQTT] connected to %s", p.opts.Broker)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Printf("[MQTT] connection lost: %v", err)
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Second):
		// ConnectRetry keeps trying in the background
		log.Printf("[MQTT] broker %s not reachable yet, retrying in background", p.opts.Broker)
	}

	p.client = client
	p.publish = p.publishQoS0

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
		log.Printf("[MQTT] disconnected")
	}()
	return nil
}

// Topic returns the state topic of a session
func (p *Publisher) Topic(sessionID string) string {
	return p.opts.TopicPrefix + "/" + sessionID + "/state"
}

// Notify publishes a snapshot unless it is a tick update inside the
// throttle interval that leaves the mode unchanged
func (p *Publisher) Notify(sessionID, event string, state engine.State) {
	if p.publish == nil {
		return
	}

	now := p.now()
	if !p.shouldSend(sessionID, event, state.Mode, now) {
		return
	}

	payload, err := json.Marshal(Message{
		SessionID: sessionID,
		Event:     event,
		Timestamp: now.UTC(),
		State:     state,
	})
	if err != nil {
		log.Printf("[MQTT] failed to marshal state for session %s: %v", sessionID, err)
		return
	}

	if err := p.publish(p.Topic(sessionID), payload); err != nil {
		log.Printf("[MQTT] publish failed for session %s: %v", sessionID, err)
	}
}

func (p *Publisher) shouldSend(sessionID, event string, mode engine.Mode, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sweepLocked(now)
	if event == service.EventDeleted {
		delete(p.last, sessionID)
		return true
	}

	prev, seen := p.last[sessionID]
	throttled := event == service.EventTick &&
		seen &&
		prev.mode == mode &&
		now.Sub(prev.at) < p.opts.Interval
	if throttled {
		return false
	}

	p.last[sessionID] = lastSent{at: now, mode: mode}
	return true
}

// sweepLocked forgets sessions with no publish in staleAfter. It runs at most
// once per staleAfter.
func (p *Publisher) sweepLocked(now time.Time) {
	if now.Sub(p.lastSweep) < staleAfter {
		return
	}
	for id, sent := range p.last {
		if now.Sub(sent.at) >= staleAfter {
			delete(p.last, id)
		}
	}
	p.lastSweep = now
}

// Tracked returns the number of sessions with throttle state
func (p *Publisher) Tracked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.last)
}

// publishQoS0 hands the payload to paho without waiting for delivery
func (p *Publisher) publishQoS0(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}
