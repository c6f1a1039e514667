package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"mesostats/internal/config"
	"mesostats/internal/mesonet"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	publishQoS     = byte(1)
	publishTimeout = 5 * time.Second
)

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	ErrStopped      = errors.New("publisher stopped")
)

// StatisticMessage is the JSON payload published for one result. Value is
// null when the result had no valid observations.
type StatisticMessage struct {
	RunID          string    `json:"run_id"`
	ObservedAt     time.Time `json:"observed_at"`
	Parameter      string    `json:"parameter"`
	Kind           string    `json:"kind"`
	Value          *float64  `json:"value"`
	Unit           string    `json:"unit"`
	StationID      string    `json:"station_id"`
	ReportingCount int32     `json:"reporting_count"`
}

// Publisher sends run results to an MQTT broker. Messages are retained so a
// late subscriber sees the newest value for every topic.
type Publisher struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	p := &Publisher{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect waits for the initial broker connection. It gives up when ctx is
// done or Disconnect is called.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			// The OnConnect handler runs on its own goroutine and may not
			// have fired yet.
			p.setConnected(true)
			return nil
		}

		select {
		case <-ctx.Done():
			p.client.Disconnect(0)
			return ctx.Err()
		case <-p.stopCh:
			p.client.Disconnect(0)
			return ErrStopped
		default:
		}
	}
}

// PublishSummary publishes every result of s under
// <prefix>/<PARAMETER>/<kind>.
func (p *Publisher) PublishSummary(ctx context.Context, runID string, s *mesonet.Summary) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}

	for _, e := range s.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}
		topic := Topic(p.cfg.MQTTTopicPrefix, e.Parameter, e.Result.Kind())
		data, err := json.Marshal(NewStatisticMessage(runID, e))
		if err != nil {
			return fmt.Errorf("marshal %s: %w", topic, err)
		}
		if err := p.publish(topic, data); err != nil {
			return err
		}
	}

	p.logger.Info("published statistics",
		"run_id", runID,
		"observed_at", s.Timestamp().String(),
		"messages", len(s.Parameters())*len(mesonet.Kinds),
	)
	return nil
}

func (p *Publisher) publish(topic string, data []byte) error {
	token := p.client.Publish(topic, publishQoS, true, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		p.logger.Error("failed to publish statistic", "topic", topic, "error", err)
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.Debug("published statistic", "topic", topic, "size", len(data))
	return nil
}

// Topic returns the topic for one parameter and kind, for example
// mesonet/statistics/TAIR/maximum.
func Topic(prefix string, param mesonet.Parameter, kind mesonet.Kind) string {
	return prefix + "/" + param.String() + "/" + strings.ToLower(kind.String())
}

func NewStatisticMessage(runID string, e mesonet.Entry) StatisticMessage {
	r := e.Result
	msg := StatisticMessage{
		RunID:          runID,
		ObservedAt:     r.Timestamp().Time(),
		Parameter:      e.Parameter.String(),
		Kind:           r.Kind().String(),
		Unit:           e.Parameter.Unit(),
		StationID:      r.StationID(),
		ReportingCount: r.ReportingCount(),
	}
	if v := r.Value(); !math.IsNaN(v) && !math.IsInf(v, 0) {
		msg.Value = &v
	}
	return msg
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect stops the publisher. It is safe to call more than once; later
// Connect calls return ErrStopped.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.client != nil {
		p.client.Disconnect(250)
	}

	p.setConnected(false)
	p.logger.Info("mqtt disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
