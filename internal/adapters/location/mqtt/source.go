// Package mqtt follows a device position topic on an MQTT broker. Payloads
// use the JSON fix format of the location package.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/zonecharge/internal/adapters/location"
	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
)

const (
	DefaultQoS            = 1
	DefaultConnectTimeout = 10 * time.Second
	disconnectQuiesceMs   = 250
	subscribeFailure      = 0x80
)

var (
	_ ports.LocationSource    = (*Source)(nil)
	_ ports.PermissionChecker = (*Source)(nil)
)

type Config struct {
	Broker            string
	Topic             string
	ClientID          string
	Username          string
	Password          string
	QoS               byte
	ConnectTimeout    time.Duration
	AccuracyThreshold float64
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Broker) == "" {
		return errors.New("location.mqtt.broker: required")
	}
	if strings.TrimSpace(c.Topic) == "" {
		return errors.New("location.mqtt.topic: required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("location.mqtt.qos: must be 0, 1 or 2, got %d", c.QoS)
	}
	return nil
}

// Source keeps one broker subscription and fans messages out to watches.
type Source struct {
	cfg    Config
	filter location.Filter
	clock  ports.Clock
	logger *slog.Logger
	client paho.Client

	connMu     sync.Mutex
	subscribed atomic.Bool

	mu       sync.Mutex
	watchers map[uint64]*watcher
	nextID   uint64
	last     domain.LocationSample
	hasLast  bool
}

func NewSource(cfg Config, clock ports.Clock, logger *slog.Logger) (*Source, error) {
	return newSource(cfg, clock, logger, paho.NewClient)
}

func newSource(cfg Config, clock ports.Clock, logger *slog.Logger, newClient func(*paho.ClientOptions) paho.Client) (*Source, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "zonecharge"
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Source{
		cfg:      cfg,
		filter:   location.Filter{AccuracyThreshold: cfg.AccuracyThreshold},
		clock:    clock,
		logger:   logger,
		watchers: make(map[uint64]*watcher),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(s.onReconnect).
		SetConnectionLostHandler(s.onConnectionLost)
	s.client = newClient(opts)

	return s, nil
}

// Permission connects to the broker and reports denied when it refuses the
// credentials or the subscription.
func (s *Source) Permission(_ context.Context) (domain.PermissionState, error) {
	err := s.ensureSubscribed()
	switch {
	case err == nil:
		return domain.PermissionGranted, nil
	case errors.Is(err, domain.ErrPermissionDenied):
		return domain.PermissionDenied, nil
	default:
		return domain.PermissionPrompt, err
	}
}

func (s *Source) GetOneShot(ctx context.Context, opts domain.LocationOptions) (domain.LocationSample, error) {
	return location.OneShot(ctx, opts, func(onSample func(domain.LocationSample), onError func(error)) (ports.WatchHandle, error) {
		return s.StartWatch(opts, onSample, onError)
	})
}

// StartWatch subscribes on first use. The last received position, retained
// or live, is checked and delivered before StartWatch returns. When
// opts.Timeout passes without an accepted fix, onError receives
// domain.ErrLocationTimeout.
func (s *Source) StartWatch(opts domain.LocationOptions, onSample func(domain.LocationSample), onError func(error)) (ports.WatchHandle, error) {
	if err := s.ensureSubscribed(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.nextID++
	w := &watcher{
		id:       s.nextID,
		source:   s,
		opts:     opts,
		onSample: onSample,
		onError:  onError,
		dog:      location.NewWatchdog(opts.Timeout, onError),
	}
	s.watchers[w.id] = w
	last, hasLast := s.last, s.hasLast
	s.mu.Unlock()

	if hasLast {
		w.deliver(last, s.filter, s.clock.Now())
	}

	return w, nil
}

// Close drops the broker connection. Watches stop receiving samples.
func (s *Source) Close() error {
	s.mu.Lock()
	s.watchers = make(map[uint64]*watcher)
	s.mu.Unlock()

	if s.client.IsConnected() {
		s.client.Disconnect(disconnectQuiesceMs)
	}
	s.subscribed.Store(false)
	return nil
}

func (s *Source) ensureSubscribed() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.subscribed.Load() && s.client.IsConnectionOpen() {
		return nil
	}

	if !s.client.IsConnected() {
		token := s.client.Connect()
		if !token.WaitTimeout(s.cfg.ConnectTimeout) {
			return fmt.Errorf("%w: connect %s: timed out", domain.ErrPositionUnavailable, s.cfg.Broker)
		}
		if err := token.Error(); err != nil {
			return classify(fmt.Errorf("connect %s: %w", s.cfg.Broker, err))
		}
	}

	if err := s.subscribe(); err != nil {
		return err
	}
	s.subscribed.Store(true)

	s.logger.Info("location: mqtt subscribed", "broker", s.cfg.Broker, "topic", s.cfg.Topic)
	return nil
}

func (s *Source) subscribe() error {
	token := s.client.Subscribe(s.cfg.Topic, s.cfg.QoS, s.handleMessage)
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		return fmt.Errorf("%w: subscribe %s: timed out", domain.ErrPositionUnavailable, s.cfg.Topic)
	}
	if err := token.Error(); err != nil {
		return classify(fmt.Errorf("subscribe %s: %w", s.cfg.Topic, err))
	}
	if sub, ok := token.(*paho.SubscribeToken); ok {
		for topic, code := range sub.Result() {
			if code == subscribeFailure {
				return fmt.Errorf("%w: broker refused subscription to %s", domain.ErrPermissionDenied, topic)
			}
		}
	}
	return nil
}

// onReconnect restores the subscription after an automatic reconnect; the
// first connection subscribes from ensureSubscribed.
func (s *Source) onReconnect(paho.Client) {
	if !s.subscribed.Load() {
		return
	}
	if err := s.subscribe(); err != nil {
		s.logger.Warn("location: mqtt resubscribe failed", "topic", s.cfg.Topic, "error", err)
		s.broadcastError(err)
	}
}

func (s *Source) onConnectionLost(_ paho.Client, err error) {
	s.logger.Warn("location: mqtt connection lost", "broker", s.cfg.Broker, "error", err)
	s.broadcastError(fmt.Errorf("%w: connection lost: %w", domain.ErrPositionUnavailable, err))
}

func (s *Source) handleMessage(_ paho.Client, msg paho.Message) {
	sample, err := location.DecodeFix(msg.Payload())
	if err != nil {
		s.logger.Debug("location: invalid mqtt fix", "topic", msg.Topic(), "error", err)
		s.broadcastError(err)
		return
	}

	s.mu.Lock()
	s.last, s.hasLast = sample, true
	watchers := s.snapshotWatchers()
	s.mu.Unlock()

	now := s.clock.Now()
	for _, w := range watchers {
		w.deliver(sample, s.filter, now)
	}
}

func (s *Source) broadcastError(err error) {
	s.mu.Lock()
	watchers := s.snapshotWatchers()
	s.mu.Unlock()

	for _, w := range watchers {
		w.onError(err)
	}
}

// snapshotWatchers must be called with s.mu held.
func (s *Source) snapshotWatchers() []*watcher {
	out := make([]*watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		out = append(out, w)
	}
	return out
}

type watcher struct {
	id       uint64
	source   *Source
	opts     domain.LocationOptions
	onSample func(domain.LocationSample)
	onError  func(error)
	dog      *location.Watchdog
}

func (w *watcher) deliver(sample domain.LocationSample, filter location.Filter, now time.Time) {
	if err := filter.Check(sample, w.opts, now); err != nil {
		w.onError(err)
		return
	}
	w.dog.Feed()
	w.onSample(sample)
}

func (w *watcher) Stop() error {
	w.source.mu.Lock()
	delete(w.source.watchers, w.id)
	w.source.mu.Unlock()
	w.dog.Stop()
	return nil
}

func classify(err error) error {
	if errors.Is(err, packets.ErrorRefusedNotAuthorised) ||
		errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword) ||
		strings.Contains(strings.ToLower(err.Error()), "not authori") {
		return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrPositionUnavailable, err)
}
