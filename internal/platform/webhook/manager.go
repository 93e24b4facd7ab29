package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is the envelope posted to subscribers.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient overrides the default HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) { m.client = c }
}

// WithRetryDelays overrides the delay schedule; its length bounds the retries.
func WithRetryDelays(delays []time.Duration) ManagerOption {
	return func(m *Manager) { m.retryDelays = delays }
}

// Manager fans domain events out to subscribed endpoints. Deliveries run in
// the background; a failed POST is retried on the delay schedule and then
// dropped with a log line. Publish never blocks the request that caused it.
type Manager struct {
	store       Store
	client      *http.Client
	retryDelays []time.Duration
	log         zerolog.Logger
	wg          sync.WaitGroup
}

func NewManager(store Store, log zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:       store,
		client:      &http.Client{Timeout: 10 * time.Second},
		retryDelays: []time.Duration{1 * time.Second, 10 * time.Second, 60 * time.Second},
		log:         log,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Register validates and persists a new endpoint, generating a secret when
// the caller supplies none.
func (m *Manager) Register(ctx context.Context, rawURL, secret string, events []string) (*Endpoint, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		events = []string{"*"}
	}
	if secret == "" {
		generated, err := generateSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
	}
	ep := &Endpoint{URL: rawURL, Secret: secret, Events: events, IsActive: true}
	if err := m.store.CreateEndpoint(ctx, ep); err != nil {
		return nil, err
	}
	return ep, nil
}

func (m *Manager) List(ctx context.Context) ([]*Endpoint, error) {
	endpoints, err := m.store.ListEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	for _, ep := range endpoints {
		ep.Secret = ""
	}
	return endpoints, nil
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.DeleteEndpoint(ctx, id)
}

// Publish delivers the event to every matching active endpoint. It satisfies
// the domain layer's event sink and returns immediately; the request context
// is deliberately not carried into the deliveries.
func (m *Manager) Publish(ctx context.Context, event string, payload any) {
	endpoints, err := m.store.ListEndpoints(ctx)
	if err != nil {
		m.log.Error().Err(err).Str("event", event).Msg("webhook endpoint lookup failed")
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		m.log.Error().Err(err).Str("event", event).Msg("webhook payload marshal failed")
		return
	}
	ev := Event{ID: uuid.NewString(), Type: event, Payload: raw, Timestamp: time.Now().UTC()}

	for _, ep := range endpoints {
		if !ep.IsActive || !endpointMatches(ep, event) {
			continue
		}
		m.wg.Add(1)
		go m.deliver(*ep, ev)
	}
}

// Wait blocks until in-flight deliveries finish. Used on shutdown and in tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) deliver(ep Endpoint, ev Event) {
	defer m.wg.Done()

	body, err := json.Marshal(ev)
	if err != nil {
		m.log.Error().Err(err).Str("endpoint_id", ep.ID).Msg("webhook event marshal failed")
		return
	}
	sig := SignPayload(body, ep.Secret)

	for attempt := 0; ; attempt++ {
		if m.attemptOnce(ep, ev, body, sig) {
			return
		}
		if attempt >= len(m.retryDelays) {
			m.log.Warn().
				Str("endpoint_id", ep.ID).
				Str("event", ev.Type).
				Int("attempts", attempt+1).
				Msg("webhook delivery gave up")
			return
		}
		time.Sleep(m.retryDelays[attempt])
	}
}

func (m *Manager) attemptOnce(ep Endpoint, ev Event, body []byte, sig string) bool {
	req, err := http.NewRequest(http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		m.log.Error().Err(err).Str("endpoint_id", ep.ID).Msg("webhook request build failed")
		return true
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", "sha256="+sig)
	req.Header.Set("X-Webhook-ID", ep.ID)
	req.Header.Set("X-Webhook-Event", ev.Type)
	req.Header.Set("X-Webhook-Timestamp", ev.Timestamp.Format(time.RFC3339))

	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	// 2xx is done; 4xx will not improve with retries; 5xx might.
	if resp.StatusCode >= 500 {
		return false
	}
	if resp.StatusCode >= 400 {
		m.log.Warn().
			Str("endpoint_id", ep.ID).
			Str("event", ev.Type).
			Int("status", resp.StatusCode).
			Msg("webhook delivery rejected")
	}
	return true
}
