package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"argus/internal/config"
)

const userAgent = "Argus/0.1.0"

// Event identifies a notification category.
type Event string

const (
	EventAnalysisCompleted Event = "analysis_completed"
	EventAnalysisFailed    Event = "analysis_failed"
	EventQueueDrained      Event = "queue_drained"
	EventTest              Event = "test"
)

// Payload carries event-specific fields. Missing fields render as empty or
// zero; formatting never fails.
type Payload map[string]any

// Service publishes workflow events to the operator. Implementations must
// treat delivery as best-effort: a failed publish never affects the record
// that triggered it.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		completed:    cfg.Notifications.Completed,
		failed:       cfg.Notifications.Failed,
		queueDrained: cfg.Notifications.QueueDrained,
		dedupWindow:  time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		lastSent:     make(map[string]time.Time),
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client

	completed    bool
	failed       bool
	queueDrained bool

	dedupWindow time.Duration
	mu          sync.Mutex
	lastSent    map[string]time.Time
}

// Publish formats and delivers the event. Events disabled by configuration
// and duplicates inside the dedup window are dropped without error.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if !n.enabled(event) {
		return nil
	}
	msg, ok := formatEvent(event, payload)
	if !ok {
		return nil
	}
	if n.suppressed(event, payload) {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventAnalysisCompleted:
		return n.completed
	case EventAnalysisFailed:
		return n.failed
	case EventQueueDrained:
		return n.queueDrained
	case EventTest:
		return true
	default:
		return false
	}
}

// suppressed reports whether an identical event fired inside the dedup
// window. Stale entries are pruned on each call so redeliveries of the same
// content hash do not spam the topic forever.
func (n *ntfyService) suppressed(event Event, payload Payload) bool {
	if n.dedupWindow <= 0 || event == EventTest {
		return false
	}
	key := string(event)
	if hash := stringField(payload, "contentHash"); hash != "" {
		key += "|" + hash
	}

	now := time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	for k, at := range n.lastSent {
		if now.Sub(at) > n.dedupWindow {
			delete(n.lastSent, k)
		}
	}
	if at, seen := n.lastSent[key]; seen && now.Sub(at) <= n.dedupWindow {
		return true
	}
	n.lastSent[key] = now
	return false
}

func formatEvent(event Event, payload Payload) (message, bool) {
	switch event {
	case EventAnalysisCompleted:
		verdict := stringField(payload, "verdict")
		if verdict == "" {
			verdict = "UNKNOWN"
		}
		return message{
			title: "Argus - Analysis Complete",
			body: fmt.Sprintf("🔍 %s: %s (%.1f/100)",
				shortHash(stringField(payload, "contentHash")),
				verdict,
				floatField(payload, "score"),
			),
			tags: []string{"argus", "analysis", "completed"},
		}, true
	case EventAnalysisFailed:
		reason := stringField(payload, "error")
		if reason == "" {
			reason = "unknown"
		}
		return message{
			title:    "Argus - Analysis Failed",
			body:     fmt.Sprintf("❌ Analysis failed for %s: %s", shortHash(stringField(payload, "contentHash")), reason),
			tags:     []string{"argus", "analysis", "failed"},
			priority: "high",
		}, true
	case EventQueueDrained:
		processed := intField(payload, "processed")
		failed := intField(payload, "failed")
		duration := durationField(payload, "duration").Round(time.Second)
		if duration < 0 {
			duration = 0
		}
		durationText := duration.String()
		if duration == 0 {
			durationText = "0s"
		}
		title := "Argus - Queue Drained"
		body := fmt.Sprintf("Analyzed %d images in %s", processed, durationText)
		if failed > 0 {
			title = "Argus - Queue Drained (with errors)"
			body = fmt.Sprintf("Analyzed %d images, %d failed in %s", processed, failed, durationText)
		}
		return message{
			title: title,
			body:  body,
			tags:  []string{"argus", "queue", "drained"},
		}, true
	case EventTest:
		return message{
			title:    "Argus - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"argus", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// shortHash abbreviates a content hash for notification bodies. Full hashes
// stay in the record; push notifications only need enough to correlate.
func shortHash(hash string) string {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return "unknown image"
	}
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func stringField(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		if v == nil {
			return ""
		}
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func intField(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func floatField(payload Payload, key string) float64 {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func durationField(payload Payload, key string) time.Duration {
	if payload == nil {
		return 0
	}
	if v, ok := payload[key].(time.Duration); ok {
		return v
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
