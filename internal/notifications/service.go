package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vodbridge/internal/config"
)

const userAgent = "vodbridge/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventUploadStarted   Event = "upload_started"
	EventUploadCompleted Event = "upload_completed"
	EventUploadFailed    Event = "upload_failed"
	EventQuotaPaused     Event = "quota_paused"
	EventVODUnavailable  Event = "vod_unavailable"
	EventMissingFile     Event = "missing_file"
	EventError           Event = "error"
	EventTest            Event = "test"
)

// Payload carries event fields keyed by name.
type Payload map[string]any

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
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
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventUploadCompleted:
		body := fmt.Sprintf("✅ Uploaded: %s", payloadString(payload, "title"))
		if link := payloadString(payload, "link"); link != "" {
			body += "\n" + link
		}
		return message{
			title: "vodbridge - Upload Complete",
			body:  body,
			tags:  []string{"vodbridge", "upload", "completed"},
		}, true
	case EventUploadFailed:
		return message{
			title:    "vodbridge - Upload Failed",
			body:     fmt.Sprintf("❌ Upload abandoned: %s\n%s", payloadString(payload, "title"), payloadString(payload, "error")),
			tags:     []string{"vodbridge", "upload", "failed"},
			priority: "high",
		}, true
	case EventQuotaPaused:
		body := "⏸️ Upload quota exceeded"
		if resume := payloadString(payload, "resume_at"); resume != "" {
			body += "; resuming at " + resume
		}
		if title := payloadString(payload, "title"); title != "" {
			body += "\nPending: " + title
		}
		return message{
			title: "vodbridge - Quota Paused",
			body:  body,
			tags:  []string{"vodbridge", "quota", "paused"},
		}, true
	case EventVODUnavailable:
		return message{
			title:    "vodbridge - VOD Listing Unavailable",
			body:     fmt.Sprintf("⚠️ Could not list VODs: %s", payloadString(payload, "error")),
			tags:     []string{"vodbridge", "twitch", "error"},
			priority: "high",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payloadString(payload, "context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if errText := payloadString(payload, "error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "vodbridge - Error",
			body:     builder.String(),
			tags:     []string{"vodbridge", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "vodbridge - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"vodbridge", "test"},
			priority: "low",
		}, true
	default:
		// upload_started and missing_file are logged, not pushed.
		return message{}, false
	}
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case time.Time:
		return v.Format(time.RFC1123)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
