package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vodbridge/internal/config"
	"vodbridge/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventUploadCompleted, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "upload completed",
			event: notifications.EventUploadCompleted,
			payload: notifications.Payload{
				"title": "Speedrun Sunday",
				"link":  "https://youtube.com/watch?v=abc",
			},
			expectTitle:   "vodbridge - Upload Complete",
			expectMessage: "✅ Uploaded: Speedrun Sunday\nhttps://youtube.com/watch?v=abc",
			expectTags:    "vodbridge,upload,completed",
		},
		{
			name:  "upload failed",
			event: notifications.EventUploadFailed,
			payload: notifications.Payload{
				"title": "Speedrun Sunday",
				"error": errors.New("upload reached retry maximum"),
			},
			expectTitle:    "vodbridge - Upload Failed",
			expectMessage:  "❌ Upload abandoned: Speedrun Sunday\nupload reached retry maximum",
			expectTags:     "vodbridge,upload,failed",
			expectPriority: "high",
		},
		{
			name:  "quota paused",
			event: notifications.EventQuotaPaused,
			payload: notifications.Payload{
				"resume_at": "Tue, 07 May 2024 00:10:00 PDT",
				"title":     "Speedrun Sunday",
			},
			expectTitle:   "vodbridge - Quota Paused",
			expectMessage: "⏸️ Upload quota exceeded; resuming at Tue, 07 May 2024 00:10:00 PDT\nPending: Speedrun Sunday",
			expectTags:    "vodbridge,quota,paused",
		},
		{
			name:           "vod unavailable",
			event:          notifications.EventVODUnavailable,
			payload:        notifications.Payload{"error": "twitch api timeout"},
			expectTitle:    "vodbridge - VOD Listing Unavailable",
			expectMessage:  "⚠️ Could not list VODs: twitch api timeout",
			expectTags:     "vodbridge,twitch,error",
			expectPriority: "high",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "ledger",
				"error":   "disk full",
			},
			expectTitle:    "vodbridge - Error",
			expectMessage:  "❌ Error with ledger: disk full",
			expectTags:     "vodbridge,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "vodbridge - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "vodbridge,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
				agent    string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				captured.agent = r.Header.Get("User-Agent")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
			if !strings.HasPrefix(captured.agent, "vodbridge/") {
				t.Fatalf("unexpected user agent %q", captured.agent)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	suppressed := []notifications.Event{
		notifications.EventUploadStarted,
		notifications.EventMissingFile,
	}

	for _, event := range suppressed {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
