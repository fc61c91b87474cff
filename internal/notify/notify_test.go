package notify

import (
	"errors"
	"testing"

	"github.com/filehop/filehop/internal/config"
	"github.com/filehop/filehop/internal/transfer"
)

type sent struct {
	title, message string
}

func newRecording(cfg config.NotificationConfig) (*Notifier, *[]sent) {
	var got []sent
	n := NewNotifier(cfg, nil).WithSender(func(title, message string) error {
		got = append(got, sent{title, message})
		return nil
	})
	return n, &got
}

func allOn() config.NotificationConfig {
	return config.NotificationConfig{Enabled: true, ShowComplete: true, ShowFailed: true}
}

func TestBatchFinished(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.NotificationConfig
		direction transfer.Direction
		completed int
		failed    int
		want      []sent
	}{
		{
			name:      "download complete",
			cfg:       allOn(),
			direction: transfer.DirectionDownload,
			completed: 3,
			want:      []sent{{"filehop: Download complete", "3 files transferred."}},
		},
		{
			name:      "upload with failures",
			cfg:       allOn(),
			direction: transfer.DirectionUpload,
			completed: 1,
			failed:    1,
			want:      []sent{{"filehop: Upload failed", "1 file failed, 1 file completed."}},
		},
		{
			name:      "empty batch",
			cfg:       allOn(),
			direction: transfer.DirectionUpload,
		},
		{
			name:      "disabled",
			cfg:       config.NotificationConfig{ShowComplete: true, ShowFailed: true},
			direction: transfer.DirectionDownload,
			completed: 2,
		},
		{
			name:      "complete hidden",
			cfg:       config.NotificationConfig{Enabled: true, ShowFailed: true},
			direction: transfer.DirectionDownload,
			completed: 2,
		},
		{
			name:      "failed hidden",
			cfg:       config.NotificationConfig{Enabled: true, ShowComplete: true},
			direction: transfer.DirectionDownload,
			completed: 2,
			failed:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, got := newRecording(tt.cfg)
			n.BatchFinished(tt.direction, tt.completed, tt.failed)

			if len(*got) != len(tt.want) {
				t.Fatalf("sent %d notifications, want %d: %v", len(*got), len(tt.want), *got)
			}
			for i := range tt.want {
				if (*got)[i] != tt.want[i] {
					t.Errorf("notification %d = %+v, want %+v", i, (*got)[i], tt.want[i])
				}
			}
		})
	}
}

func TestBatchFinished_SendErrorIsLogged(t *testing.T) {
	n := NewNotifier(allOn(), nil).WithSender(func(string, string) error {
		return errors.New("no notification daemon")
	})
	// Must not panic with the default no-op logger.
	n.BatchFinished(transfer.DirectionUpload, 1, 0)
}

func TestSetEnabled(t *testing.T) {
	n, got := newRecording(allOn())

	n.SetEnabled(false)
	if n.IsEnabled() {
		t.Error("Expected disabled after SetEnabled(false)")
	}
	n.BatchFinished(transfer.DirectionUpload, 1, 0)
	if len(*got) != 0 {
		t.Errorf("disabled notifier sent %v", *got)
	}

	n.SetEnabled(true)
	n.BatchFinished(transfer.DirectionUpload, 1, 0)
	if len(*got) != 1 {
		t.Errorf("sent %d notifications after re-enabling, want 1", len(*got))
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10c", 10, "exactly10c"},
		{"this is a long string", 10, "this is..."},
		{"", 10, ""},
		{"abcd", 3, "..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
		}
	}
}
