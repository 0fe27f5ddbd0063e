package domain

import (
	"testing"
	"time"
)

func TestSenderStateActiveCode(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		state  SenderState
		window time.Duration
		want   string
		ok     bool
	}{
		{
			name:   "code inside window",
			state:  SenderState{LastCode: "260016", LastCodeSetAt: now.Add(-time.Hour)},
			window: 4 * time.Hour,
			want:   "260016",
			ok:     true,
		},
		{
			name:   "code expired",
			state:  SenderState{LastCode: "260016", LastCodeSetAt: now.Add(-5 * time.Hour)},
			window: 4 * time.Hour,
		},
		{
			name:   "zero window disables expiry",
			state:  SenderState{LastCode: "260016", LastCodeSetAt: now.Add(-30 * 24 * time.Hour)},
			window: 0,
			want:   "260016",
			ok:     true,
		},
		{
			name:   "no code",
			state:  SenderState{},
			window: 4 * time.Hour,
		},
		{
			name:   "exactly at window boundary still active",
			state:  SenderState{LastCode: "4711", LastCodeSetAt: now.Add(-4 * time.Hour)},
			window: 4 * time.Hour,
			want:   "4711",
			ok:     true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tt.state.ActiveCode(now, tt.window)
			if ok != tt.ok {
				t.Fatalf("ActiveCode() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("ActiveCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSenderStatePromptAllowed(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	cooldown := time.Hour

	if got := (SenderState{}).PromptAllowed(now, cooldown); !got {
		t.Fatal("PromptAllowed() = false for sender without prior prompt, want true")
	}

	recent := now.Add(-10 * time.Minute)
	if got := (SenderState{LastPromptAt: &recent}).PromptAllowed(now, cooldown); got {
		t.Fatal("PromptAllowed() = true inside cooldown, want false")
	}

	old := now.Add(-cooldown)
	if got := (SenderState{LastPromptAt: &old}).PromptAllowed(now, cooldown); !got {
		t.Fatal("PromptAllowed() = false at cooldown boundary, want true")
	}
}

func TestMessageCodeText(t *testing.T) {
	t.Parallel()

	text := InboundMessage{Type: MessageText, Text: "#260016 hallo", Caption: "ignored"}
	if got := text.CodeText(false); got != "#260016 hallo" {
		t.Fatalf("CodeText() = %q, want message body", got)
	}

	image := InboundMessage{Type: MessageImage, Caption: "#260016"}
	if got := image.CodeText(true); got != "#260016" {
		t.Fatalf("CodeText() = %q, want caption when caption codes enabled", got)
	}
	if got := image.CodeText(false); got != "" {
		t.Fatalf("CodeText() = %q, want empty when caption codes disabled", got)
	}

	audio := InboundMessage{Type: MessageAudio, Caption: "#260016"}
	if got := audio.CodeText(true); got != "" {
		t.Fatalf("CodeText() = %q, audio carries no caption", got)
	}
}
