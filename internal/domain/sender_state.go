package domain

import "time"

// SenderState is the per-sender attribution state. Absence of a last code is
// represented by the empty zero value, never by a sentinel string.
type SenderState struct {
	LastCode      string     `json:"lastCode,omitempty"`
	LastCodeSetAt time.Time  `json:"lastCodeSetAt,omitempty"`
	LastPromptAt  *time.Time `json:"lastPromptAt,omitempty"`
}

// HasCode reports whether the sender ever supplied an explicit code.
func (s SenderState) HasCode() bool {
	return s.LastCode != ""
}

// ActiveCode returns the sender's last code if it is still inside the sticky
// window. A window of zero disables expiry.
func (s SenderState) ActiveCode(now time.Time, stickyWindow time.Duration) (string, bool) {
	if !s.HasCode() {
		return "", false
	}
	if stickyWindow > 0 && now.Sub(s.LastCodeSetAt) > stickyWindow {
		return "", false
	}
	return s.LastCode, true
}

// PromptAllowed reports whether an "unknown site" nudge may be sent now,
// honoring the prompt cooldown since the previous nudge.
func (s SenderState) PromptAllowed(now time.Time, cooldown time.Duration) bool {
	if s.LastPromptAt == nil {
		return true
	}
	return now.Sub(*s.LastPromptAt) >= cooldown
}
