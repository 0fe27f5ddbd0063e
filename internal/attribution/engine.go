// Package attribution decides which site an inbound message belongs to.
//
// Per sender the state machine is {NoCode, HasCode(code, setAt)}: an
// explicit code always moves to HasCode, codeless messages leave the state
// untouched (sticky), and a sticky window elapsing degrades resolution back
// to the unknown sentinel.
package attribution

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alexkrista/whatsapp-webhook/internal/domain"
	"github.com/alexkrista/whatsapp-webhook/internal/store"
)

// Config is the process-wide attribution policy, read once at startup.
type Config struct {
	// StickyWindow is how long a sender's last code stays active without a
	// new explicit code. Zero disables expiry.
	StickyWindow time.Duration
	// PromptCooldown is the minimum spacing between "send a code" nudges to
	// the same sender.
	PromptCooldown time.Duration
	// CaptionCodes controls whether media captions are scanned for codes.
	CaptionCodes bool
}

// Resolution is the outcome of resolving one inbound message.
type Resolution struct {
	SiteCode     string
	Duplicate    bool
	ExplicitCode bool
	ShouldPrompt bool
}

// Engine owns all SenderState mutation. It is safe for concurrent use, but
// near-simultaneous messages from the same sender race on read-modify-write:
// the losing update is overwritten (accepted last-write-wins, see the
// concurrency test).
type Engine struct {
	states store.SenderStateRepository
	seen   store.SeenMessageStore
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewEngine(
	states store.SenderStateRepository,
	seen store.SeenMessageStore,
	cfg Config,
	logger *zap.Logger,
) (*Engine, error) {
	if states == nil {
		return nil, fmt.Errorf("sender state repository is required")
	}
	if seen == nil {
		return nil, fmt.Errorf("seen message store is required")
	}
	if cfg.StickyWindow < 0 {
		return nil, fmt.Errorf("sticky window must not be negative")
	}
	if cfg.PromptCooldown < 0 {
		return nil, fmt.Errorf("prompt cooldown must not be negative")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		states: states,
		seen:   seen,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Resolve maps one inbound message to a site code, with side effects on the
// sender's state, and decides whether a "send a code" prompt is due.
//
// A message id already in the seen set yields Duplicate=true and no state
// or journal side effects; a missing message id skips deduplication but is
// otherwise processed normally.
func (e *Engine) Resolve(ctx context.Context, msg domain.InboundMessage) (Resolution, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := msg.Validate(); err != nil {
		return Resolution{}, err
	}

	now := e.now().UTC()

	if msg.ID == "" {
		e.logger.Warn("message without id, dedup skipped",
			zap.String("senderId", msg.From),
			zap.String("messageType", msg.Type.String()),
		)
	} else {
		seen, err := e.seen.Seen(ctx, msg.ID)
		if err != nil {
			// Degrade to processing; a transient dedup failure must not drop
			// the message.
			e.logger.Error("seen check failed, treating message as new",
				zap.String("messageId", msg.ID),
				zap.Error(err),
			)
		} else if seen {
			return Resolution{Duplicate: true}, nil
		}
	}

	state, _, err := e.states.Get(ctx, msg.From)
	if err != nil {
		e.logger.Error("failed to load sender state, starting from empty",
			zap.String("senderId", msg.From),
			zap.Error(err),
		)
		state = domain.SenderState{}
	}

	var res Resolution
	if code, found := domain.ExtractSiteCode(msg.CodeText(e.cfg.CaptionCodes)); found {
		state.LastCode = code
		state.LastCodeSetAt = now
		res.SiteCode = code
		res.ExplicitCode = true
	} else if active, ok := state.ActiveCode(now, e.cfg.StickyWindow); ok {
		res.SiteCode = active
	} else {
		res.SiteCode = domain.UnknownSite
		if state.PromptAllowed(now, e.cfg.PromptCooldown) {
			res.ShouldPrompt = true
			promptAt := now
			state.LastPromptAt = &promptAt
		}
	}

	if err := e.states.Put(ctx, msg.From, state); err != nil {
		return res, fmt.Errorf("failed to persist sender state: %w", err)
	}

	if msg.ID != "" {
		if err := e.seen.Record(ctx, msg.ID, now); err != nil {
			e.logger.Error("failed to record seen message",
				zap.String("messageId", msg.ID),
				zap.Error(err),
			)
		}
	}

	return res, nil
}
