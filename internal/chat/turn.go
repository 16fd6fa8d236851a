package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amrita-ai/amrita/internal/sessions"
	"github.com/amrita-ai/amrita/internal/textutil"
	"github.com/amrita-ai/amrita/pkg/models"
)

// ChatTurn executes one user turn: Created, Running, Finalizing, then
// Done or Failed. It implements hooks.TurnHandle and tools.Emitter, so
// hook handlers and custom-run tools can stream side chunks through it.
type ChatTurn struct {
	engine  *Engine
	opts    TurnOptions
	id      string
	session *sessions.SessionData
	cfg     *models.AmritaConfig
	// working is the turn's private memory copy; committed to the
	// session atomically at the end of a clean turn.
	working *models.MemoryModel

	queue *responseQueue // nil in callback mode

	// cbMu serializes callback invocations; the callback must not
	// re-enter the turn.
	cbMu sync.Mutex

	mu       sync.Mutex
	callback func(chunk string) error
	consumed bool
	started  bool
	cancel   context.CancelFunc

	done chan struct{}
	err  error

	startTime time.Time
	endTime   time.Time

	// timestamp is the model-readable arrival time of the user message,
	// surfaced as turn metadata through Timestamp.
	timestamp string
}

func newChatTurn(e *Engine, opts TurnOptions, session *sessions.SessionData, cfg *models.AmritaConfig) *ChatTurn {
	t := &ChatTurn{
		engine:  e,
		opts:    opts,
		id:      uuid.New().String(),
		session: session,
		cfg:     cfg,
		done:    make(chan struct{}),

		timestamp: textutil.FormatTimestamp(time.Now()),
	}
	if opts.Callback != nil {
		t.callback = opts.Callback
	} else {
		t.queue = newResponseQueue(opts.QueueSize, opts.OverflowQueueSize)
	}
	return t
}

// StreamID returns the turn's unique stream identifier.
func (t *ChatTurn) StreamID() string { return t.id }

// SessionID returns the session the turn runs in.
func (t *ChatTurn) SessionID() string { return t.opts.SessionID }

// Timestamp returns when the user message arrived, formatted for model
// consumption. Embedders attach it to turn snapshots.
func (t *ChatTurn) Timestamp() string { return t.timestamp }

// SetCallback switches the turn to callback delivery. It fails once a
// queue consumer is attached or the turn has started.
func (t *ChatTurn) SetCallback(fn func(chunk string) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.consumed || t.started {
		return ErrSinkConflict
	}
	t.callback = fn
	return nil
}

// YieldResponse delivers one chunk to the turn's sink. Callback mode
// serializes invocations under the turn lock; queue mode may block on
// backpressure.
func (t *ChatTurn) YieldResponse(chunk string) error {
	if t.engine.Metrics != nil {
		t.engine.Metrics.StreamChunks.Inc()
	}
	t.mu.Lock()
	cb := t.callback
	t.mu.Unlock()
	if cb != nil {
		t.cbMu.Lock()
		defer t.cbMu.Unlock()
		return cb(chunk)
	}
	return t.queue.Put(chunk)
}

// Begin starts the turn's agent loop in the background. The returned
// error covers start-up only; the loop outcome surfaces through Wait,
// FullResponse or the generator's Err.
func (t *ChatTurn) Begin(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.started = true
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	if t.engine.Tracker != nil {
		t.engine.Tracker.add(t)
	}
	go t.run(runCtx)
	return nil
}

// Cancel aborts a running turn: the current adapter stream stops,
// pending tool invocations are dropped and the turn fails with a
// cancellation error.
func (t *ChatTurn) Cancel() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the turn finishes and returns its outcome.
func (t *ChatTurn) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the turn's outcome; valid after Wait or a drained
// generator.
func (t *ChatTurn) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// claimConsumer marks the one-shot queue consumer as taken.
func (t *ChatTurn) claimConsumer() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.callback != nil {
		return ErrSinkConflict
	}
	if t.consumed {
		return ErrConsumed
	}
	t.consumed = true
	return nil
}

// ResponseGenerator returns the turn's chunk stream. The channel closes
// at EOF; check Err afterwards. One-shot.
func (t *ChatTurn) ResponseGenerator() (<-chan string, error) {
	if err := t.claimConsumer(); err != nil {
		return nil, err
	}
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			chunk, ok, _ := t.queue.Get()
			if !ok {
				return
			}
			out <- chunk
		}
	}()
	return out, nil
}

// FullResponse starts the turn if needed, drains the stream and returns
// the concatenated text. One-shot.
func (t *ChatTurn) FullResponse(ctx context.Context) (string, error) {
	if err := t.claimConsumer(); err != nil {
		return "", err
	}
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		if err := t.Begin(ctx); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	for {
		chunk, ok, err := t.queue.Get()
		if !ok {
			return b.String(), err
		}
		b.WriteString(chunk)
	}
}
