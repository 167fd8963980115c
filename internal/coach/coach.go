package coach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
)

// NotVisibleReply is what the user hears when Ask returns ErrNotVisible
const NotVisibleReply = "I cannot see you right now."

// ErrNotVisible is returned by Ask when there is no recent snapshot
var ErrNotVisible = errors.New("subject not visible")

// autoQuestion prefixes snapshots sent for unprompted advice
const autoQuestion = "What should I fix in my stance right now?"

// Advice is a coaching reply
type Advice struct {
	Question   string    `json:"question"`
	Text       string    `json:"text"`
	At         time.Time `json:"at"`
	SnapshotAt time.Time `json:"snapshot_at"`
}

// AdviceSink receives generated advice
type AdviceSink interface {
	PublishAdvice(a Advice)
}

// Coach keeps the most recent snapshot and answers questions about it
type Coach struct {
	gen        Generator
	sink       AdviceSink
	autoAdvice bool
	staleAfter time.Duration
	now        func() time.Time
	base       context.Context
	wg         sync.WaitGroup

	mu     sync.Mutex
	latest features.Snapshot
	seenAt time.Time
	asking sync.Mutex
}

// Options configure a Coach
type Options struct {
	AutoAdvice bool          // Generate advice for every snapshot
	StaleAfter time.Duration // Snapshots older than this are ignored by Ask (0 disables)
	Sink       AdviceSink
	// Context bounds background advice generation. Defaults to
	// context.Background().
	Context context.Context
}

// New returns a coach backed by gen
func New(gen Generator, opts Options) *Coach {
	base := opts.Context
	if base == nil {
		base = context.Background()
	}
	return &Coach{
		base:       base,
		gen:        gen,
		sink:       opts.Sink,
		autoAdvice: opts.AutoAdvice,
		staleAfter: opts.StaleAfter,
		now:        time.Now,
	}
}

// Consume implements Consumer. It records the snapshot; with auto-advice on,
// generation runs in the background.
func (c *Coach) Consume(_ context.Context, snap features.Snapshot) error {
	c.mu.Lock()
	c.latest = snap
	c.seenAt = c.now()
	c.mu.Unlock()

	if !c.autoAdvice || snap.Empty() {
		return nil
	}
	// Skip this round while a previous generation is still running
	if !c.asking.TryLock() {
		logger.Debug("Coach", "Advice generation busy, skipping snapshot")
		return nil
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.asking.Unlock()
		if _, err := c.answer(c.base, autoQuestion, snap); err != nil && c.base.Err() == nil {
			logger.Warn("Coach", "Advice generation failed: %v", err)
		}
	}()
	return nil
}

// Wait blocks until background advice generation has finished
func (c *Coach) Wait() {
	c.wg.Wait()
}

// Latest returns the most recent snapshot and whether one has been seen
func (c *Coach) Latest() (features.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, !c.seenAt.IsZero()
}

// Ask answers question using the latest snapshot
func (c *Coach) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("empty question")
	}

	c.mu.Lock()
	snap, seenAt := c.latest, c.seenAt
	c.mu.Unlock()

	if seenAt.IsZero() || snap.Empty() {
		return "", ErrNotVisible
	}
	if c.staleAfter > 0 && c.now().Sub(seenAt) > c.staleAfter {
		return "", ErrNotVisible
	}
	return c.answer(ctx, question, snap)
}

func (c *Coach) answer(ctx context.Context, question string, snap features.Snapshot) (string, error) {
	start := c.now()
	text, err := c.gen.Generate(ctx, question+BuildPrompt(snap))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	logger.Debug("Coach", "Generated %d chars in %v", len(text), c.now().Sub(start))

	if c.sink != nil {
		c.sink.PublishAdvice(Advice{
			Question:   question,
			Text:       text,
			At:         c.now(),
			SnapshotAt: snap.TakenAt,
		})
	}
	return text, nil
}
