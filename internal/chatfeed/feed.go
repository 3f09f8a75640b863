// Package chatfeed keeps one viewer's conversation with one partner: the
// persisted transcript, live appends from the insert feed, and the send path
// that asks the wingman for a tone note first.
package chatfeed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/metrics"
	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
	"gitea.kood.tech/petrkubec/linkvibez/internal/wingman"
)

var (
	ErrEmptyMessage = errors.New("chatfeed: empty message")
	ErrNoSession    = errors.New("chatfeed: no signed-in viewer")
	ErrClosed       = errors.New("chatfeed: feed closed")
)

const updatesBuffer = 32

// MessageStore persists and loads messages.
type MessageStore interface {
	Conversation(ctx context.Context, a, b int) ([]model.Message, error)
	Insert(ctx context.Context, senderID, receiverID int, content string) (model.Message, error)
}

// Source is the system-wide message insert feed.
type Source interface {
	Subscribe() (<-chan model.Message, func())
}

type Deps struct {
	Messages MessageStore
	Source   Source
	Wingman  wingman.Generator
	Log      *zap.Logger
	Metrics  *metrics.Metrics
}

// SendResult is the outcome of a successful send.
type SendResult struct {
	Message      model.Message `json:"message"`
	Tone         string        `json:"tone"`
	ToneFallback bool          `json:"tone_fallback"`
}

// Feed is the live transcript between a viewer and a partner.
type Feed struct {
	deps      Deps
	log       *zap.Logger
	viewerID  int
	partnerID int

	mu         sync.Mutex
	transcript []model.Message
	seen       map[int64]struct{}
	updates    chan model.Message
	release    func()
	done       chan struct{}
	closed     bool
}

// Open loads the transcript for the pair, oldest first.
func Open(ctx context.Context, deps Deps, viewerID, partnerID int) (*Feed, error) {
	if viewerID <= 0 {
		return nil, ErrNoSession
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	f := &Feed{
		deps:      deps,
		log:       log.With(zap.Int("viewer_id", viewerID), zap.Int("partner_id", partnerID)),
		viewerID:  viewerID,
		partnerID: partnerID,
		seen:      make(map[int64]struct{}),
		updates:   make(chan model.Message, updatesBuffer),
	}
	if err := f.Refresh(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// Transcript returns a copy of the messages held so far.
func (f *Feed) Transcript() []model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Message, len(f.transcript))
	copy(out, f.transcript)
	return out
}

// Updates delivers each message newly appended to the transcript, once.
// It is closed by Close.
func (f *Feed) Updates() <-chan model.Message {
	return f.updates
}

// Subscribe attaches the feed to the insert source. Messages outside the pair
// are ignored. Calling it again is a no-op.
func (f *Feed) Subscribe() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if f.release != nil {
		return nil
	}
	in, release := f.deps.Source.Subscribe()
	f.release = release
	f.done = make(chan struct{})
	f.deps.Metrics.FeedSubscribed(1)

	go f.pump(in)
	return nil
}

func (f *Feed) pump(in <-chan model.Message) {
	defer close(f.done)
	defer f.deps.Metrics.FeedSubscribed(-1)

	for msg := range in {
		if !msg.Between(f.viewerID, f.partnerID) {
			continue
		}
		f.append(msg)
	}
}

// append adds msg unless its id was already seen and forwards it to Updates.
func (f *Feed) append(msg model.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if _, ok := f.seen[msg.ID]; ok {
		return false
	}
	f.seen[msg.ID] = struct{}{}
	f.transcript = append(f.transcript, msg)

	select {
	case f.updates <- msg:
	default:
		f.log.Warn("update buffer full, client must refresh", zap.Int64("message_id", msg.ID))
	}
	return true
}

// Refresh reloads the persisted transcript and keeps any pushed messages the
// reload did not return yet. No message appears twice.
func (f *Feed) Refresh(ctx context.Context) error {
	loaded, err := f.deps.Messages.Conversation(ctx, f.viewerID, f.partnerID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	merged := make([]model.Message, 0, len(loaded)+len(f.transcript))
	ids := make(map[int64]struct{}, len(loaded))
	for _, m := range loaded {
		if _, dup := ids[m.ID]; dup {
			continue
		}
		ids[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range f.transcript {
		if _, ok := ids[m.ID]; !ok {
			ids[m.ID] = struct{}{}
			merged = append(merged, m)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID < merged[j].ID
		}
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})

	f.transcript = merged
	for id := range ids {
		f.seen[id] = struct{}{}
	}
	return nil
}

// Send asks for a tone note on text and then persists it. Empty input is
// rejected before anything else happens. A failed tone request falls back to
// a fixed note; a failed insert is returned.
func (f *Feed) Send(ctx context.Context, text string) (SendResult, error) {
	if strings.TrimSpace(text) == "" {
		return SendResult{}, ErrEmptyMessage
	}
	if f.viewerID <= 0 {
		return SendResult{}, ErrNoSession
	}

	res := SendResult{}
	tone, err := wingman.Tone(ctx, f.deps.Wingman, text)
	if err != nil {
		f.log.Warn("tone analysis failed", zap.Error(err))
		f.deps.Metrics.ToneFallback()
		tone, res.ToneFallback = wingman.ToneFallbackText, true
	}
	res.Tone = tone

	msg, err := f.deps.Messages.Insert(ctx, f.viewerID, f.partnerID, text)
	if err != nil {
		return SendResult{}, fmt.Errorf("persist message: %w", err)
	}
	f.deps.Metrics.MessageSent()
	res.Message = msg
	f.append(msg)
	return res, nil
}

// Close releases the push subscription and closes Updates.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	release, done := f.release, f.done
	f.mu.Unlock()

	if release != nil {
		release()
		<-done
	}
	close(f.updates)
}
