package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/ports"
)

const snapshotWriteTimeout = 2 * time.Second

// SnapshotKey is where the latest view of a session is stored
func SnapshotKey(sessionID string) string {
	return "session:" + sessionID + ":view"
}

// SnapshotStore keeps the latest rendered view of every session in the cache.
// Snapshots outlive their session until the TTL expires, so a client coming
// back after eviction can still read its transcript.
type SnapshotStore struct {
	cache ports.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewSnapshotStore(cache ports.Cache, ttl time.Duration, log *zap.Logger) *SnapshotStore {
	return &SnapshotStore{cache: cache, ttl: ttl, log: log}
}

// Target starts the writer for one session. Release stops it.
func (s *SnapshotStore) Target(sessionID string) *SnapshotTarget {
	t := &SnapshotTarget{
		store:     s,
		sessionID: sessionID,
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go t.writeLoop()
	return t
}

// Load returns the last stored view of a session
func (s *SnapshotStore) Load(ctx context.Context, sessionID string) (domain.View, error) {
	raw, err := s.cache.Get(ctx, SnapshotKey(sessionID))
	if err != nil {
		return domain.View{}, err
	}

	var view domain.View
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return domain.View{}, fmt.Errorf("decode view snapshot: %w", err)
	}
	return view, nil
}

// SnapshotTarget is a ports.RenderTarget bound to a single session.
// Render only encodes and hands the latest view to a writer goroutine, so the
// session lock is never held across a cache round trip. Intermediate views
// may be skipped; the last one always lands.
type SnapshotTarget struct {
	store     *SnapshotStore
	sessionID string

	mu      sync.Mutex
	latest  []byte
	signal  chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func (t *SnapshotTarget) Render(view domain.View) {
	data, err := json.Marshal(view)
	if err != nil {
		t.store.log.Error("failed to encode view snapshot", zap.String("session_id", t.sessionID), zap.Error(err))
		return
	}

	t.mu.Lock()
	t.latest = data
	t.mu.Unlock()

	select {
	case t.signal <- struct{}{}:
	default:
	}
}

// Release stops the writer after storing any view it had not written yet.
// The snapshot itself stays until its TTL expires.
func (t *SnapshotTarget) Release() {
	t.once.Do(func() {
		close(t.done)
		<-t.stopped
		t.flush()
	})
}

func (t *SnapshotTarget) writeLoop() {
	defer close(t.stopped)
	for {
		select {
		case <-t.done:
			return
		case <-t.signal:
			t.flush()
		}
	}
}

func (t *SnapshotTarget) flush() {
	t.mu.Lock()
	data := t.latest
	t.latest = nil
	t.mu.Unlock()

	if data == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotWriteTimeout)
	defer cancel()
	if err := t.store.cache.Set(ctx, SnapshotKey(t.sessionID), data, t.store.ttl); err != nil {
		t.store.log.Warn("failed to store view snapshot", zap.String("session_id", t.sessionID), zap.Error(err))
	}
}
