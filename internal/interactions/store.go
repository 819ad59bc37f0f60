package interactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/reelfeed/engine/internal/models"
)

var (
	// ErrSignInRequired indicates no user is available to own the interaction.
	ErrSignInRequired = errors.New("sign in required")
	// ErrToggleInFlight indicates a toggle for the same video has not settled yet.
	ErrToggleInFlight = errors.New("interaction toggle already in flight")
	// ErrStoreClosed indicates the owning screen has been torn down.
	ErrStoreClosed = errors.New("interaction store closed")
)

// Outcome is the terminal state of one optimistic mutation.
type Outcome int

const (
	// OutcomeCommitted means the backend confirmed the optimistic change.
	OutcomeCommitted Outcome = iota + 1
	// OutcomeRolledBack means the backend rejected it and the local state
	// was restored to its pre-toggle values.
	OutcomeRolledBack
	// OutcomeIgnored means the response arrived after teardown and was
	// discarded without touching state.
	OutcomeIgnored
)

// Backend issues interaction mutations and the batched membership queries
// used to seed the store.
type Backend interface {
	ListInteractions(ctx context.Context, kind models.InteractionKind, userID string, videoIDs []string) (map[string]struct{}, error)
	CreateInteraction(ctx context.Context, kind models.InteractionKind, videoID, userID string) error
	DeleteInteraction(ctx context.Context, kind models.InteractionKind, videoID, userID string) error
}

// Counters adjusts the per-video counters rendered by the feed. Implemented
// by feed.Collection.
type Counters interface {
	AdjustCount(videoID string, kind models.InteractionKind, delta int) (int, error)
}

type entryState struct {
	liked      bool
	bookmarked bool
}

// Store layers optimistic like/bookmark state over the feed. Toggles apply
// locally first and reconcile against the backend; a failed mutation rolls
// both the flag and the counter back. Toggles on one video serialize, toggles
// on different videos are independent.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	counters Counters
	logger   *slog.Logger
	userID   string
	state    map[string]*entryState
	inflight map[string]struct{}
	onSettle func(videoID string, kind models.InteractionKind, outcome Outcome)
	closed   bool
}

// NewStore constructs a store for the signed-in user. userID may be empty,
// in which case every toggle fails with ErrSignInRequired.
func NewStore(backend Backend, counters Counters, userID string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend:  backend,
		counters: counters,
		logger:   logger,
		userID:   userID,
		state:    make(map[string]*entryState),
		inflight: make(map[string]struct{}),
	}
}

// OnSettle installs a hook invoked after each mutation commits or rolls
// back. Used by the controller for logging and by tests for synchronization.
func (s *Store) OnSettle(fn func(videoID string, kind models.InteractionKind, outcome Outcome)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSettle = fn
}

// Init seeds the store from the backend with exactly one membership query
// per interaction kind, regardless of feed size.
func (s *Store) Init(ctx context.Context, videoIDs []string) error {
	if s.userID == "" || len(videoIDs) == 0 {
		return nil
	}

	liked, err := s.backend.ListInteractions(ctx, models.InteractionLike, s.userID, videoIDs)
	if err != nil {
		return fmt.Errorf("list likes: %w", err)
	}
	bookmarked, err := s.backend.ListInteractions(ctx, models.InteractionBookmark, s.userID, videoIDs)
	if err != nil {
		return fmt.Errorf("list bookmarks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range videoIDs {
		_, isLiked := liked[id]
		_, isBookmarked := bookmarked[id]
		s.state[id] = &entryState{liked: isLiked, bookmarked: isBookmarked}
	}
	return nil
}

// IsLiked reports the current (optimistic) like state for a video.
func (s *Store) IsLiked(videoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state[videoID]; ok {
		return st.liked
	}
	return false
}

// IsBookmarked reports the current (optimistic) bookmark state for a video.
func (s *Store) IsBookmarked(videoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state[videoID]; ok {
		return st.bookmarked
	}
	return false
}

// ToggleLike flips the like state of a video optimistically and reconciles
// with the backend. A second toggle on the same video before the first
// settles is rejected with ErrToggleInFlight.
func (s *Store) ToggleLike(ctx context.Context, videoID string) error {
	return s.toggle(ctx, videoID, models.InteractionLike)
}

// ToggleBookmark is ToggleLike over the bookmark flag and counter.
func (s *Store) ToggleBookmark(ctx context.Context, videoID string) error {
	return s.toggle(ctx, videoID, models.InteractionBookmark)
}

func (s *Store) toggle(ctx context.Context, videoID string, kind models.InteractionKind) error {
	if s.userID == "" {
		return ErrSignInRequired
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	if _, busy := s.inflight[videoID]; busy {
		s.mu.Unlock()
		return ErrToggleInFlight
	}

	st, ok := s.state[videoID]
	if !ok {
		st = &entryState{}
		s.state[videoID] = st
	}

	var wasSet bool
	switch kind {
	case models.InteractionBookmark:
		wasSet = st.bookmarked
		st.bookmarked = !wasSet
	default:
		wasSet = st.liked
		st.liked = !wasSet
	}

	delta := 1
	if wasSet {
		delta = -1
	}
	if _, err := s.counters.AdjustCount(videoID, kind, delta); err != nil {
		s.logger.Warn("counter adjust failed", "video_id", videoID, "error", err)
	}

	s.inflight[videoID] = struct{}{}
	s.mu.Unlock()

	mutationID := uuid.NewString()
	go s.reconcile(ctx, mutationID, videoID, kind, wasSet)
	return nil
}

func (s *Store) reconcile(ctx context.Context, mutationID, videoID string, kind models.InteractionKind, wasSet bool) {
	var err error
	if wasSet {
		err = s.backend.DeleteInteraction(ctx, kind, videoID, s.userID)
	} else {
		err = s.backend.CreateInteraction(ctx, kind, videoID, s.userID)
	}

	s.mu.Lock()
	delete(s.inflight, videoID)

	outcome := OutcomeCommitted
	if err != nil {
		// The screen being gone means nobody is rendering this state any
		// more; a late rollback would tear whatever replaced it.
		if s.closed || ctx.Err() != nil {
			onSettle := s.onSettle
			s.mu.Unlock()
			s.logger.Debug("interaction response ignored after teardown",
				"mutation_id", mutationID, "video_id", videoID, "kind", string(kind))
			if onSettle != nil {
				onSettle(videoID, kind, OutcomeIgnored)
			}
			return
		}

		outcome = OutcomeRolledBack
		st := s.state[videoID]
		delta := 1
		switch kind {
		case models.InteractionBookmark:
			st.bookmarked = wasSet
		default:
			st.liked = wasSet
		}
		if !wasSet {
			delta = -1
		}
		if _, cerr := s.counters.AdjustCount(videoID, kind, delta); cerr != nil {
			s.logger.Warn("rollback counter adjust failed", "video_id", videoID, "error", cerr)
		}
	}
	onSettle := s.onSettle
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("interaction mutation rolled back",
			"mutation_id", mutationID, "video_id", videoID, "kind", string(kind), "error", err)
	}
	if onSettle != nil {
		onSettle(videoID, kind, outcome)
	}
}

// Close marks the store torn down. In-flight responses arriving afterwards
// are ignored rather than rolled back.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
