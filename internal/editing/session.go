package editing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/reelfeed/engine/internal/models"
)

var (
	// ErrTitleRequired indicates a save attempt with an empty title.
	ErrTitleRequired = errors.New("title is required")
	// ErrAddressRequired indicates address resolution on empty input.
	ErrAddressRequired = errors.New("address is required")
	// ErrResolveInFlight indicates a location request is already running.
	ErrResolveInFlight = errors.New("location request already in flight")
	// ErrLocationUnavailable indicates no device position source exists.
	ErrLocationUnavailable = errors.New("device location unavailable")
	// ErrNoResults indicates the geocoder found nothing for the input.
	ErrNoResults = errors.New("no matching locations")
	// ErrSessionClosed indicates an operation on a closed or saving session.
	ErrSessionClosed = errors.New("edit session closed")
)

// State names the lifecycle phase of a session.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateSaving
)

// Geocoder resolves between coordinates and human-readable addresses. Zero
// forward results are reported as an empty slice, not an error.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (models.Geotag, error)
	Forward(ctx context.Context, address string) ([]models.Geotag, error)
}

// Locator provides the device position.
type Locator interface {
	Position(ctx context.Context) (lat, lon float64, err error)
}

// VideoUpdater persists an edit to the backend.
type VideoUpdater interface {
	UpdateVideo(ctx context.Context, videoID string, patch models.VideoPatch) error
}

// Patcher applies a committed edit to the feed's rendered copy. Implemented
// by feed.Collection.
type Patcher interface {
	ApplyPatch(videoID string, patch models.VideoPatch) error
}

// Draft is the scratch copy of one video's editable fields. It belongs to a
// single session and is discarded on cancel or successful save.
type Draft struct {
	Title       string
	Description string
	Geotag      *models.Geotag
}

// Session is a short-lived, modal-scoped edit of one video. A failed save
// keeps the session open with the draft intact so the user's edits survive.
type Session struct {
	mu          sync.Mutex
	videoID     string
	updater     VideoUpdater
	patcher     Patcher
	geocoder    Geocoder
	locator     Locator
	state       State
	draft       Draft
	hadGeotag   bool
	saveErr     string
	geoInFlight bool
}

// NewSession opens an edit session seeded from the video's current fields.
// Ownership is checked by the caller before construction.
func NewSession(video models.Video, updater VideoUpdater, patcher Patcher, geocoder Geocoder, locator Locator) *Session {
	draft := Draft{Title: video.Title, Description: video.Description}
	if video.Geotag != nil {
		tag := *video.Geotag
		draft.Geotag = &tag
	}
	return &Session{
		videoID:   video.ID,
		updater:   updater,
		patcher:   patcher,
		geocoder:  geocoder,
		locator:   locator,
		state:     StateOpen,
		draft:     draft,
		hadGeotag: video.Geotag != nil,
	}
}

// State reports the session lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft returns a copy of the current draft.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft := s.draft
	if s.draft.Geotag != nil {
		tag := *s.draft.Geotag
		draft.Geotag = &tag
	}
	return draft
}

// SaveError returns the inline error from the last failed save, if any.
func (s *Session) SaveError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

// SetTitle updates the draft title.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return
	}
	s.draft.Title = title
}

// SetDescription updates the draft description.
func (s *Session) SetDescription(description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return
	}
	s.draft.Description = description
}

// SetGeotag places the chosen location on the draft. nil clears it.
func (s *Session) SetGeotag(tag *models.Geotag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return
	}
	if tag == nil {
		s.draft.Geotag = nil
		return
	}
	copied := *tag
	s.draft.Geotag = &copied
}

// ResolveCurrentLocation reads the device position, reverse-resolves it and
// populates the draft's location fields. One location operation may run at a
// time per draft; concurrent calls are rejected.
func (s *Session) ResolveCurrentLocation(ctx context.Context) error {
	if s.locator == nil {
		return ErrLocationUnavailable
	}

	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.geoInFlight {
		s.mu.Unlock()
		return ErrResolveInFlight
	}
	s.geoInFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.geoInFlight = false
		s.mu.Unlock()
	}()

	lat, lon, err := s.locator.Position(ctx)
	if err != nil {
		return fmt.Errorf("device position: %w", err)
	}

	tag, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		return fmt.Errorf("reverse geocode: %w", err)
	}

	s.mu.Lock()
	if s.state == StateOpen {
		s.draft.Geotag = &tag
	}
	s.mu.Unlock()
	return nil
}

// ResolveAddress forward-resolves free-text input to location candidates.
// Empty input is a validation error and never reaches the network; zero
// matches surface as ErrNoResults.
func (s *Session) ResolveAddress(ctx context.Context, address string) ([]models.Geotag, error) {
	if strings.TrimSpace(address) == "" {
		return nil, ErrAddressRequired
	}

	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.geoInFlight {
		s.mu.Unlock()
		return nil, ErrResolveInFlight
	}
	s.geoInFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.geoInFlight = false
		s.mu.Unlock()
	}()

	candidates, err := s.geocoder.Forward(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("forward geocode: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoResults
	}
	return candidates, nil
}

// Save validates the draft, persists it and commits it onto the feed's
// rendered copy. On backend failure the session stays open with the draft
// retained and the error available inline.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if strings.TrimSpace(s.draft.Title) == "" {
		s.saveErr = ErrTitleRequired.Error()
		s.mu.Unlock()
		return ErrTitleRequired
	}

	s.state = StateSaving
	s.saveErr = ""
	patch := s.patchLocked()
	videoID := s.videoID
	s.mu.Unlock()

	if err := s.updater.UpdateVideo(ctx, videoID, patch); err != nil {
		s.mu.Lock()
		s.state = StateOpen
		s.saveErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("save video: %w", err)
	}

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()

	if err := s.patcher.ApplyPatch(videoID, patch); err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}
	return nil
}

// Cancel discards the draft and closes the session.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSaving {
		return
	}
	s.state = StateClosed
	s.draft = Draft{}
}

func (s *Session) patchLocked() models.VideoPatch {
	title := s.draft.Title
	description := s.draft.Description
	patch := models.VideoPatch{Title: &title, Description: &description}
	if s.draft.Geotag != nil {
		tag := *s.draft.Geotag
		patch.Geotag = &tag
	} else if s.hadGeotag {
		patch.ClearGeotag = true
	}
	return patch
}
