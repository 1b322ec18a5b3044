// Package themestore owns the current theme preference and its resolved
// colors. It applies user transitions, enforces the premium gate, mirrors
// every change to the local cache, and syncs with the profile service on
// request.
//
// A Store starts Uninitialized and becomes Ready once Load has read the local
// cache. Colors are not available before that.
package themestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/palette/internal/event"
	"github.com/HerbHall/palette/internal/theme"
	"github.com/HerbHall/palette/pkg/preset"
)

var (
	ErrPremiumRequired = errors.New("premium entitlement required")
	ErrNotReady        = errors.New("theme store not loaded")
	ErrClosed          = errors.New("theme store closed")
	ErrUnknownPreset   = errors.New("unknown preset")
	ErrNoCustomColors  = errors.New("no custom colors saved")
	ErrNoRemote        = errors.New("no remote store configured")
)

// Status is the store lifecycle state.
type Status int

const (
	StatusUninitialized Status = iota
	StatusReady
)

func (s Status) String() string {
	if s == StatusReady {
		return "ready"
	}
	return "uninitialized"
}

// Transition names, used in Change events and metrics.
const (
	OpLoad              = "load"
	OpSetColorMode      = "set_color_mode"
	OpSelectPreset      = "select_preset"
	OpApplyCustomColors = "apply_custom_colors"
	OpUseCustomColors   = "use_custom_colors"
	OpReset             = "reset"
	OpRemoteLoad        = "remote_load"
)

// Change is the payload of event.TopicThemeChanged.
type Change struct {
	Op         string
	Preference theme.Preference
	Colors     theme.Colors
}

// LocalCache is the device-local preference store.
type LocalCache interface {
	Load(ctx context.Context) (theme.Preference, error)
	Save(ctx context.Context, pref theme.Preference) error
}

// RemoteStore is the authoritative profile preference record.
type RemoteStore interface {
	Load(ctx context.Context, credential string) (*theme.Preference, error)
	Save(ctx context.Context, credential string, pref theme.Preference) error
}

// Entitlements answers premium checks.
type Entitlements interface {
	CheckPremium(ctx context.Context, credential string) bool
}

// Options configures a Store. Every field is optional.
type Options struct {
	Local       LocalCache
	Remote      RemoteStore
	Gate        Entitlements
	Catalog     *preset.Catalog
	Bus         event.Publisher
	Logger      *zap.Logger
	DefaultMode theme.ColorMode
}

type remoteSave struct {
	ctx        context.Context
	credential string
	pref       theme.Preference
}

// Store holds the theme state.
type Store struct {
	local    LocalCache
	remote   RemoteStore
	gate     Entitlements
	catalog  *preset.Catalog
	resolver *theme.Resolver
	bus      event.Publisher
	logger   *zap.Logger

	mu      sync.Mutex
	status  Status
	closed  bool
	premium bool
	pref    theme.Preference
	colors  theme.Colors

	cacheWrites *coalescer[theme.Preference]
	remoteSaves *coalescer[remoteSave]
}

// New creates an Uninitialized store.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := theme.NewResolver(opts.Catalog)
	s := &Store{
		local:    opts.Local,
		remote:   opts.Remote,
		gate:     opts.Gate,
		catalog:  resolver.Catalog(),
		resolver: resolver,
		bus:      opts.Bus,
		logger:   logger,
		pref:     theme.DefaultPreference(opts.DefaultMode),
	}
	s.cacheWrites = newCoalescer(s.writeLocal)
	s.remoteSaves = newCoalescer(s.writeRemote)
	return s
}

// Load reads the local cache and makes the store Ready. Unreadable cache
// entries are logged and replaced by defaults. Calling Load on a Ready
// store is a no-op.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.status == StatusReady:
		s.mu.Unlock()
		return nil
	}
	pref := s.pref
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.local != nil {
		loaded, err := s.local.Load(ctx)
		if err != nil {
			s.logger.Warn("local theme cache unreadable, using defaults", zap.Error(err))
		}
		pref = loaded
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.status == StatusReady {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusReady
	change := s.setLocked(OpLoad, pref)
	s.mu.Unlock()

	observeTransition(OpLoad, nil)
	s.publish(change)
	return nil
}

// Status reports whether the store has loaded.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Colors returns the resolved colors. ok is false until the store is Ready.
func (s *Store) Colors() (colors theme.Colors, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusReady {
		return theme.Colors{}, false
	}
	return s.colors, true
}

// Preference returns a copy of the current preference.
func (s *Store) Preference() theme.Preference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pref.Clone()
}

func (s *Store) ColorMode() theme.ColorMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pref.ColorMode
}

func (s *Store) PaletteMode() theme.PaletteMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pref.PaletteMode
}

// PresetID returns the selected preset, or "" when none is selected.
func (s *Store) PresetID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pref.PresetID
}

// CustomColors returns a copy of the saved custom colors, or nil.
func (s *Store) CustomColors() *theme.UserColors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pref.Clone().CustomColors
}

// Catalog returns the preset catalog the store validates against.
func (s *Store) Catalog() *preset.Catalog {
	return s.catalog
}

// IsPremium returns the cached entitlement flag.
func (s *Store) IsPremium() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.premium
}

// SetPremium overrides the cached entitlement flag.
func (s *Store) SetPremium(premium bool) {
	s.mu.Lock()
	s.premium = premium
	s.mu.Unlock()
}

// RefreshEntitlement asks the gate about credential and caches the answer.
// Without a gate the store is never premium.
func (s *Store) RefreshEntitlement(ctx context.Context, credential string) bool {
	premium := false
	if s.gate != nil {
		premium = s.gate.CheckPremium(ctx, credential)
	}
	s.SetPremium(premium)
	return premium
}

// SetColorMode switches between light and dark.
func (s *Store) SetColorMode(mode theme.ColorMode) error {
	return s.transition(OpSetColorMode, func(p *theme.Preference, _ bool) error {
		if _, ok := theme.ParseColorMode(string(mode)); !ok {
			return fmt.Errorf("unknown color mode %q", mode)
		}
		p.ColorMode = mode
		return nil
	})
}

// SelectPreset selects a catalog preset. The default preset ID switches to
// the default palette. Premium presets return ErrPremiumRequired unless the
// store is premium.
func (s *Store) SelectPreset(id string) error {
	return s.transition(OpSelectPreset, func(p *theme.Preference, premium bool) error {
		if id == preset.DefaultID {
			p.PaletteMode = theme.ModeDefault
			p.PresetID = ""
			return nil
		}
		pr, ok := s.catalog.Get(id)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPreset, id)
		}
		if !pr.IsFree && !premium {
			return fmt.Errorf("%w: preset %q", ErrPremiumRequired, id)
		}
		p.PaletteMode = theme.ModePreset
		p.PresetID = id
		return nil
	})
}

// ApplyCustomColors saves colors and switches to the custom palette.
func (s *Store) ApplyCustomColors(colors theme.UserColors) error {
	return s.transition(OpApplyCustomColors, func(p *theme.Preference, premium bool) error {
		if !premium {
			return fmt.Errorf("%w: custom colors", ErrPremiumRequired)
		}
		if err := colors.Validate(); err != nil {
			return err
		}
		p.PaletteMode = theme.ModeCustom
		p.PresetID = ""
		p.CustomColors = &colors
		return nil
	})
}

// UseCustomColors switches back to previously saved custom colors.
func (s *Store) UseCustomColors() error {
	return s.transition(OpUseCustomColors, func(p *theme.Preference, premium bool) error {
		if !premium {
			return fmt.Errorf("%w: custom colors", ErrPremiumRequired)
		}
		if p.CustomColors == nil {
			return ErrNoCustomColors
		}
		p.PaletteMode = theme.ModeCustom
		p.PresetID = ""
		return nil
	})
}

// ResetToDefault clears the preset and custom colors.
func (s *Store) ResetToDefault() error {
	return s.transition(OpReset, func(p *theme.Preference, _ bool) error {
		p.PaletteMode = theme.ModeDefault
		p.PresetID = ""
		p.CustomColors = nil
		return nil
	})
}

// transition applies fn to a copy of the current preference. On success the
// copy becomes current, colors are recomputed, and a cache write is queued.
// On error nothing changes.
func (s *Store) transition(op string, fn func(p *theme.Preference, premium bool) error) error {
	s.mu.Lock()
	var err error
	switch {
	case s.closed:
		err = ErrClosed
	case s.status != StatusReady:
		err = ErrNotReady
	}
	if err != nil {
		s.mu.Unlock()
		observeTransition(op, err)
		return err
	}

	next := s.pref.Clone()
	if err := fn(&next, s.premium); err != nil {
		s.mu.Unlock()
		observeTransition(op, err)
		s.logger.Debug("theme transition refused", zap.String("op", op), zap.Error(err))
		return err
	}
	change := s.setLocked(op, next)
	s.mu.Unlock()

	observeTransition(op, nil)
	s.publish(change)
	return nil
}

// setLocked installs pref, recomputes colors and queues the cache write.
// s.mu must be held.
func (s *Store) setLocked(op string, pref theme.Preference) Change {
	s.pref = pref
	s.colors = s.resolver.Resolve(pref)
	if s.local != nil {
		s.cacheWrites.Submit(pref.Clone())
	}
	return Change{Op: op, Preference: pref.Clone(), Colors: s.colors}
}

func (s *Store) publish(c Change) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(context.Background(), event.Event{
		Topic:   event.TopicThemeChanged,
		Source:  "themestore",
		Payload: c,
	})
}

func (s *Store) writeLocal(pref theme.Preference) error {
	err := s.local.Save(context.Background(), pref)
	if err != nil {
		cacheWritesTotal.WithLabelValues("error").Inc()
		s.logger.Warn("local theme cache write failed", zap.Error(err))
		return err
	}
	cacheWritesTotal.WithLabelValues("ok").Inc()
	return nil
}

func (s *Store) writeRemote(r remoteSave) error {
	return s.remote.Save(r.ctx, r.credential, r.pref)
}

// LoadFromRemote replaces the current preference with the profile service's
// copy. It reports false when the service holds no preference. On error
// the current state is kept.
func (s *Store) LoadFromRemote(ctx context.Context, credential string) (bool, error) {
	if s.remote == nil {
		return false, ErrNoRemote
	}
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return false, ErrClosed
	case s.status != StatusReady:
		s.mu.Unlock()
		return false, ErrNotReady
	}
	s.mu.Unlock()

	pref, err := s.remote.Load(ctx, credential)
	if err != nil {
		observeTransition(OpRemoteLoad, err)
		s.logger.Warn("remote theme load failed", zap.Error(err))
		return false, fmt.Errorf("load remote preference: %w", err)
	}
	if pref == nil {
		return false, nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	change := s.setLocked(OpRemoteLoad, pref.Clone())
	s.mu.Unlock()

	observeTransition(OpRemoteLoad, nil)
	s.publish(change)
	return true, nil
}

// SaveToRemote pushes the current preference to the profile service.
// Saves are serialized: while one is in flight, later calls queue and only
// the newest queued snapshot is sent. If ctx ends first SaveToRemote
// returns ctx.Err() and the save continues in the background.
func (s *Store) SaveToRemote(ctx context.Context, credential string) error {
	if s.remote == nil {
		return ErrNoRemote
	}
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.status != StatusReady:
		s.mu.Unlock()
		return ErrNotReady
	}
	pref := s.pref.Clone()
	s.mu.Unlock()

	done := s.remoteSaves.Submit(remoteSave{
		ctx:        context.WithoutCancel(ctx),
		credential: credential,
		pref:       pref,
	})
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("save remote preference: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush waits for queued local cache writes.
func (s *Store) Flush(ctx context.Context) error {
	return s.cacheWrites.Wait(ctx)
}

// Close stops accepting transitions and waits for queued cache writes.
// Remote loads that complete after Close are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.cacheWrites.Wait(context.Background())
}
