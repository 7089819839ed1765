package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/aviorian/monad-mindshare/internal/domain"
)

// ErrProfileLookup wraps every failure to resolve a picked author.
var ErrProfileLookup = errors.New("profile lookup failed")

// errNoProfileData is returned when the lookup succeeds but carries no user.
var errNoProfileData = errors.New("no profile data returned")

// ProfileLookup resolves author ids to profiles.
type ProfileLookup interface {
	LookupProfiles(ctx context.Context, ids []int64) ([]domain.Profile, error)
}

// State is a read-only copy of the selection.
type State struct {
	Profiles         []domain.SelectedProfile `json:"profiles"`
	CustodyAddresses []string                 `json:"custodyAddresses"`
	Focused          *domain.Profile          `json:"focused,omitempty"`
}

// Set holds the authors picked for the next batch transfer. It is the only
// writer of the selection; readers get copies.
type Set struct {
	lookup ProfileLookup
	logger *zap.Logger

	mu       sync.RWMutex
	profiles []domain.SelectedProfile
	focused  *domain.Profile
	onEmpty  []func()
}

func NewSet(lookup ProfileLookup, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Set{lookup: lookup, logger: logger.Named("selection")}
}

// OnEmpty registers fn to run every time the selection becomes empty.
// Hooks run outside the set's lock.
func (s *Set) OnEmpty(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.onEmpty = append(s.onEmpty, fn)
	s.mu.Unlock()
}

// Pick resolves authorID through the profile lookup, focuses the profile
// and selects it.
func (s *Set) Pick(ctx context.Context, authorID int64) (domain.Profile, error) {
	if s.lookup == nil {
		return domain.Profile{}, fmt.Errorf("%w: lookup not configured", ErrProfileLookup)
	}
	profiles, err := s.lookup.LookupProfiles(ctx, []int64{authorID})
	if err != nil {
		return domain.Profile{}, fmt.Errorf("%w: %w", ErrProfileLookup, err)
	}

	var found *domain.Profile
	for i := range profiles {
		if profiles[i].AuthorID == authorID {
			found = &profiles[i]
			break
		}
	}
	if found == nil {
		return domain.Profile{}, fmt.Errorf("%w: %w", ErrProfileLookup, errNoProfileData)
	}

	profile := *found
	s.mu.Lock()
	s.focused = &profile
	s.mu.Unlock()
	s.Select(profile)
	return profile, nil
}

// Select adds p to the selection. Selecting an author twice is a no-op.
func (s *Set) Select(p domain.Profile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.profiles {
		if cur.AuthorID == p.AuthorID {
			return false
		}
	}
	s.profiles = append(s.profiles, domain.SelectedFromProfile(p))
	s.logger.Debug("author selected", zap.Int64("fid", p.AuthorID), zap.String("custody", p.CustodyAddress))
	return true
}

// Deselect removes authorID. Its custody address leaves the recipient set
// only when no remaining selected author shares it.
func (s *Set) Deselect(authorID int64) bool {
	s.mu.Lock()
	idx := -1
	for i, cur := range s.profiles {
		if cur.AuthorID == authorID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.profiles = append(s.profiles[:idx], s.profiles[idx+1:]...)
	if s.focused != nil && s.focused.AuthorID == authorID {
		s.focused = nil
	}
	hooks := s.emptyHooksLocked()
	s.mu.Unlock()

	s.logger.Debug("author deselected", zap.Int64("fid", authorID))
	runHooks(hooks)
	return true
}

// Clear empties the selection.
func (s *Set) Clear() {
	s.mu.Lock()
	s.profiles = nil
	s.focused = nil
	hooks := s.emptyHooksLocked()
	s.mu.Unlock()
	runHooks(hooks)
}

// CustodyAddresses lists the distinct lower-cased custody addresses of the
// selected authors in selection order. Authors without one contribute nothing.
func (s *Set) CustodyAddresses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return custodyAddresses(s.profiles)
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// Focused returns the most recently picked profile that is still selected.
func (s *Set) Focused() (domain.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.focused == nil {
		return domain.Profile{}, false
	}
	return *s.focused, true
}

func (s *Set) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		Profiles:         append([]domain.SelectedProfile{}, s.profiles...),
		CustodyAddresses: custodyAddresses(s.profiles),
	}
	if s.focused != nil {
		focused := *s.focused
		st.Focused = &focused
	}
	return st
}

func (s *Set) emptyHooksLocked() []func() {
	if len(s.profiles) > 0 {
		return nil
	}
	return append([]func(){}, s.onEmpty...)
}

func runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}

func custodyAddresses(profiles []domain.SelectedProfile) []string {
	out := make([]string, 0, len(profiles))
	seen := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		addr := strings.ToLower(strings.TrimSpace(p.CustodyAddress))
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}
