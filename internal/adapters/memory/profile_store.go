package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	apperrors "github.com/rejoiceinstitute/rejoice-web/internal/errors"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

// ErrProfileNotFound is returned by UpdateProfile when uid has no profile.
var ErrProfileNotFound = apperrors.New(apperrors.ErrCodeNotFound, "Profile not found.")

// ProfileStore keeps profiles in a map.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domainauth.Profile
	now      func() time.Time
}

var (
	_ ports.ProfileStore  = (*ProfileStore)(nil)
	_ ports.ProfileLister = (*ProfileStore)(nil)
)

// NewProfileStore creates an empty store. A nil now uses time.Now.
func NewProfileStore(now func() time.Time) *ProfileStore {
	if now == nil {
		now = time.Now
	}
	return &ProfileStore{profiles: make(map[string]domainauth.Profile), now: now}
}

func (s *ProfileStore) ReadProfile(_ context.Context, uid string) (*domainauth.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[uid]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *ProfileStore) WriteProfile(_ context.Context, uid string, p domainauth.Profile) (*domainauth.Profile, error) {
	if uid == "" {
		return nil, errors.New("uid is required")
	}
	p.CreatedAt = s.now().UTC()
	p.UpdatedAt = time.Time{}
	if p.Role == "" {
		p.Role = domainauth.RoleReader
	}
	s.mu.Lock()
	s.profiles[uid] = p
	s.mu.Unlock()
	return &p, nil
}

func (s *ProfileStore) UpdateProfile(_ context.Context, uid string, u domainauth.ProfileUpdate) (*domainauth.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[uid]
	if !ok {
		return nil, ErrProfileNotFound
	}
	if u.Empty() {
		return &p, nil
	}
	p = u.Apply(p)
	p.UpdatedAt = s.now().UTC()
	s.profiles[uid] = p
	return &p, nil
}

// ListProfiles returns profiles newest first, optionally filtered by role.
func (s *ProfileStore) ListProfiles(
	_ context.Context,
	role domainauth.Role,
	limit, offset int,
) ([]domainauth.ProfileRecord, error) {
	s.mu.RLock()
	out := make([]domainauth.ProfileRecord, 0, len(s.profiles))
	for uid, p := range s.profiles {
		if role != "" && p.Role != role {
			continue
		}
		out = append(out, domainauth.ProfileRecord{UID: uid, Profile: p})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Profile.CreatedAt, out[j].Profile.CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].UID < out[j].UID
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []domainauth.ProfileRecord{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// UIDs returns the stored uids in sorted order.
func (s *ProfileStore) UIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.profiles))
	for uid := range s.profiles {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}
