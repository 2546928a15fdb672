// Package identity provides IdentityProvider implementations.
package identity

import (
	"context"
	"sync"

	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore"
)

// Role names accepted by NewStaticFromRoles.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// Static is an IdentityProvider backed by a fixed in-process table. It suits
// deployments where the user set is provisioned at startup (edge installs,
// tests); anything else should implement mediastore.IdentityProvider against
// the real account system.
type Static struct {
	mu    sync.RWMutex
	users map[int64]mediastore.CapabilitySet
}

// NewStatic creates a provider over the given user table.
func NewStatic(users map[int64]mediastore.CapabilitySet) *Static {
	table := make(map[int64]mediastore.CapabilitySet, len(users))
	for id, caps := range users {
		table[id] = caps
	}
	return &Static{users: table}
}

// NewStaticFromRoles creates a provider from a user id to role name mapping.
// Unknown role names grant nothing.
func NewStaticFromRoles(roles map[int64]string) *Static {
	users := make(map[int64]mediastore.CapabilitySet, len(roles))
	for id, role := range roles {
		users[id] = CapabilitiesForRole(role)
	}
	return NewStatic(users)
}

// CapabilitiesForRole maps a role name to its capability set.
func CapabilitiesForRole(role string) mediastore.CapabilitySet {
	switch role {
	case RoleViewer:
		return mediastore.CapabilitySet{Read: true}
	case RoleOperator:
		return mediastore.CapabilitySet{Read: true, Upload: true}
	case RoleAdmin:
		return mediastore.CapabilitySet{Read: true, Upload: true, Delete: true, Admin: true}
	default:
		return mediastore.CapabilitySet{}
	}
}

// Grant adds or replaces a user's capability set.
func (s *Static) Grant(userID int64, caps mediastore.CapabilitySet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = caps
}

func (s *Static) Capabilities(ctx context.Context, userID int64) (mediastore.CapabilitySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	caps, ok := s.users[userID]
	if !ok {
		return mediastore.CapabilitySet{}, mediastore.ErrUnknownUser
	}
	return caps, nil
}
