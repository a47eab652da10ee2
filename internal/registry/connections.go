package registry

import (
	"errors"
	"fmt"
)

// NoActive is the active index of a registry without an active profile.
const NoActive = -1

var (
	// ErrIndexOutOfRange is returned for an index outside [0, Len()).
	ErrIndexOutOfRange = errors.New("list index out of range")

	// ErrDuplicateName is returned when a profile name is already taken.
	ErrDuplicateName = errors.New("server profile name already exists")
)

// ConnectionRegistry is the ordered list of server profiles with at most one
// of them marked active.
//
// The active index is either NoActive or a valid index. Deleting the active
// profile clears it; deleting a profile before it shifts it so it keeps
// pointing at the same profile.
type ConnectionRegistry struct {
	profiles []ServerProfile
	active   int
}

// NewConnectionRegistry returns an empty registry with no active profile.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{active: NoActive}
}

// Len returns the number of profiles.
func (r *ConnectionRegistry) Len() int {
	return len(r.profiles)
}

// At returns the profile at index i.
func (r *ConnectionRegistry) At(i int) (ServerProfile, error) {
	if !r.valid(i) {
		return ServerProfile{}, ErrIndexOutOfRange
	}
	return r.profiles[i], nil
}

// All returns a copy of the profiles in order.
func (r *ConnectionRegistry) All() []ServerProfile {
	out := make([]ServerProfile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Append validates p and adds it at the end, optionally making it active.
func (r *ConnectionRegistry) Append(p ServerProfile, asActive bool) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if r.indexOf(p.Name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
	}

	r.profiles = append(r.profiles, p)
	if asActive {
		r.active = len(r.profiles) - 1
	}
	return nil
}

// Update replaces the profile at index i. The active index is unchanged.
func (r *ConnectionRegistry) Update(i int, p ServerProfile) error {
	if !r.valid(i) {
		return ErrIndexOutOfRange
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if j := r.indexOf(p.Name); j >= 0 && j != i {
		return fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
	}
	r.profiles[i] = p
	return nil
}

// Delete removes and returns the profile at index i.
func (r *ConnectionRegistry) Delete(i int) (ServerProfile, error) {
	if !r.valid(i) {
		return ServerProfile{}, ErrIndexOutOfRange
	}

	switch {
	case i == r.active:
		r.active = NoActive
	case i < r.active:
		r.active--
	}

	removed := r.profiles[i]
	r.profiles = append(r.profiles[:i], r.profiles[i+1:]...)
	return removed, nil
}

// SetActive marks the profile at index i as active.
func (r *ConnectionRegistry) SetActive(i int) error {
	if !r.valid(i) {
		return ErrIndexOutOfRange
	}
	r.active = i
	return nil
}

// ActiveIndex returns the active index or NoActive.
func (r *ConnectionRegistry) ActiveIndex() int {
	return r.active
}

// Active returns a copy of the active profile, or nil if none is active.
func (r *ConnectionRegistry) Active() *ServerProfile {
	if r.active == NoActive {
		return nil
	}
	p := r.profiles[r.active]
	return &p
}

// Clear removes every profile.
func (r *ConnectionRegistry) Clear() {
	r.profiles = nil
	r.active = NoActive
}

func (r *ConnectionRegistry) valid(i int) bool {
	return i >= 0 && i < len(r.profiles)
}

func (r *ConnectionRegistry) indexOf(name string) int {
	for i, p := range r.profiles {
		if p.Name == name {
			return i
		}
	}
	return -1
}
