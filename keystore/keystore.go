// Package keystore implements an in-memory key slot store with typed
// attributes and a usage policy. Protocol operations consult the attributes
// when a key is bound and read the raw material only inside a locked slot,
// keeping the critical section as short as possible.
package keystore

import (
	"errors"
	"sync"

	"github.com/krish2718/mbedtls/utils"
)

// KeyType describes what a key slot holds.
type KeyType int

const (
	TypeNone KeyType = iota
	TypeRawData
	TypePassword
	TypePasswordHash
)

// Usage is the bit set of operations a key is allowed in.
type Usage uint32

const (
	UsageExport Usage = 1 << iota
	UsageDerive
)

// KeyID identifies a key slot. The zero value never names a live slot.
type KeyID uint32

// Attributes is the public metadata of a key slot.
type Attributes struct {
	Type  KeyType
	Usage Usage
}

var (
	// ErrDoesNotExist is returned when an identifier names no live slot.
	ErrDoesNotExist = errors.New("keystore: key does not exist")

	// ErrInvalidArgument is returned for malformed import attributes.
	ErrInvalidArgument = errors.New("keystore: invalid argument")
)

type slot struct {
	attr     Attributes
	material []byte
	lock     sync.Mutex
}

// Store is a set of key slots. The zero value is not usable; use
// [NewStore]. A Store is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	next  KeyID
	slots map[KeyID]*slot
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{next: 1, slots: make(map[KeyID]*slot)}
}

// Import copies material into a fresh slot and returns its identifier.
func (s *Store) Import(attr Attributes, material []byte) (KeyID, error) {
	if attr.Type == TypeNone {
		return 0, ErrInvalidArgument
	}
	buf := make([]byte, len(material))
	copy(buf, material)

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.slots[id] = &slot{attr: attr, material: buf}
	return id, nil
}

// Attributes returns the metadata of the key without touching its material.
func (s *Store) Attributes(id KeyID) (Attributes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return Attributes{}, ErrDoesNotExist
	}
	return sl.attr, nil
}

// Slot is a locked view of a key slot. Release must be called as soon as
// the material has been consumed.
type Slot struct {
	s *slot
}

// AcquireSlot locks the slot of id and returns it.
func (s *Store) AcquireSlot(id KeyID) (*Slot, error) {
	s.mu.Lock()
	sl, ok := s.slots[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrDoesNotExist
	}
	sl.lock.Lock()
	return &Slot{s: sl}, nil
}

// Key returns the raw key material. The slice is only valid until Release
// and must not be modified or retained.
func (sl *Slot) Key() []byte { return sl.s.material }

// Release unlocks the slot. The Slot must not be used afterwards.
func (sl *Slot) Release() {
	s := sl.s
	sl.s = nil
	s.lock.Unlock()
}

// Destroy zeroizes the material of id and removes the slot.
func (s *Store) Destroy(id KeyID) error {
	s.mu.Lock()
	sl, ok := s.slots[id]
	if ok {
		delete(s.slots, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrDoesNotExist
	}
	sl.lock.Lock()
	utils.Zeroize(sl.material)
	sl.material = nil
	sl.lock.Unlock()
	return nil
}
