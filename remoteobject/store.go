// Package remoteobject holds values exposed to the debugging console by
// handle. Each value lives in an arena slot keyed by an allocator-issued id
// and tagged with an object group; releasing a group drops all of its
// values at once.
package remoteobject

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/c360/ponybridge/errors"
)

// DefaultGroup is the group used when the caller supplies none.
const DefaultGroup = ""

type entry struct {
	value any
	group string
}

// Store is safe for concurrent use. Ids are never reused within a Store.
type Store struct {
	mu     sync.RWMutex
	nextID uint64
	values map[uint64]entry
	groups map[string]map[uint64]struct{}
}

// NewStore creates an empty store. The first id issued is "1".
func NewStore() *Store {
	return &Store{
		values: make(map[uint64]entry),
		groups: make(map[string]map[uint64]struct{}),
	}
}

// Register stores value under group and returns its opaque id.
func (s *Store) Register(value any, group string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.values[id] = entry{value: value, group: group}

	members, ok := s.groups[group]
	if !ok {
		members = make(map[uint64]struct{})
		s.groups[group] = members
	}
	members[id] = struct{}{}

	return strconv.FormatUint(id, 10)
}

// Get returns the value for id and its group. Unknown and released ids fail
// with errors.ErrKeyNotFound.
func (s *Store) Get(id string) (any, string, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, "", errors.WrapInvalid(
			fmt.Errorf("%w: malformed object id %q", errors.ErrKeyNotFound, id),
			"remoteobject", "Get", "parse object id")
	}

	s.mu.RLock()
	e, ok := s.values[n]
	s.mu.RUnlock()

	if !ok {
		return nil, "", errors.WrapInvalid(
			fmt.Errorf("%w: object id %s", errors.ErrKeyNotFound, id),
			"remoteobject", "Get", "lookup object")
	}
	return e.value, e.group, nil
}

// ReleaseGroup drops every value registered under group and returns how
// many were removed. Releasing an unknown group is a no-op.
func (s *Store) ReleaseGroup(group string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := s.groups[group]
	for id := range members {
		delete(s.values, id)
	}
	delete(s.groups, group)
	return len(members)
}

// Clear drops every value in every group.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[uint64]entry)
	s.groups = make(map[string]map[uint64]struct{})
}

// Len returns the number of live handles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Groups returns the number of groups holding at least one handle.
func (s *Store) Groups() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups)
}
