// Package objstore tracks the protocol objects of a connection by ID.
//
// IDs are reused once the peer confirms that it has forgotten them, so
// every ID carries a generation counter. A Handle captures both, which
// lets a holder detect that the object it refers to has been destroyed
// or invalidated even if the ID has since been handed to a new object.
package objstore

import "deedles.dev/wlcore/wire"

// Handle identifies one incarnation of an object ID.
type Handle struct {
	ID  uint32
	Gen uint32
}

type state uint8

const (
	free state = iota
	live
	zombie
)

type slot struct {
	obj   wire.Object
	gen   uint32
	state state
}

type Store struct {
	slots  map[uint32]*slot
	free   []uint32
	nextID uint32
}

// New returns a Store that allocates IDs starting at start.
func New(start uint32) *Store {
	return &Store{
		slots:  make(map[uint32]*slot),
		nextID: start,
	}
}

func (s *Store) alloc() uint32 {
	if n := len(s.free); n > 0 {
		id := s.free[n-1]
		s.free = s.free[:n-1]
		return id
	}

	id := s.nextID
	s.nextID++
	return id
}

// Add registers obj. If obj has no ID yet, a free one is allocated and
// assigned to it.
func (s *Store) Add(obj wire.Object) Handle {
	id := obj.ID()
	if id == 0 {
		id = s.alloc()
		obj.SetID(id)
	}

	sl := s.slots[id]
	if sl == nil {
		sl = new(slot)
		s.slots[id] = sl
	}
	if sl.state == live {
		sl.obj.Delete()
		sl.gen++
	}
	sl.obj = obj
	sl.state = live

	return Handle{ID: id, Gen: sl.gen}
}

// Get returns the live object with the given ID, or nil if there is
// none.
func (s *Store) Get(id uint32) wire.Object {
	sl := s.slots[id]
	if (sl == nil) || (sl.state != live) {
		return nil
	}
	return sl.obj
}

// IsZombie reports whether id belongs to an object that has been
// invalidated but whose ID has not yet been released. Messages from
// such objects are expected and should be ignored.
func (s *Store) IsZombie(id uint32) bool {
	sl := s.slots[id]
	return (sl != nil) && (sl.state == zombie)
}

// Valid reports whether h still refers to a live object.
func (s *Store) Valid(h Handle) bool {
	sl := s.slots[h.ID]
	return (sl != nil) && (sl.state == live) && (sl.gen == h.Gen)
}

// Invalidate marks the object with the given ID as dead without making
// the ID available for reuse.
func (s *Store) Invalidate(id uint32) {
	sl := s.slots[id]
	if (sl == nil) || (sl.state != live) {
		return
	}

	sl.state = zombie
	sl.gen++
	sl.obj.Delete()
}

// Delete removes the object with the given ID and makes the ID
// available for reuse.
func (s *Store) Delete(id uint32) {
	sl := s.slots[id]
	if (sl == nil) || (sl.state == free) {
		return
	}

	s.Invalidate(id)
	sl.obj = nil
	sl.state = free
	s.free = append(s.free, id)
}

// Len returns the number of live objects.
func (s *Store) Len() int {
	var n int
	for _, sl := range s.slots {
		if sl.state == live {
			n++
		}
	}
	return n
}

// Clear invalidates every object in the store.
func (s *Store) Clear() {
	for id := range s.slots {
		s.Invalidate(id)
	}
}
