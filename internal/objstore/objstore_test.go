package objstore

import (
	"testing"

	"deedles.dev/wlcore/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object struct {
	id      uint32
	deleted int
}

func (obj *object) ID() uint32                         { return obj.id }
func (obj *object) SetID(id uint32)                    { obj.id = id }
func (obj *object) Interface() string                  { return "wl_test" }
func (obj *object) MethodName(uint16) string           { return "" }
func (obj *object) Dispatch(*wire.MessageBuffer) error { return nil }
func (obj *object) Delete()                            { obj.deleted++ }

func TestStore_Allocate(t *testing.T) {
	s := New(1)

	var objs [3]object
	for i := range objs {
		s.Add(&objs[i])
	}
	assert.Equal(t, uint32(1), objs[0].id)
	assert.Equal(t, uint32(2), objs[1].id)
	assert.Equal(t, uint32(3), objs[2].id)
	assert.Equal(t, 3, s.Len())
	assert.Same(t, &objs[1], s.Get(2))
	assert.Nil(t, s.Get(4))
}

func TestStore_Lifecycle(t *testing.T) {
	s := New(1)

	var obj object
	h := s.Add(&obj)
	require.True(t, s.Valid(h))

	s.Invalidate(h.ID)
	assert.False(t, s.Valid(h))
	assert.True(t, s.IsZombie(h.ID))
	assert.Nil(t, s.Get(h.ID))
	assert.Equal(t, 1, obj.deleted)
	assert.Equal(t, 0, s.Len())

	// Zombies keep their ID until it is deleted.
	var other object
	s.Add(&other)
	assert.NotEqual(t, h.ID, other.id)

	s.Delete(h.ID)
	assert.False(t, s.IsZombie(h.ID))
	assert.Equal(t, 1, obj.deleted)

	var reused object
	h2 := s.Add(&reused)
	assert.Equal(t, h.ID, h2.ID)
	assert.NotEqual(t, h.Gen, h2.Gen)
	assert.False(t, s.Valid(h))
	assert.True(t, s.Valid(h2))
}

func TestStore_DeleteLive(t *testing.T) {
	s := New(1)

	var obj object
	h := s.Add(&obj)
	s.Delete(h.ID)
	assert.Equal(t, 1, obj.deleted)
	assert.False(t, s.Valid(h))
	assert.False(t, s.IsZombie(h.ID))

	s.Delete(h.ID)
	s.Invalidate(h.ID)
	assert.Equal(t, 1, obj.deleted)
}

func TestStore_ReuseIsLIFO(t *testing.T) {
	s := New(1)

	var objs [4]object
	for i := range objs {
		s.Add(&objs[i])
	}
	s.Delete(2)
	s.Delete(3)

	var a, b, c object
	s.Add(&a)
	s.Add(&b)
	s.Add(&c)
	assert.Equal(t, uint32(3), a.id)
	assert.Equal(t, uint32(2), b.id)
	assert.Equal(t, uint32(5), c.id)
}

func TestStore_PresetID(t *testing.T) {
	s := New(100)

	obj := object{id: 7}
	h := s.Add(&obj)
	assert.Equal(t, uint32(7), h.ID)
	assert.Same(t, &obj, s.Get(7))

	replacement := object{id: 7}
	h2 := s.Add(&replacement)
	assert.Equal(t, 1, obj.deleted)
	assert.False(t, s.Valid(h))
	assert.True(t, s.Valid(h2))
}

func TestStore_Clear(t *testing.T) {
	s := New(1)

	var objs [3]object
	handles := make([]Handle, 0, len(objs))
	for i := range objs {
		handles = append(handles, s.Add(&objs[i]))
	}
	s.Clear()

	assert.Equal(t, 0, s.Len())
	for i, h := range handles {
		assert.False(t, s.Valid(h))
		assert.Equal(t, 1, objs[i].deleted)
	}
}
