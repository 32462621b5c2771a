package wl

import "image"

// Surface is a rectangular area whose content is provided by buffers.
// Changes made through Attach and Damage are pending until Commit.
type Surface struct {
	proxy
	Listener SurfaceListener

	version uint32
	attach  bool
	pending *Buffer
}

// Attach sets buf as the pending content of the surface. A nil buf
// removes the surface's content on the next commit. Attaching again
// before a commit replaces the pending buffer.
func (s *Surface) Attach(buf *Buffer, x, y int32) {
	var id uint32
	if buf != nil {
		if !s.display.check(buf) {
			return
		}
		id = buf.id
	}

	msg := newRequest(s, surfaceAttach, id, x, y)
	msg.WriteUint(id)
	msg.WriteInt(x)
	msg.WriteInt(y)
	s.display.Enqueue(msg)

	s.attach = true
	s.pending = buf
}

// Pending returns the buffer that will be committed by the next call
// to Commit, if any.
func (s *Surface) Pending() *Buffer {
	return s.pending
}

// Damage marks a region of the surface, in surface coordinates, as
// changed.
func (s *Surface) Damage(x, y, width, height int32) {
	msg := newRequest(s, surfaceDamage, x, y, width, height)
	msg.WriteInt(x)
	msg.WriteInt(y)
	msg.WriteInt(width)
	msg.WriteInt(height)
	s.display.Enqueue(msg)
}

// DamageRect is a convenience wrapper around Damage.
func (s *Surface) DamageRect(r image.Rectangle) {
	r = r.Canon()
	s.Damage(int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy()))
}

// DamageBuffer marks a region of the attached buffer, in buffer
// coordinates, as changed. It requires version 4 of wl_compositor and
// falls back to Damage otherwise.
func (s *Surface) DamageBuffer(x, y, width, height int32) {
	if s.version < 4 {
		s.Damage(x, y, width, height)
		return
	}

	msg := newRequest(s, surfaceDamageBuffer, x, y, width, height)
	msg.WriteInt(x)
	msg.WriteInt(y)
	msg.WriteInt(width)
	msg.WriteInt(height)
	s.display.Enqueue(msg)
}

// Frame asks the compositor to call done when it is a good time to
// draw the next frame. The request takes effect on the next commit.
func (s *Surface) Frame(done func(time uint32)) *Callback {
	callback := Callback{Listener: CallbackListener{Done: done}}
	s.display.create(s, &callback)

	msg := newRequest(s, surfaceFrame, callback.id)
	msg.WriteUint(callback.id)
	s.display.Enqueue(msg)

	return &callback
}

// Commit atomically applies the pending state. A buffer attached since
// the last commit becomes busy until the compositor releases it.
func (s *Surface) Commit() {
	s.display.Enqueue(newRequest(s, surfaceCommit))

	if s.attach && (s.pending != nil) {
		s.pending.acquire()
	}
	s.attach = false
	s.pending = nil
}

func (s *Surface) Destroy() {
	s.display.destroy(s, newRequest(s, surfaceDestroy))
}

func (s *Surface) Delete() {
	s.attach = false
	s.pending = nil
}
