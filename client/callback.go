package wl

// Callback is a one-shot notification from the compositor. It is
// destroyed automatically after it fires.
type Callback struct {
	proxy
	Listener CallbackListener
}

// Then sets f to be called when the callback fires.
func (c *Callback) Then(f func(data uint32)) {
	c.Listener.Done = f
}
