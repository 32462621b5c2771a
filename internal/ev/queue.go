// Package ev implements an ordered batch of pending operations.
package ev

import "errors"

// Events represents a series of operations that are run in the order
// they were added.
type Events struct {
	events []func() error
}

// Add appends ev to the batch.
func (q *Events) Add(ev func() error) {
	q.events = append(q.events, ev)
}

// Len returns the number of operations waiting in the batch.
func (q *Events) Len() int {
	return len(q.events)
}

// Flush processess all of the operations represented by q and returns
// their errors joined together.
func (q *Events) Flush() error {
	return errors.Join(Flush(q)...)
}

// Flush runs every operation in queue, including ones added while it
// is running, and empties it.
func Flush(queue *Events) (errs []error) {
	for len(queue.events) > 0 {
		ev := queue.events[0]
		queue.events = queue.events[1:]

		err := ev()
		if err != nil {
			errs = append(errs, err)
		}
	}
	queue.events = nil
	return errs
}
