package ev

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvents_Flush(t *testing.T) {
	var q Events
	var order []int

	errOne := errors.New("one")
	q.Add(func() error { order = append(order, 0); return nil })
	q.Add(func() error {
		order = append(order, 1)
		q.Add(func() error { order = append(order, 3); return nil })
		return errOne
	})
	q.Add(func() error { order = append(order, 2); return nil })
	assert.Equal(t, 3, q.Len())

	err := q.Flush()
	assert.ErrorIs(t, err, errOne)
	assert.Equal(t, []int{0, 1, 2, 3}, order)
	assert.Equal(t, 0, q.Len())
	assert.NoError(t, q.Flush())
}
