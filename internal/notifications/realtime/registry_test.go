package realtime

import (
	"testing"

	"tutorbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DeliversToEveryStream(t *testing.T) {
	r := NewInMemoryRegistry(4)

	a, cancelA := r.Subscribe("u1")
	b, cancelB := r.Subscribe("u1")
	defer cancelB()

	n := &model.Notification{UserID: "u1", Message: "hello"}
	assert.True(t, r.Deliver("u1", n))
	assert.Same(t, n, <-a)
	assert.Same(t, n, <-b)

	assert.False(t, r.Deliver("u2", n))

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, r.Sessions("u1"))
}

func TestRegistry_FullBufferDropsWithoutBlocking(t *testing.T) {
	r := NewInMemoryRegistry(1)
	ch, cancel := r.Subscribe("u1")
	defer cancel()

	require.True(t, r.Deliver("u1", &model.Notification{Message: "first"}))
	assert.False(t, r.Deliver("u1", &model.Notification{Message: "second"}))
	assert.Equal(t, "first", (<-ch).Message)
}

func TestRegistry_CancelRemovesUser(t *testing.T) {
	r := NewInMemoryRegistry(0)
	_, cancel := r.Subscribe("u1")
	cancel()
	assert.Zero(t, r.Sessions("u1"))
	assert.False(t, r.Deliver("u1", &model.Notification{}))
}
