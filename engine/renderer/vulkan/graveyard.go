package vulkan

import (
	"github.com/spaghettifunk/vkbinder/engine/containers"
	"github.com/spaghettifunk/vkbinder/engine/core"
)

type tombstone[T any] struct {
	value     T
	timestamp uint64
}

// graveyard holds objects that left their cache while the GPU may still be
// reading them. Entries are buried with the current frame number, so the
// queue is ordered by timestamp and sweeping stops at the first survivor.
type graveyard[T any] struct {
	queue *containers.RingQueue[tombstone[T]]
}

func newGraveyard[T any]() *graveyard[T] {
	return &graveyard[T]{queue: containers.NewRingQueue[tombstone[T]](16)}
}

func (g *graveyard[T]) bury(value T, now uint64) {
	g.queue.Enqueue(tombstone[T]{value: value, timestamp: now})
}

// sweep destroys every entry idle for more than grace frames.
func (g *graveyard[T]) sweep(now, grace uint64, destroy func(T)) int {
	destroyed := 0
	for {
		t, err := g.queue.Peek()
		if err != nil || !core.Expired(t.timestamp, now, grace) {
			return destroyed
		}
		_, _ = g.queue.Dequeue()
		destroy(t.value)
		destroyed++
	}
}

// drain destroys everything regardless of age.
func (g *graveyard[T]) drain(destroy func(T)) {
	g.queue.Drain(func(t tombstone[T]) { destroy(t.value) })
}

func (g *graveyard[T]) len() int {
	return g.queue.Len()
}
