package security

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	audit "shieldgate/pkg/platform/audit"
)

func TestRingBuffer_FIFOAcrossWrap(t *testing.T) {
	b := NewRingBuffer(3)
	for i := range 5 {
		b.Enqueue(audit.SecurityEvent{Detail: fmt.Sprint(i)})
	}

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, int64(2), b.Dropped())

	out := b.DequeueBatch(10)
	if assert.Len(t, out, 3) {
		assert.Equal(t, "2", out[0].Detail)
		assert.Equal(t, "4", out[2].Detail)
	}
	assert.Equal(t, 0, b.Len())
	assert.Nil(t, b.DequeueBatch(1))
}

func TestRingBuffer_PartialDequeue(t *testing.T) {
	b := NewRingBuffer(4)
	for i := range 4 {
		b.Enqueue(audit.SecurityEvent{Detail: fmt.Sprint(i)})
	}

	first := b.DequeueBatch(3)
	assert.Len(t, first, 3)
	assert.False(t, b.Enqueue(audit.SecurityEvent{Detail: "4"}))

	rest := b.DequeueBatch(10)
	if assert.Len(t, rest, 2) {
		assert.Equal(t, "3", rest[0].Detail)
		assert.Equal(t, "4", rest[1].Detail)
	}
}

func TestRingBuffer_MinimumCapacity(t *testing.T) {
	b := NewRingBuffer(0)
	assert.False(t, b.Enqueue(audit.SecurityEvent{}))
	assert.True(t, b.Enqueue(audit.SecurityEvent{}))
	assert.Equal(t, 1, b.Len())
}
