package phash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum64Deterministic(t *testing.T) {
	assert.Equal(t, Sum64([]byte("prinbee")), Sum64([]byte("prinbee")))
}

func TestStreamingMatchesOneShot(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, twice over for a longer block")
	oneShot := Sum64(data)

	h := New()
	_, _ = h.Write(data[:23])
	_, _ = h.Write(data[23:])
	assert.Equal(t, oneShot, h.Sum64())
}

func TestResetProducesFreshState(t *testing.T) {
	h := New()
	_, _ = h.Write([]byte("abc"))
	first := h.Sum64()
	h.Reset()
	_, _ = h.Write([]byte("abc"))
	assert.Equal(t, first, h.Sum64())
}

func TestDifferentInputsDiffer(t *testing.T) {
	assert.NotEqual(t, Sum64([]byte("a")), Sum64([]byte("b")))
}
