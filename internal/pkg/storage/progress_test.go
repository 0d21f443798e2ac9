package storage

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReader_Monotonic(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1000)
	var seen []int
	pr := NewProgressReader(iotest.OneByteReader(bytes.NewReader(data)), int64(len(data)), func(p int) {
		seen = append(seen, p)
	})

	n, err := io.Copy(io.Discard, pr)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)

	require.NotEmpty(t, seen)
	assert.Equal(t, 100, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1], "progress must strictly increase between reports")
	}
	assert.Equal(t, 100, pr.Percent())
}

func TestProgressReader_UnknownSize(t *testing.T) {
	var seen []int
	pr := NewProgressReader(bytes.NewReader([]byte("abc")), -1, func(p int) { seen = append(seen, p) })

	_, err := io.Copy(io.Discard, pr)
	require.NoError(t, err)
	assert.Equal(t, []int{100}, seen)
}

func TestProgressReader_OversizedBodyCapsAt100(t *testing.T) {
	var seen []int
	pr := NewProgressReader(bytes.NewReader(make([]byte, 50)), 10, func(p int) { seen = append(seen, p) })

	_, err := io.Copy(io.Discard, pr)
	require.NoError(t, err)
	for _, p := range seen {
		assert.LessOrEqual(t, p, 100)
	}
}

func TestProgressReader_NilCallback(t *testing.T) {
	pr := NewProgressReader(bytes.NewReader([]byte("abc")), 3, nil)
	_, err := io.Copy(io.Discard, pr)
	assert.NoError(t, err)
	assert.Equal(t, 0, NewProgressReader(bytes.NewReader(nil), 0, nil).Percent())
}
