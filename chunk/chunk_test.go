package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosid-go/upstream/chunk"
)

func TestWriteViewDrain(t *testing.T) {
	buf := make([]byte, 8)
	v := chunk.Into(buf)
	require.Equal(t, 8, v.Size())
	v.Drain(3)
	assert.Equal(t, 5, v.Size())
	assert.Equal(t, buf[3:], v.Data())
}

func TestReadViewDrain(t *testing.T) {
	v := chunk.From([]byte("hello world"))
	v.Drain(6)
	assert.Equal(t, "world", string(v.Data()))
}

func TestBulkWriteViewDrainAcrossChunks(t *testing.T) {
	a := make([]byte, 4)
	b := make([]byte, 4)
	v := chunk.IntoBulk(a, b)
	require.Equal(t, 8, v.Total())
	require.Equal(t, 2, v.Count())

	v.Drain(6)
	assert.Equal(t, 2, v.Total())
	assert.Equal(t, 1, v.Count())
	assert.Equal(t, 2, v.Head().Size())
}

func TestBulkReadViewIovecsSkipDrained(t *testing.T) {
	v := chunk.FromBulk([]byte("abc"), []byte("defgh"))
	v.Drain(3)
	iovs := v.Iovecs()
	require.Len(t, iovs, 1)
	assert.Equal(t, 5, int(iovs[0].Len))
}

func TestBulkReadViewHeadSkipsEmpty(t *testing.T) {
	v := chunk.FromBulk([]byte{}, []byte("tail"))
	assert.Equal(t, "tail", string(v.Head().Data()))
}
