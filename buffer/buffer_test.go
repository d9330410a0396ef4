package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosid-go/upstream/buffer"
)

func TestInitialAllocation(t *testing.T) {
	b := buffer.New()
	b.Reserve(10)
	assert.GreaterOrEqual(t, b.Capacity(), 10)
	assert.Equal(t, 0, b.Available())
}

func TestInitialAllocationFloorsAtThirtyTwo(t *testing.T) {
	b := buffer.New()
	b.Reserve(4)
	assert.GreaterOrEqual(t, b.Capacity(), 32)
}

func TestReserveNoopWhenSufficient(t *testing.T) {
	b := buffer.New()
	b.Reserve(64)
	require.NoError(t, b.Produce(10))
	require.NoError(t, b.Consume(4))
	capBefore := b.Capacity()
	b.Reserve(8)
	assert.Equal(t, capBefore, b.Capacity())
}

func TestReserveMovesToFront(t *testing.T) {
	b := buffer.New()
	b.Reserve(32)
	copy(b.Cold(), []byte("0123456789"))
	require.NoError(t, b.Produce(10))
	require.NoError(t, b.Consume(8))
	require.Equal(t, "89", string(b.Warm()))

	b.Reserve(30)
	assert.Equal(t, "89", string(b.Warm()))
	assert.GreaterOrEqual(t, b.Capacity(), 30)
}

func TestProduceThenConsumeRoundTrip(t *testing.T) {
	b := buffer.New()
	b.Reserve(16)
	copy(b.Cold(), []byte("hello"))
	require.NoError(t, b.Produce(5))
	assert.Equal(t, "hello", string(b.Warm()))
	require.NoError(t, b.Consume(5))
	assert.Equal(t, 0, b.Available())
}

func TestConsumeOverflowIsError(t *testing.T) {
	b := buffer.New()
	b.Reserve(16)
	require.NoError(t, b.Produce(4))
	err := b.Consume(5)
	require.Error(t, err)
}

func TestProduceOverflowIsError(t *testing.T) {
	b := buffer.New()
	b.Reserve(4)
	err := b.Produce(b.Capacity() + 1)
	require.Error(t, err)
}

func TestNewFromIsEntirelyWarm(t *testing.T) {
	b := buffer.NewFrom([]byte("payload"))
	assert.Equal(t, "payload", string(b.Warm()))
	assert.Equal(t, 0, b.Capacity())
}

func TestReserveReallocatesWhenBiasLargeAndColdTight(t *testing.T) {
	b := buffer.New()
	b.Reserve(1 << 17)
	big := make([]byte, 1<<17)
	copy(b.Cold(), big)
	require.NoError(t, b.Produce(len(big)))
	require.NoError(t, b.Consume(len(big)-10))

	b.Reserve(1 << 17)
	assert.Equal(t, 10, b.Available())
	assert.GreaterOrEqual(t, b.Capacity(), 1<<17)
}
