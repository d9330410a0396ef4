package patience_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/internal/insight"
	"github.com/nosid-go/upstream/patience"
)

func socketPair(t *testing.T) (a, b engine.NativeHandle) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return engine.NativeHandle(fds[0]), engine.NativeHandle(fds[1])
}

func TestInfiniteWaitReturnsWhenWritable(t *testing.T) {
	a, _ := socketPair(t)
	var p patience.Infinite
	require.NoError(t, p.Wait(a, patience.Write))
}

func TestSteadyTimesOutWhenNothingArrives(t *testing.T) {
	a, _ := socketPair(t)
	now := time.Now()
	p := patience.NewSteady(&now, 20*time.Millisecond)
	err := p.Wait(a, patience.Read)
	require.Error(t, err)
	assert.True(t, insight.Has(err, insight.Timeout))
}

func TestSteadyReturnsWhenPeerWrites(t *testing.T) {
	a, b := socketPair(t)
	go func() {
		time.Sleep(5 * time.Millisecond)
		unix.Write(int(b), []byte("x"))
	}()
	now := time.Now()
	p := patience.NewSteady(&now, time.Second)
	require.NoError(t, p.Wait(a, patience.Read))
}

func TestDeadlineTimesOut(t *testing.T) {
	a, _ := socketPair(t)
	d, err := patience.NewDeadlineFromNow(20 * time.Millisecond)
	require.NoError(t, err)
	defer d.Close()
	werr := d.Wait(a, patience.Read)
	require.Error(t, werr)
	assert.True(t, insight.Has(werr, insight.Timeout))
}

func TestDeadlineReturnsWhenWritable(t *testing.T) {
	a, _ := socketPair(t)
	d, err := patience.NewDeadlineFromNow(time.Second)
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.Wait(a, patience.Write))
}
