package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosid-go/upstream/chunk"
	"github.com/nosid-go/upstream/engine"
	"github.com/nosid-go/upstream/patience"
	"github.com/nosid-go/upstream/stream"
)

// fakeEngine is a minimal in-memory engine.Engine used to drive the retry
// loop without a real socket: ReadSome fails with ErrUnreadable the first
// retriesLeft times it is called, then succeeds.
type fakeEngine struct {
	retriesLeft int
	data        []byte
	shutdownErr error
	underlying  engine.Engine
	waits       int
}

func (f *fakeEngine) Shutdown() error  { return f.shutdownErr }
func (f *fakeEngine) HardClose() error { return nil }

func (f *fakeEngine) ReadSome(view chunk.WriteView) (int, error) {
	if f.retriesLeft > 0 {
		f.retriesLeft--
		return 0, engine.ErrUnreadable
	}
	n := copy(view.Data(), f.data)
	return n, nil
}

func (f *fakeEngine) WriteSome(view chunk.ReadView) (int, error) {
	if f.retriesLeft > 0 {
		f.retriesLeft--
		return 0, engine.ErrUnwritable
	}
	return view.Size(), nil
}

func (f *fakeEngine) ReadSomeBulk(chunks *chunk.BulkWriteView) (int, error) {
	return 0, nil
}
func (f *fakeEngine) WriteSomeBulk(chunks *chunk.BulkReadView) (int, error) {
	n := chunks.Total()
	chunks.Drain(n)
	return n, nil
}
func (f *fakeEngine) Downgrade() (engine.Engine, error) { return f.underlying, nil }
func (f *fakeEngine) Underlying() engine.Engine         { return f.underlying }
func (f *fakeEngine) NativeHandle() engine.NativeHandle { return 0 }

// recordingPatience counts how many times it is asked to wait, without
// actually blocking on any descriptor.
type recordingPatience struct{ calls int }

func (p *recordingPatience) Wait(handle engine.NativeHandle, op patience.Operation) error {
	p.calls++
	return nil
}

func TestReadSomeRetriesOnUnreadable(t *testing.T) {
	fe := &fakeEngine{retriesLeft: 2, data: []byte("hi")}
	s, err := stream.New(fe)
	require.NoError(t, err)

	p := &recordingPatience{}
	buf := make([]byte, 8)
	n, err := s.ReadSome(chunk.Into(buf), p)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "hi", string(buf[:n]))
	assert.Equal(t, 2, p.calls)
}

func TestWriteAllDrainsAcrossRetries(t *testing.T) {
	fe := &fakeEngine{retriesLeft: 1}
	s, err := stream.New(fe)
	require.NoError(t, err)

	p := &recordingPatience{}
	view := chunk.From([]byte("payload"))
	err = s.WriteAll(view, p)
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestGracefulCloseRejectsTrailingBytes(t *testing.T) {
	fe := &fakeEngine{data: []byte("x")}
	s, err := stream.New(fe)
	require.NoError(t, err)
	err = s.GracefulClose(&recordingPatience{})
	require.Error(t, err)
}

func TestGracefulCloseSucceedsOnCleanEOF(t *testing.T) {
	fe := &fakeEngine{}
	s, err := stream.New(fe)
	require.NoError(t, err)
	require.NoError(t, s.GracefulClose(&recordingPatience{}))
}

func TestNewRejectsNilEngine(t *testing.T) {
	_, err := stream.New(nil)
	require.Error(t, err)
}
