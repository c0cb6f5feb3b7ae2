package stream

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-sessmux/internal/core/streamio"
	pkgif "github.com/dep2p/go-sessmux/pkg/interfaces"
	"github.com/dep2p/go-sessmux/pkg/types"
)

const testID types.StreamID = 4

func newTestAdapter(t *testing.T, hooks Hooks) (*Adapter, *FakeStream, FakeResolver) {
	t.Helper()
	fs := NewFakeStream(testID)
	resolver := FakeResolver{testID: fs}
	a := NewAdapter(testID, types.Bidirectional, resolver, hooks)
	return a, fs, resolver
}

// ============================================================================
//                              读
// ============================================================================

func TestAdapter_ReadPeekSkipEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		payload := make([]byte, rng.Intn(64))
		rng.Read(payload)
		fin := rng.Intn(2) == 0
		maxRegion := rng.Intn(9)
		bufSize := 1 + rng.Intn(10)

		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			viaRead, readFin := func() ([]byte, bool) {
				a, fs, _ := newTestAdapter(t, Hooks{})
				fs.Receive(payload, fin)
				var out []byte
				buf := make([]byte, bufSize)
				for {
					r := a.Read(buf)
					out = append(out, buf[:r.BytesRead]...)
					if r.Fin || r.BytesRead == 0 {
						return out, r.Fin
					}
				}
			}()

			viaPeek, peekFin := func() ([]byte, bool) {
				a, fs, _ := newTestAdapter(t, Hooks{})
				fs.MaxRegion = maxRegion
				fs.Receive(payload, fin)
				return streamio.ReadAll(a)
			}()

			assert.True(t, bytes.Equal(viaRead, viaPeek))
			assert.Equal(t, readFin, peekFin)
			assert.Equal(t, fin, peekFin)
		})
	}
}

func TestAdapter_FinReadNotifiedOnce(t *testing.T) {
	notified := 0
	a, fs, _ := newTestAdapter(t, Hooks{OnFinRead: func(types.StreamID) { notified++ }})

	fs.Receive([]byte("abc"), true)

	buf := make([]byte, 2)
	r := a.Read(buf)
	assert.Equal(t, 2, r.BytesRead)
	assert.False(t, r.Fin)
	assert.Zero(t, notified)

	assert.True(t, a.SkipBytes(1))
	assert.Equal(t, 1, notified)

	r = a.Read(buf)
	assert.True(t, r.Fin)
	assert.True(t, a.SkipBytes(0))
	assert.Equal(t, 1, notified, "FIN 信号只能触发一次")
	assert.True(t, a.FinReadNotified())
}

func TestAdapter_ReadAppend(t *testing.T) {
	a, fs, _ := newTestAdapter(t, Hooks{})
	fs.Receive([]byte("world"), true)

	out, r := a.ReadAppend([]byte("hello "))
	assert.Equal(t, "hello world", string(out))
	assert.Equal(t, 5, r.BytesRead)
	assert.True(t, r.Fin)
}

func TestAdapter_PeekFinNext(t *testing.T) {
	a, fs, _ := newTestAdapter(t, Hooks{})
	fs.MaxRegion = 2
	fs.Receive([]byte("abcd"), true)

	p := a.PeekNextReadableRegion()
	assert.Equal(t, "ab", string(p.Data))
	assert.False(t, p.FinNext)
	assert.True(t, p.AllDataReceived)

	assert.False(t, a.SkipBytes(2))
	p = a.PeekNextReadableRegion()
	assert.Equal(t, "cd", string(p.Data))
	assert.True(t, p.FinNext)
}

func TestAdapter_SkipBeyondReadableIsClamped(t *testing.T) {
	a, fs, _ := newTestAdapter(t, Hooks{})
	fs.Receive([]byte("ab"), false)

	assert.False(t, a.SkipBytes(10))
	assert.Zero(t, a.ReadableBytes())
}

// ============================================================================
//                              写
// ============================================================================

func TestAdapter_WritevPreconditions(t *testing.T) {
	t.Run("无数据无 FIN", func(t *testing.T) {
		a, _, _ := newTestAdapter(t, Hooks{})
		err := a.Writev(nil, pkgif.WriteOptions{})
		assert.ErrorIs(t, err, streamio.ErrInvalidArgument)
	})

	t.Run("写端已关闭", func(t *testing.T) {
		a, fs, _ := newTestAdapter(t, Hooks{})
		fs.WriteClosed = true
		err := a.Writev([][]byte{[]byte("x")}, pkgif.WriteOptions{})
		assert.ErrorIs(t, err, streamio.ErrFailedPrecondition)
	})

	t.Run("FIN 已缓冲", func(t *testing.T) {
		a, fs, _ := newTestAdapter(t, Hooks{})
		require.NoError(t, streamio.SendFin(a))
		assert.True(t, fs.FinSent)

		err := streamio.Write(a, []byte("late"))
		assert.ErrorIs(t, err, streamio.ErrFailedPrecondition)
	})

	t.Run("写阻塞", func(t *testing.T) {
		a, fs, _ := newTestAdapter(t, Hooks{})
		fs.WriteBlocked = true
		err := streamio.Write(a, []byte("x"))
		assert.ErrorIs(t, err, streamio.ErrUnavailable)
		assert.Zero(t, fs.Written.Len())
		assert.Zero(t, fs.WriteCalls, "阻塞时不应触达底层写")
	})

	t.Run("写阻塞但强制缓冲", func(t *testing.T) {
		a, fs, _ := newTestAdapter(t, Hooks{})
		fs.WriteBlocked = true
		err := a.Writev([][]byte{[]byte("x"), []byte("yz")}, pkgif.WriteOptions{BufferUnconditionally: true, SendFin: true})
		require.NoError(t, err)
		assert.Equal(t, "xyz", fs.Written.String())
		assert.True(t, fs.FinSent)
	})

	t.Run("流对象已消失", func(t *testing.T) {
		a, _, resolver := newTestAdapter(t, Hooks{})
		delete(resolver, testID)
		err := streamio.Write(a, []byte("x"))
		assert.ErrorIs(t, err, streamio.ErrFailedPrecondition)
		assert.False(t, a.CanWrite())
	})
}

func TestAdapter_PartialWriteAbortsStream(t *testing.T) {
	var aborted error
	a, fs, _ := newTestAdapter(t, Hooks{OnAbort: func(_ types.StreamID, err error) { aborted = err }})
	fs.PartialConsume = 2

	err := streamio.Write(a, []byte("hello"))
	require.Error(t, err)
	assert.ErrorIs(t, err, streamio.ErrInternal)
	assert.ErrorIs(t, aborted, streamio.ErrInternal)
	assert.Equal(t, []uint64{InternalErrorCode}, fs.ResetCodes)
	assert.Equal(t, []uint64{InternalErrorCode}, fs.StopSendingCodes)
	assert.False(t, a.CanWrite())
}

// TestAdapter_AllOrNothing 底层只接受 0 或全部字节时，永远不会出现中间状态
func TestAdapter_AllOrNothing(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	a, fs, _ := newTestAdapter(t, Hooks{})

	for i := 0; i < 1000; i++ {
		fs.WriteBlocked = rng.Intn(3) == 0
		size := 1 + rng.Intn(32)
		chunks := [][]byte{make([]byte, size/2), make([]byte, size-size/2)}
		before := fs.Written.Len()

		err := a.Writev(chunks, pkgif.WriteOptions{})
		delta := fs.Written.Len() - before

		if err == nil {
			assert.Equal(t, size, delta)
		} else {
			assert.True(t, errors.Is(err, streamio.ErrUnavailable))
			assert.Zero(t, delta)
		}
		assert.Equal(t, !fs.WriteBlocked, a.CanWrite(), "CanWrite 必须与 Unavailable 一致")
	}
}

func TestAdapter_WriteGate(t *testing.T) {
	open := false
	a, fs, _ := newTestAdapter(t, Hooks{WriteGate: func() bool { return open }})
	v := &RecordingVisitor{}
	a.SetVisitor(v)

	assert.False(t, a.CanWrite())
	assert.ErrorIs(t, streamio.Write(a, []byte("x")), streamio.ErrUnavailable)

	a.OnCanWrite()
	assert.Zero(t, v.CanWrite, "闸门未打开时不应回调")

	open = true
	a.OnCanWrite()
	assert.Equal(t, 1, v.CanWrite)
	require.NoError(t, streamio.Write(a, []byte("x")))
	assert.Equal(t, "x", fs.Written.String())
}

// ============================================================================
//                              事件过滤
// ============================================================================

func TestAdapter_OnCanReadFiltered(t *testing.T) {
	a, fs, _ := newTestAdapter(t, Hooks{})
	v := &RecordingVisitor{}
	a.SetVisitor(v)

	a.OnCanRead()
	assert.Zero(t, v.CanRead)

	fs.Receive([]byte("a"), false)
	a.OnCanRead()
	assert.Equal(t, 1, v.CanRead)

	a.SkipBytes(1)
	fs.Receive(nil, true)
	a.OnCanRead()
	assert.Equal(t, 2, v.CanRead, "未投递的 FIN 也应触发")

	assert.True(t, a.SkipBytes(0))
	a.OnCanRead()
	assert.Equal(t, 2, v.CanRead, "FIN 已投递后不再触发")
}

func TestAdapter_ResetAndStopSendingMapping(t *testing.T) {
	a, fs, _ := newTestAdapter(t, Hooks{})
	v := &RecordingVisitor{}
	a.SetVisitor(v)

	a.ResetWithUserCode(42)
	a.SendStopSending(7)
	assert.Equal(t, []uint64{AppCodeToTransport(42)}, fs.ResetCodes)
	assert.Equal(t, []uint64{AppCodeToTransport(7)}, fs.StopSendingCodes)

	a.OnResetStreamReceived(AppCodeToTransport(13))
	a.OnStopSendingReceived(AppCodeToTransport(14))
	a.OnResetStreamReceived(InternalErrorCode)
	assert.Equal(t, []types.StreamErrorCode{13, 0}, v.ResetCodes)
	assert.Equal(t, []types.StreamErrorCode{14}, v.StopSendingCodes)

	a.OnWriteSideInDataRecvdState()
	assert.Equal(t, 1, v.DataRecvd)
}

func TestAdapter_MaybeResetDueToStreamObjectGone(t *testing.T) {
	a, fs, _ := newTestAdapter(t, Hooks{})

	fs.WriteClosed = true
	fs.ReadClosed = true
	a.MaybeResetDueToStreamObjectGone()
	assert.Empty(t, fs.ResetCodes, "已完全关闭的流不应再次重置")

	fs.ReadClosed = false
	a.MaybeResetDueToStreamObjectGone()
	assert.Equal(t, []uint64{InternalErrorCode}, fs.ResetCodes)

	a.ResetDueToInternalError()
	assert.Len(t, fs.ResetCodes, 2)
}

func TestAdapter_AbruptlyTerminate(t *testing.T) {
	a, fs, _ := newTestAdapter(t, Hooks{})
	fs.Receive([]byte("pending"), false)

	a.AbruptlyTerminate(errors.New("fatal"))
	assert.True(t, fs.WriteClosed)
	assert.True(t, fs.ReadClosed)
}

func TestAdapter_VanishedStreamReadsAsClosed(t *testing.T) {
	finReads := 0
	a, _, resolver := newTestAdapter(t, Hooks{OnFinRead: func(types.StreamID) { finReads++ }})
	delete(resolver, testID)

	assert.Zero(t, a.ReadableBytes())
	assert.Equal(t, pkgif.ReadResult{Fin: true}, a.Read(make([]byte, 4)))

	peek := a.PeekNextReadableRegion()
	assert.False(t, peek.HasData())
	assert.True(t, peek.FinNext)
	assert.True(t, peek.AllDataReceived)
	assert.True(t, a.SkipBytes(0))

	data, fin := streamio.ReadAll(a)
	assert.Empty(t, data)
	assert.True(t, fin)
	assert.True(t, a.FinReadNotified())
	assert.Equal(t, 1, finReads)

	a.ResetWithUserCode(1)
	a.MaybeResetDueToStreamObjectGone()
}

// ============================================================================
//                              错误码映射
// ============================================================================

func TestErrorCodeMapping(t *testing.T) {
	codes := []types.StreamErrorCode{0, 1, 0x1d, 0x1e, 0x1f, 0x3c, 1000, 0xfffffffe, 0xffffffff}
	for i := 0; i < 5000; i++ {
		codes = append(codes, types.StreamErrorCode(i*859433))
	}
	for _, c := range codes {
		transport := AppCodeToTransport(c)
		assert.NotZero(t, (transport-0x21)%0x1f, "不应映射到保留码点")
		back, ok := TransportCodeToApp(transport)
		require.True(t, ok)
		require.Equal(t, c, back)
	}

	assert.Equal(t, appErrorLast, AppCodeToTransport(0xffffffff))

	_, ok := TransportCodeToApp(InternalErrorCode)
	assert.False(t, ok)
	_, ok = TransportCodeToApp(appErrorFirst + 0x1e)
	assert.False(t, ok, "保留码点不可还原")
	_, ok = TransportCodeToApp(appErrorLast + 1)
	assert.False(t, ok)
}
