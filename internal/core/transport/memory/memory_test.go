package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transportif "github.com/dep2p/go-sessmux/pkg/interfaces/transport"
	"github.com/dep2p/go-sessmux/pkg/types"
)

// recorder 记录所有连接事件
type recorder struct {
	events    []string
	datagrams [][]byte
}

var _ transportif.ConnectionVisitor = (*recorder)(nil)

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) OnIncomingStreamsAvailable()            { r.add("incoming") }
func (r *recorder) OnStreamReadable(id types.StreamID)     { r.add("readable %d", id) }
func (r *recorder) OnStreamWritable(id types.StreamID)     { r.add("writable %d", id) }
func (r *recorder) OnWriteSideDataRecvd(id types.StreamID) { r.add("datarecvd %d", id) }
func (r *recorder) OnStreamClosed(id types.StreamID)       { r.add("closed %d", id) }
func (r *recorder) OnStreamReset(id types.StreamID, code uint64) {
	r.add("reset %d %d", id, code)
}
func (r *recorder) OnStopSendingReceived(id types.StreamID, code uint64) {
	r.add("stop %d %d", id, code)
}
func (r *recorder) OnDatagramReceived(p []byte) { r.datagrams = append(r.datagrams, p) }
func (r *recorder) OnCanOpenOutgoingStream(d types.StreamDirection) {
	r.add("canopen %v", d)
}
func (r *recorder) OnConnectionClosed(code uint64, reason string) {
	r.add("connclosed %d %s", code, reason)
}

func newTestNetwork(opts Options) (*Network, *recorder, *recorder) {
	n := NewNetwork(opts)
	cr, sr := &recorder{}, &recorder{}
	n.Client().SetVisitor(cr)
	n.Server().SetVisitor(sr)
	return n, cr, sr
}

func TestStreamIDs(t *testing.T) {
	n, _, _ := newTestNetwork(Options{})
	c, s := n.Client(), n.Server()

	assert.Equal(t, types.StreamID(0), c.OpenOutgoingBidirectionalStream().ID())
	assert.Equal(t, types.StreamID(4), c.OpenOutgoingBidirectionalStream().ID())
	assert.Equal(t, types.StreamID(2), c.OpenOutgoingUnidirectionalStream().ID())
	assert.Equal(t, types.StreamID(1), s.OpenOutgoingBidirectionalStream().ID())
	assert.Equal(t, types.StreamID(3), s.OpenOutgoingUnidirectionalStream().ID())
}

func TestArrivalIsDeferredUntilFlush(t *testing.T) {
	n, _, sr := newTestNetwork(Options{})
	c, s := n.Client(), n.Server()

	uni := c.OpenOutgoingUnidirectionalStream()
	consumed, fin := uni.WriteSlices([][]byte{[]byte("hello")}, true, false)
	assert.Equal(t, 5, consumed)
	assert.True(t, fin)

	assert.Nil(t, s.AcceptIncomingUnidirectionalStream())
	assert.Nil(t, s.GetStream(uni.ID()))

	n.Flush()
	assert.Equal(t, []string{"incoming", "readable 2"}, sr.events)

	in := s.AcceptIncomingUnidirectionalStream()
	require.NotNil(t, in)
	assert.Nil(t, s.AcceptIncomingUnidirectionalStream())
	assert.True(t, in.IsAllDataAvailable())

	buf := make([]byte, 16)
	nread := in.Read(buf)
	assert.Equal(t, "hello", string(buf[:nread]))
	assert.True(t, in.IsClosed())
	assert.True(t, in.ReadSideClosed())
	assert.True(t, in.WriteSideClosed(), "入站单向流没有写端")
}

func TestBidirectionalExchangeAndClose(t *testing.T) {
	n, cr, sr := newTestNetwork(Options{MaxPeekRegion: 2})
	c, s := n.Client(), n.Server()

	out := c.OpenOutgoingBidirectionalStream()
	out.WriteSlices([][]byte{[]byte("ab"), []byte("cd")}, true, false)
	n.Flush()

	in := s.AcceptIncomingBidirectionalStream()
	require.NotNil(t, in)
	region, ok := in.PeekRegion()
	require.True(t, ok)
	assert.Equal(t, "ab", string(region))
	in.MarkConsumed(2)
	assert.Equal(t, 2, in.ReadableBytes())
	in.MarkConsumed(2)
	assert.True(t, in.IsClosed())

	in.WriteSlices([][]byte{[]byte("ok")}, true, false)
	n.Flush()
	assert.Contains(t, cr.events, "datarecvd 0")
	assert.Contains(t, cr.events, "readable 0")

	buf := make([]byte, 4)
	assert.Equal(t, 2, out.Read(buf))
	n.Flush()

	assert.Contains(t, sr.events, "datarecvd 0")
	assert.Contains(t, sr.events, "closed 0")
	assert.Contains(t, cr.events, "closed 0")
	assert.Nil(t, c.GetStream(0))
	assert.Nil(t, s.GetStream(0))
}

func TestWindowAndWritable(t *testing.T) {
	n, cr, _ := newTestNetwork(Options{StreamWindow: 4})
	c, s := n.Client(), n.Server()

	out := c.OpenOutgoingBidirectionalStream()
	consumed, _ := out.WriteSlices([][]byte{[]byte("123456")}, false, false)
	assert.Equal(t, 6, consumed, "写入全有或全无")
	assert.False(t, out.CanWriteNewData())

	consumed, _ = out.WriteSlices([][]byte{[]byte("7")}, false, false)
	assert.Zero(t, consumed)
	consumed, _ = out.WriteSlices([][]byte{[]byte("7")}, false, true)
	assert.Equal(t, 1, consumed, "无条件缓冲忽略窗口")

	n.Flush()
	in := s.AcceptIncomingBidirectionalStream()
	in.MarkConsumed(4)
	n.Flush()
	assert.Contains(t, cr.events, "writable 0")
	assert.True(t, out.CanWriteNewData())
}

func TestSetWriteBlocked(t *testing.T) {
	n, cr, _ := newTestNetwork(Options{})
	out := n.Client().OpenOutgoingBidirectionalStream()
	st := n.Client().Stream(out.ID())

	st.SetWriteBlocked(true)
	assert.False(t, out.CanWriteNewData())
	st.SetWriteBlocked(false)
	n.Flush()
	assert.Contains(t, cr.events, "writable 0")
}

func TestResetAndStopSending(t *testing.T) {
	n, cr, sr := newTestNetwork(Options{})
	c, s := n.Client(), n.Server()

	out := c.OpenOutgoingBidirectionalStream()
	out.WriteSlices([][]byte{[]byte("x")}, false, false)
	n.Flush()
	in := s.AcceptIncomingBidirectionalStream()

	out.ResetWriteSide(7)
	assert.True(t, out.WriteSideClosed())
	n.Flush()
	assert.Contains(t, sr.events, "reset 0 7")
	assert.True(t, in.ReadSideClosed())
	assert.Zero(t, in.ReadableBytes())

	out.SendStopSending(9)
	n.Flush()
	assert.Contains(t, sr.events, "stop 0 9")
	assert.True(t, in.WriteSideClosed(), "STOP_SENDING 后对端写端自动重置")
	assert.Contains(t, cr.events, "closed 0")
	assert.Contains(t, sr.events, "closed 0")
}

func TestStreamLimit(t *testing.T) {
	n, cr, _ := newTestNetwork(Options{MaxIncomingUniStreams: 1})
	c, s := n.Client(), n.Server()

	out := c.OpenOutgoingUnidirectionalStream()
	require.NotNil(t, out)
	assert.False(t, c.CanOpenNextOutgoingUnidirectionalStream())
	assert.Nil(t, c.OpenOutgoingUnidirectionalStream())

	out.WriteSlices(nil, true, false)
	n.Flush()
	in := s.AcceptIncomingUnidirectionalStream()
	require.NotNil(t, in)
	assert.True(t, in.IsClosed())
	in.Read(nil)
	in.MarkConsumed(0)
	n.Flush()

	assert.Contains(t, cr.events, "canopen unidirectional")
	assert.True(t, c.CanOpenNextOutgoingUnidirectionalStream())
}

func TestDatagrams(t *testing.T) {
	n, _, sr := newTestNetwork(Options{MaxDatagramSize: 4, DatagramQueueLimit: 1})
	c := n.Client()

	assert.Equal(t, types.DatagramTooBig, c.SendOrQueueDatagram([]byte("12345")).Code)
	assert.True(t, c.SendOrQueueDatagram([]byte("ab")).OK())
	assert.Equal(t, types.DatagramBlocked, c.SendOrQueueDatagram([]byte("cd")).Code)

	n.Flush()
	assert.Equal(t, [][]byte{[]byte("ab")}, sr.datagrams)
	assert.Equal(t, 4, c.MaxDatagramSize())
}

func TestCloseConnection(t *testing.T) {
	n, cr, sr := newTestNetwork(Options{})
	c, s := n.Client(), n.Server()
	out := c.OpenOutgoingBidirectionalStream()

	c.CloseConnection(42, "bye")
	c.CloseConnection(1, "again")
	n.Flush()

	assert.Equal(t, []string{"connclosed 42 bye"}, cr.events)
	assert.Equal(t, []string{"connclosed 42 bye"}, sr.events, "关闭前未到达的流不再投递")
	assert.True(t, s.Closed())
	assert.Nil(t, c.GetStream(out.ID()))
	assert.Nil(t, c.OpenOutgoingBidirectionalStream())
	assert.Equal(t, types.DatagramInternalError, c.SendOrQueueDatagram([]byte("x")).Code)

	code, reason := s.CloseInfo()
	assert.Equal(t, uint64(42), code)
	assert.Equal(t, "bye", reason)
}
