package session

import (
	"github.com/dep2p/go-sessmux/internal/core/metrics"
	"github.com/dep2p/go-sessmux/internal/core/stream"
	"github.com/dep2p/go-sessmux/internal/core/streamio"
	pkgif "github.com/dep2p/go-sessmux/pkg/interfaces"
	"github.com/dep2p/go-sessmux/pkg/types"
)

// 确保实现接口
var _ pkgif.Stream = (*Stream)(nil)

// Stream 会话中的数据流
//
// 在 stream.Adapter 之上补充优先级、让步判定与流量统计。
type Stream struct {
	*stream.Adapter

	session *Session
	channel metrics.Channel

	// yielded 最近一次 ShouldYield 返回 true，写轮次结束后需要重新调度
	yielded bool
}

func newStream(s *Session, id types.StreamID, dir types.StreamDirection) *Stream {
	st := &Stream{
		session: s,
		channel: metrics.ChannelOf(dir),
	}
	st.Adapter = stream.NewAdapter(id, dir, s.conn, stream.Hooks{
		OnFinRead: func(id types.StreamID) {
			s.log.Debug("数据流读端结束", "stream", id)
		},
		WriteGate: func() bool {
			return s.state == types.SessionReady
		},
		OnAbort: func(id types.StreamID, err error) {
			s.log.Debug("数据流中止", "stream", id, "error", err)
			s.reporter.StreamReset(true)
		},
	})
	return st
}

// ============================================================================
//                              读
// ============================================================================

// Read 读取数据到 p
func (st *Stream) Read(p []byte) pkgif.ReadResult {
	r := st.Adapter.Read(p)
	st.countReceived(r.BytesRead)
	return r
}

// ReadAppend 读取全部可读数据并追加到 dst
func (st *Stream) ReadAppend(dst []byte) ([]byte, pkgif.ReadResult) {
	out, r := st.Adapter.ReadAppend(dst)
	st.countReceived(r.BytesRead)
	return out, r
}

// SkipBytes 消费 n 字节，返回是否已到达 FIN
func (st *Stream) SkipBytes(n int) bool {
	st.countReceived(min(n, st.Adapter.ReadableBytes()))
	return st.Adapter.SkipBytes(n)
}

func (st *Stream) countReceived(n int) {
	if n > 0 {
		st.session.reporter.BytesReceived(st.channel, n)
	}
}

// ============================================================================
//                              写
// ============================================================================

// Writev 写入多段数据，全有或全无
func (st *Stream) Writev(data [][]byte, opts pkgif.WriteOptions) error {
	if err := st.Adapter.Writev(data, opts); err != nil {
		return err
	}
	if n := streamio.TotalSize(data); n > 0 {
		st.session.reporter.BytesSent(st.channel, n)
	}
	return nil
}

// Write 写入单段数据
func (st *Stream) Write(p []byte) error {
	return streamio.Write(st, p)
}

// SendFin 只发送 FIN
func (st *Stream) SendFin() error {
	return streamio.SendFin(st)
}

// ============================================================================
//                              终止
// ============================================================================

// ResetWithUserCode 以应用错误码重置写端
func (st *Stream) ResetWithUserCode(code types.StreamErrorCode) {
	st.Adapter.ResetWithUserCode(code)
	st.session.reporter.StreamReset(true)
}

// ResetDueToInternalError 以内部错误码重置写端
func (st *Stream) ResetDueToInternalError() {
	st.Adapter.ResetDueToInternalError()
	st.session.reporter.StreamReset(true)
}

// ============================================================================
//                              调度
// ============================================================================

// SetPriority 调整流的发送优先级
func (st *Stream) SetPriority(priority types.StreamPriority) error {
	return st.session.setPriority(st.ID(), priority)
}

// ShouldYield 是否应让出写机会给更高优先级的待写流
func (st *Stream) ShouldYield() bool {
	yield, err := st.session.scheduler.ShouldYield(st.ID())
	if err != nil {
		return false
	}
	if yield {
		st.yielded = true
	}
	return yield
}
