package memory

import (
	transportif "github.com/dep2p/go-sessmux/pkg/interfaces/transport"
	"github.com/dep2p/go-sessmux/pkg/types"
)

// half 一个方向上的字节管道，由写端与读端共享
type half struct {
	buf       []byte
	fin       bool // 写端已写入 FIN
	finRead   bool // 读端已消费到 FIN
	reset     bool // 写端已重置
	stopped   bool // 读端已发送 STOP_SENDING
	dataRecvd bool // 已通知写端数据全部送达
}

// Stream 内存流的一端
type Stream struct {
	conn      *Conn
	id        types.StreamID
	direction types.StreamDirection
	local     bool

	send *half // 单向入站流为 nil
	recv *half // 单向出站流为 nil

	writeBlocked bool
	peer         *Stream
	removing     bool
}

var _ transportif.SequencedStream = (*Stream)(nil)

func newStream(c *Conn, id types.StreamID, dir types.StreamDirection, send, recv *half, local bool) *Stream {
	return &Stream{
		conn:      c,
		id:        id,
		direction: dir,
		local:     local,
		send:      send,
		recv:      recv,
	}
}

// peerStream 对端的同一条流
func (s *Stream) peerStream() *Stream {
	if s.peer == nil {
		if p, ok := s.conn.peer.streams[s.id]; ok {
			s.peer = p
		}
	}
	return s.peer
}

// ID 返回流 ID
func (s *Stream) ID() types.StreamID {
	return s.id
}

// ============================================================================
//                              读端
// ============================================================================

func (s *Stream) readable() bool {
	return s.recv != nil && !s.recv.reset && !s.recv.stopped
}

// Read 按序消费
func (s *Stream) Read(p []byte) int {
	if !s.readable() {
		return 0
	}
	n := copy(p, s.recv.buf)
	s.consume(n)
	return n
}

// PeekRegion 返回下一段连续区域
func (s *Stream) PeekRegion() ([]byte, bool) {
	if !s.readable() || len(s.recv.buf) == 0 {
		return nil, false
	}
	region := s.recv.buf
	if limit := s.conn.net.opts.MaxPeekRegion; limit > 0 && len(region) > limit {
		region = region[:limit]
	}
	return region, true
}

// MarkConsumed 标记 n 字节已消费
func (s *Stream) MarkConsumed(n int) {
	if !s.readable() {
		return
	}
	if n > len(s.recv.buf) {
		logger.Warn("消费字节数超过可读字节数", "stream", s.id, "consume", n, "readable", len(s.recv.buf))
		n = len(s.recv.buf)
	}
	s.consume(n)
}

// consume 消费 n 字节并处理窗口释放与 FIN 送达
func (s *Stream) consume(n int) {
	h := s.recv
	window := s.conn.net.opts.StreamWindow
	before := len(h.buf)
	h.buf = h.buf[n:]
	if len(h.buf) == 0 {
		h.buf = nil
	}

	writer := s.peerStream()
	if n > 0 && window > 0 && before >= window && len(h.buf) < window && writer != nil {
		writer.postWritable()
	}

	if h.fin && len(h.buf) == 0 && !h.finRead {
		h.finRead = true
		if writer != nil && !h.dataRecvd {
			h.dataRecvd = true
			writer.postEvent(func(v transportif.ConnectionVisitor) {
				v.OnWriteSideDataRecvd(writer.id)
			})
			writer.scheduleRemovalCheck()
		}
		s.scheduleRemovalCheck()
	}
}

// ReadableBytes 当前可读字节数
func (s *Stream) ReadableBytes() int {
	if !s.readable() {
		return 0
	}
	return len(s.recv.buf)
}

// IsClosed FIN 已收到且全部数据已被消费
func (s *Stream) IsClosed() bool {
	return s.readable() && s.recv.fin && len(s.recv.buf) == 0
}

// IsAllDataAvailable FIN 已收到
func (s *Stream) IsAllDataAvailable() bool {
	return s.readable() && s.recv.fin
}

// ReadSideClosed 读端是否已关闭
func (s *Stream) ReadSideClosed() bool {
	return s.recv == nil || s.recv.reset || s.recv.stopped || s.recv.finRead
}

// ============================================================================
//                              写端
// ============================================================================

// WriteSideClosed 写端是否已关闭
func (s *Stream) WriteSideClosed() bool {
	return s.send == nil || s.send.reset || s.send.dataRecvd || s.conn.closed
}

// FinBuffered FIN 是否已写入
func (s *Stream) FinBuffered() bool {
	return s.send != nil && s.send.fin
}

// CanWriteNewData 是否还能写入新数据
func (s *Stream) CanWriteNewData() bool {
	if s.WriteSideClosed() || s.send.fin || s.writeBlocked {
		return false
	}
	window := s.conn.net.opts.StreamWindow
	return window <= 0 || len(s.send.buf) < window
}

// WriteSlices 写入多段数据，全部接受或全部拒绝
func (s *Stream) WriteSlices(slices [][]byte, fin bool, bufferUnconditionally bool) (int, bool) {
	if s.WriteSideClosed() || s.send.fin {
		return 0, false
	}
	if !s.CanWriteNewData() && !bufferUnconditionally {
		return 0, false
	}

	total := 0
	for _, b := range slices {
		s.send.buf = append(s.send.buf, b...)
		total += len(b)
	}
	if fin {
		s.send.fin = true
	}
	if total > 0 || fin {
		id := s.id
		if reader := s.peerStream(); reader != nil {
			reader.postEvent(func(v transportif.ConnectionVisitor) {
				v.OnStreamReadable(id)
			})
		} else {
			// 对端尚未看到流：在到达事件之后投递
			peer := s.conn.peer
			s.conn.net.post(func() {
				if r, ok := peer.streams[id]; ok && peer.visitor != nil {
					s.peer = r
					peer.visitor.OnStreamReadable(id)
				}
			})
		}
	}
	return total, fin
}

// ResetWriteSide 以错误码重置写端
func (s *Stream) ResetWriteSide(code uint64) {
	if s.WriteSideClosed() {
		return
	}
	h := s.send
	h.reset = true
	h.buf = nil
	s.scheduleRemovalCheck()

	id := s.id
	peer := s.conn.peer
	s.conn.net.post(func() {
		r, ok := peer.streams[id]
		if !ok {
			return
		}
		if peer.visitor != nil && !h.stopped {
			peer.visitor.OnStreamReset(id, code)
		}
		r.checkRemoval()
	})
}

// SendStopSending 以错误码请求对端停止发送，对端写端随即以相同错误码重置
func (s *Stream) SendStopSending(code uint64) {
	if s.ReadSideClosed() {
		return
	}
	h := s.recv
	h.stopped = true
	h.buf = nil
	s.scheduleRemovalCheck()

	id := s.id
	peer := s.conn.peer
	s.conn.net.post(func() {
		w, ok := peer.streams[id]
		if !ok {
			return
		}
		if peer.visitor != nil {
			peer.visitor.OnStopSendingReceived(id, code)
		}
		if !h.reset && !h.dataRecvd {
			h.reset = true
			h.buf = nil
		}
		w.checkRemoval()
	})
}

// SetWriteBlocked 人为阻塞/解除阻塞写端，解除时投递可写事件
func (s *Stream) SetWriteBlocked(blocked bool) {
	if s.writeBlocked == blocked {
		return
	}
	s.writeBlocked = blocked
	if !blocked && s.CanWriteNewData() {
		s.postWritable()
	}
}

// ============================================================================
//                              事件与销毁
// ============================================================================

func (s *Stream) postWritable() {
	id := s.id
	s.postEvent(func(v transportif.ConnectionVisitor) {
		v.OnStreamWritable(id)
	})
}

// postEvent 向本端 visitor 投递事件，流已销毁时丢弃
func (s *Stream) postEvent(fn func(v transportif.ConnectionVisitor)) {
	c := s.conn
	c.net.post(func() {
		if c.streams[s.id] != s || c.visitor == nil {
			return
		}
		fn(c.visitor)
	})
}

func (s *Stream) scheduleRemovalCheck() {
	if s.removing {
		return
	}
	s.conn.net.post(s.checkRemoval)
}

// checkRemoval 读写两端都结束时销毁流
func (s *Stream) checkRemoval() {
	if s.removing || s.conn.streams[s.id] != s {
		return
	}
	if !s.ReadSideClosed() || !s.WriteSideClosed() {
		return
	}
	s.removing = true
	s.conn.removeStream(s)
}
