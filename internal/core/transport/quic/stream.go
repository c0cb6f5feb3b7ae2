package quic

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	transportif "github.com/dep2p/go-sessmux/pkg/interfaces/transport"
	"github.com/dep2p/go-sessmux/pkg/types"
	"github.com/quic-go/quic-go"
)

// 确保实现接口
var _ transportif.SequencedStream = (*Stream)(nil)

// receiveStream quic-go 流的读方向
type receiveStream interface {
	Read(p []byte) (int, error)
	CancelRead(quic.StreamErrorCode)
}

// sendStream quic-go 流的写方向
type sendStream interface {
	Write(p []byte) (int, error)
	Close() error
	CancelWrite(quic.StreamErrorCode)
	Context() context.Context
}

// Stream 把 quic-go 的阻塞式流适配为 SequencedStream
//
// 读写分别由独立 goroutine 驱动，其余字段只在事件循环中访问。
type Stream struct {
	conn *Conn
	id   types.StreamID
	dir  types.StreamDirection

	recv receiveStream
	send sendStream

	// 读端
	recvBuf     []byte
	finReceived bool
	readReset   bool
	readStopped bool
	buffered    atomic.Int64
	credit      chan struct{}

	// 写队列，写 goroutine 共享
	mu         sync.Mutex
	queue      [][]byte
	queued     int
	finQueued  bool
	writerStop bool
	wake       chan struct{}

	// 写端
	finBuffered bool
	writeReset  bool
	writeDone   bool

	removed bool
}

func newBidiStream(c *Conn, qs *quic.Stream) *Stream {
	return newStream(c, types.StreamID(qs.StreamID()), types.Bidirectional, qs, qs)
}

func newReceiveStream(c *Conn, qs *quic.ReceiveStream) *Stream {
	return newStream(c, types.StreamID(qs.StreamID()), types.Unidirectional, qs, nil)
}

func newSendStream(c *Conn, qs *quic.SendStream) *Stream {
	return newStream(c, types.StreamID(qs.StreamID()), types.Unidirectional, nil, qs)
}

func newStream(c *Conn, id types.StreamID, dir types.StreamDirection, recv receiveStream, send sendStream) *Stream {
	return &Stream{
		conn:   c,
		id:     id,
		dir:    dir,
		recv:   recv,
		send:   send,
		credit: make(chan struct{}, 1),
		wake:   make(chan struct{}, 1),
	}
}

func (s *Stream) start() {
	if s.recv != nil {
		s.conn.group.Go(s.readLoop)
	}
	if s.send != nil {
		s.conn.group.Go(s.writeLoop)
	}
}

// abort 丢弃一条不会交给会话的流
func (s *Stream) abort() {
	s.removed = true
	if s.recv != nil {
		s.recv.CancelRead(0)
	}
	if s.send != nil {
		s.send.CancelWrite(0)
	}
}

func (s *Stream) limit() int {
	return s.conn.cfg.StreamWriteBuffer
}

// checkDone 两个方向都结束时在本轮任务后销毁流
func (s *Stream) checkDone() {
	if s.removed || !s.ReadSideClosed() || !s.WriteSideClosed() {
		return
	}
	s.conn.later(func() { s.conn.removeStream(s) })
}

// ============================================================================
//                              读 goroutine
// ============================================================================

func (s *Stream) readLoop() error {
	limit := int64(s.limit())
	buf := make([]byte, readChunk)
	for {
		for s.buffered.Load() >= limit {
			select {
			case <-s.credit:
			case <-s.conn.ctx.Done():
				return nil
			}
		}
		n, err := s.recv.Read(buf)
		var data []byte
		if n > 0 {
			data = bytes.Clone(buf[:n])
			s.buffered.Add(int64(n))
		}
		if !s.conn.post(func() { s.onRead(data, err) }) {
			return nil
		}
		if err != nil {
			return nil
		}
	}
}

func (s *Stream) onRead(data []byte, err error) {
	if s.removed || s.readStopped || s.readReset {
		s.buffered.Add(-int64(len(data)))
		return
	}
	s.recvBuf = append(s.recvBuf, data...)
	notify := len(data) > 0

	if err != nil {
		var serr *quic.StreamError
		switch {
		case errors.Is(err, io.EOF):
			s.finReceived = true
			notify = true
		case errors.As(err, &serr) && serr.Remote:
			s.readReset = true
			s.dropReceived()
			s.conn.visitor.OnStreamReset(s.id, uint64(serr.ErrorCode))
			s.checkDone()
			return
		default:
			// 连接级错误由 watchClose 统一处理
			return
		}
	}
	if notify {
		s.conn.visitor.OnStreamReadable(s.id)
	}
	s.checkDone()
}

func (s *Stream) dropReceived() {
	s.buffered.Add(-int64(len(s.recvBuf)))
	s.recvBuf = nil
	s.releaseCredit()
}

func (s *Stream) releaseCredit() {
	select {
	case s.credit <- struct{}{}:
	default:
	}
}

// ============================================================================
//                              写 goroutine
// ============================================================================

func (s *Stream) writeLoop() error {
	sendCtx := s.send.Context()
	for {
		select {
		case <-s.wake:
		case <-sendCtx.Done():
			if cause := context.Cause(sendCtx); cause != nil {
				s.conn.post(func() { s.onWriteError(cause) })
			}
			return nil
		case <-s.conn.ctx.Done():
			return nil
		}

		for {
			s.mu.Lock()
			if s.writerStop {
				s.mu.Unlock()
				return nil
			}
			chunks := s.queue
			fin := s.finQueued
			s.queue = nil
			s.finQueued = false
			s.mu.Unlock()

			if len(chunks) == 0 && !fin {
				break
			}
			written := 0
			for _, b := range chunks {
				n, err := s.send.Write(b)
				written += n
				if err != nil {
					s.conn.post(func() {
						s.onWritten(written)
						s.onWriteError(err)
					})
					return nil
				}
			}
			if written > 0 && !s.conn.post(func() { s.onWritten(written) }) {
				return nil
			}
			if fin {
				err := s.send.Close()
				s.conn.post(func() { s.onFinWritten(err) })
				return nil
			}
		}
	}
}

func (s *Stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Stream) onWritten(n int) {
	s.mu.Lock()
	before := s.queued
	s.queued = max(0, s.queued-n)
	after := s.queued
	s.mu.Unlock()

	if s.removed || s.WriteSideClosed() || s.finBuffered {
		return
	}
	if before >= s.limit() && after < s.limit() {
		s.conn.visitor.OnStreamWritable(s.id)
	}
}

func (s *Stream) onWriteError(err error) {
	var serr *quic.StreamError
	if !errors.As(err, &serr) || !serr.Remote {
		// 本端取消或连接关闭
		return
	}
	if s.removed || s.writeReset || s.writeDone {
		return
	}
	// 收到 STOP_SENDING 后 quic-go 已自动重置写端
	s.writeReset = true
	s.stopWriter()
	s.conn.visitor.OnStopSendingReceived(s.id, uint64(serr.ErrorCode))
	s.checkDone()
}

func (s *Stream) onFinWritten(err error) {
	if err != nil {
		s.conn.log.Debug("关闭流写端失败", "stream", s.id, "error", err)
	}
	if s.removed || s.writeReset {
		return
	}
	s.writeDone = true
	s.conn.visitor.OnWriteSideDataRecvd(s.id)
	s.checkDone()
}

func (s *Stream) stopWriter() {
	s.mu.Lock()
	s.queue = nil
	s.queued = 0
	s.finQueued = false
	s.writerStop = true
	s.mu.Unlock()
	s.signal()
}

// ============================================================================
//                              SequencedStream 实现
// ============================================================================

// ID 返回流 ID
func (s *Stream) ID() types.StreamID {
	return s.id
}

// Read 消费数据到 p
func (s *Stream) Read(p []byte) int {
	n := copy(p, s.recvBuf)
	s.MarkConsumed(n)
	return n
}

// PeekRegion 返回已缓冲的连续数据
func (s *Stream) PeekRegion() ([]byte, bool) {
	if len(s.recvBuf) == 0 {
		return nil, false
	}
	return s.recvBuf, true
}

// MarkConsumed 标记 n 字节已消费
func (s *Stream) MarkConsumed(n int) {
	n = min(n, len(s.recvBuf))
	if n <= 0 {
		return
	}
	s.recvBuf = s.recvBuf[n:]
	if len(s.recvBuf) == 0 {
		s.recvBuf = nil
	}
	s.buffered.Add(-int64(n))
	s.releaseCredit()
	s.checkDone()
}

// ReadableBytes 已缓冲的可读字节数
func (s *Stream) ReadableBytes() int {
	return len(s.recvBuf)
}

// IsClosed FIN 已收到且数据已全部消费
func (s *Stream) IsClosed() bool {
	return s.finReceived && len(s.recvBuf) == 0
}

// IsAllDataAvailable FIN 已收到
func (s *Stream) IsAllDataAvailable() bool {
	return s.finReceived
}

// ReadSideClosed 读端是否已关闭
func (s *Stream) ReadSideClosed() bool {
	return s.recv == nil || s.readReset || s.readStopped || s.IsClosed()
}

// WriteSideClosed 写端是否已关闭
func (s *Stream) WriteSideClosed() bool {
	return s.send == nil || s.writeReset || s.writeDone || s.conn.closed
}

// FinBuffered FIN 是否已进入发送队列
func (s *Stream) FinBuffered() bool {
	return s.finBuffered
}

// CanWriteNewData 发送队列是否低于上限
func (s *Stream) CanWriteNewData() bool {
	if s.WriteSideClosed() || s.finBuffered {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued < s.limit()
}

// WriteSlices 把数据放入发送队列
//
// 要么全部接受，要么一个字节都不接受。
func (s *Stream) WriteSlices(slices [][]byte, fin bool, bufferUnconditionally bool) (int, bool) {
	if s.WriteSideClosed() || s.finBuffered {
		return 0, false
	}
	s.mu.Lock()
	if !bufferUnconditionally && s.queued >= s.limit() {
		s.mu.Unlock()
		return 0, false
	}
	total := 0
	for _, b := range slices {
		if len(b) == 0 {
			continue
		}
		s.queue = append(s.queue, bytes.Clone(b))
		total += len(b)
	}
	s.queued += total
	if fin {
		s.finQueued = true
	}
	s.mu.Unlock()

	if fin {
		s.finBuffered = true
	}
	s.signal()
	return total, fin
}

// ResetWriteSide 以传输层错误码重置写端
func (s *Stream) ResetWriteSide(code uint64) {
	if s.WriteSideClosed() {
		return
	}
	s.writeReset = true
	s.stopWriter()
	s.send.CancelWrite(quic.StreamErrorCode(code))
	s.checkDone()
}

// SendStopSending 以传输层错误码请求对端停止发送
func (s *Stream) SendStopSending(code uint64) {
	if s.ReadSideClosed() {
		return
	}
	s.readStopped = true
	s.dropReceived()
	s.recv.CancelRead(quic.StreamErrorCode(code))
	s.checkDone()
}
