package stream

import (
	"bytes"

	transportif "github.com/dep2p/go-sessmux/pkg/interfaces/transport"
	"github.com/dep2p/go-sessmux/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// FakeStream 可编程的底层流，仅用于测试
type FakeStream struct {
	StreamID types.StreamID

	// 读端
	recv        []byte
	finReceived bool
	// MaxRegion PeekRegion 单次返回的最大字节数，0 表示不限
	MaxRegion int
	ReadClosed bool

	// 写端
	Written      bytes.Buffer
	WriteClosed  bool
	FinSent      bool
	WriteBlocked bool
	// PartialConsume 大于 0 时 WriteSlices 只消费这么多字节
	PartialConsume int
	// WriteCalls WriteSlices 调用次数
	WriteCalls int

	ResetCodes       []uint64
	StopSendingCodes []uint64
}

var _ transportif.SequencedStream = (*FakeStream)(nil)

// NewFakeStream 创建测试流
func NewFakeStream(id types.StreamID) *FakeStream {
	return &FakeStream{StreamID: id}
}

// Receive 模拟对端写入
func (s *FakeStream) Receive(data []byte, fin bool) {
	s.recv = append(s.recv, data...)
	if fin {
		s.finReceived = true
	}
}

// ID 返回流 ID
func (s *FakeStream) ID() types.StreamID { return s.StreamID }

// Read 按序消费
func (s *FakeStream) Read(p []byte) int {
	n := copy(p, s.recv)
	s.recv = s.recv[n:]
	return n
}

// PeekRegion 返回连续区域
func (s *FakeStream) PeekRegion() ([]byte, bool) {
	if len(s.recv) == 0 {
		return nil, false
	}
	if s.MaxRegion > 0 && len(s.recv) > s.MaxRegion {
		return s.recv[:s.MaxRegion], true
	}
	return s.recv, true
}

// MarkConsumed 标记消费
func (s *FakeStream) MarkConsumed(n int) {
	if n > len(s.recv) {
		panic("FakeStream: consume beyond readable bytes")
	}
	s.recv = s.recv[n:]
}

// ReadableBytes 可读字节数
func (s *FakeStream) ReadableBytes() int { return len(s.recv) }

// IsClosed FIN 已收到且数据已读完
func (s *FakeStream) IsClosed() bool { return s.finReceived && len(s.recv) == 0 }

// IsAllDataAvailable FIN 已收到
func (s *FakeStream) IsAllDataAvailable() bool { return s.finReceived }

// ReadSideClosed 读端是否关闭
func (s *FakeStream) ReadSideClosed() bool { return s.ReadClosed || s.IsClosed() }

// WriteSideClosed 写端是否关闭
func (s *FakeStream) WriteSideClosed() bool { return s.WriteClosed }

// FinBuffered FIN 是否已缓冲
func (s *FakeStream) FinBuffered() bool { return s.FinSent }

// CanWriteNewData 是否可写
func (s *FakeStream) CanWriteNewData() bool { return !s.WriteBlocked }

// WriteSlices 写入多段数据
//
// 默认只会消费 0 或全部字节；设置 PartialConsume 后模拟部分消费。
func (s *FakeStream) WriteSlices(slices [][]byte, fin bool, bufferUnconditionally bool) (int, bool) {
	s.WriteCalls++
	if s.WriteClosed || s.FinSent {
		return 0, false
	}
	if s.WriteBlocked && !bufferUnconditionally {
		return 0, false
	}
	if s.PartialConsume > 0 {
		joined := bytes.Join(slices, nil)
		n := min(s.PartialConsume, len(joined))
		s.Written.Write(joined[:n])
		return n, false
	}
	total := 0
	for _, sl := range slices {
		s.Written.Write(sl)
		total += len(sl)
	}
	if fin {
		s.FinSent = true
	}
	return total, fin
}

// ResetWriteSide 重置写端
func (s *FakeStream) ResetWriteSide(code uint64) {
	s.WriteClosed = true
	s.ResetCodes = append(s.ResetCodes, code)
}

// SendStopSending 发送 STOP_SENDING
func (s *FakeStream) SendStopSending(code uint64) {
	s.ReadClosed = true
	s.StopSendingCodes = append(s.StopSendingCodes, code)
}

// FakeResolver 以 map 保存测试流
type FakeResolver map[types.StreamID]*FakeStream

// GetStream 按 ID 查找
func (r FakeResolver) GetStream(id types.StreamID) transportif.SequencedStream {
	if s, ok := r[id]; ok {
		return s
	}
	return nil
}

// RecordingVisitor 记录回调次数的 StreamVisitor
type RecordingVisitor struct {
	CanRead          int
	CanWrite         int
	ResetCodes       []types.StreamErrorCode
	StopSendingCodes []types.StreamErrorCode
	DataRecvd        int
}

// OnCanRead 记录
func (v *RecordingVisitor) OnCanRead() { v.CanRead++ }

// OnCanWrite 记录
func (v *RecordingVisitor) OnCanWrite() { v.CanWrite++ }

// OnResetStreamReceived 记录
func (v *RecordingVisitor) OnResetStreamReceived(code types.StreamErrorCode) {
	v.ResetCodes = append(v.ResetCodes, code)
}

// OnStopSendingReceived 记录
func (v *RecordingVisitor) OnStopSendingReceived(code types.StreamErrorCode) {
	v.StopSendingCodes = append(v.StopSendingCodes, code)
}

// OnWriteSideInDataRecvdState 记录
func (v *RecordingVisitor) OnWriteSideInDataRecvdState() { v.DataRecvd++ }
