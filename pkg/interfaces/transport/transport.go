// Package transport 定义会话层从底层多路复用传输消费的接口
//
// 底层传输负责握手、加密、拥塞控制与重传，本层只使用下列能力：
//   - 单流：有序消费、连续区域窥视、按长度标记消费、关闭标志、可写检查、
//     带 FIN 的多段写入、按数字错误码 RESET/STOP_SENDING
//   - 会话：接受对端流、流量控制判定、打开流、按 ID 查找流、数据报、关闭连接
package transport

import (
	"github.com/dep2p/go-sessmux/pkg/types"
)

// ============================================================================
//                              SequencedStream 接口
// ============================================================================

// SequencedStream 底层有序字节流
//
// 对象由传输层拥有，可能在任意时刻失效（如收到对端 RESET），
// 使用方不得跨事件循环轮次保存引用，应通过 Connection.GetStream 重新查找。
type SequencedStream interface {
	// ID 返回流 ID
	ID() types.StreamID

	// Read 按序消费数据到 p，返回消费的字节数
	Read(p []byte) int

	// PeekRegion 返回下一段连续可读区域，无数据时 ok 为 false
	PeekRegion() (region []byte, ok bool)

	// MarkConsumed 标记 n 字节已消费
	MarkConsumed(n int)

	// ReadableBytes 当前已缓冲且连续的可读字节数
	ReadableBytes() int

	// IsClosed FIN 已收到且全部数据已被消费
	IsClosed() bool

	// IsAllDataAvailable FIN 已收到且 FIN 之前的数据均已缓冲
	IsAllDataAvailable() bool

	// ReadSideClosed 读端是否已关闭
	ReadSideClosed() bool

	// WriteSideClosed 写端是否已关闭
	WriteSideClosed() bool

	// FinBuffered FIN 是否已写入发送缓冲
	FinBuffered() bool

	// CanWriteNewData 发送缓冲是否还能接受新数据
	CanWriteNewData() bool

	// WriteSlices 写入多段数据
	//
	// bufferUnconditionally 为 true 时即使阻塞也写入缓冲。
	// 返回实际消费的字节数与 FIN 是否被接受。
	WriteSlices(slices [][]byte, fin bool, bufferUnconditionally bool) (consumed int, finConsumed bool)

	// ResetWriteSide 以传输层错误码重置写端
	ResetWriteSide(code uint64)

	// SendStopSending 以传输层错误码请求对端停止发送
	SendStopSending(code uint64)
}

// ============================================================================
//                              Connection 接口
// ============================================================================

// Connection 底层多路复用连接
type Connection interface {
	// Perspective 返回本端角色
	Perspective() types.Perspective

	// AcceptIncomingBidirectionalStream 取出下一条对端双向流，无则返回 nil
	AcceptIncomingBidirectionalStream() SequencedStream

	// AcceptIncomingUnidirectionalStream 取出下一条对端单向流，无则返回 nil
	AcceptIncomingUnidirectionalStream() SequencedStream

	// CanOpenNextOutgoingBidirectionalStream 流量控制是否允许新的双向流
	CanOpenNextOutgoingBidirectionalStream() bool

	// CanOpenNextOutgoingUnidirectionalStream 流量控制是否允许新的单向流
	CanOpenNextOutgoingUnidirectionalStream() bool

	// OpenOutgoingBidirectionalStream 打开双向流，失败返回 nil
	OpenOutgoingBidirectionalStream() SequencedStream

	// OpenOutgoingUnidirectionalStream 打开单向流，失败返回 nil
	OpenOutgoingUnidirectionalStream() SequencedStream

	// GetStream 按 ID 查找流，已失效返回 nil
	GetStream(id types.StreamID) SequencedStream

	// SendOrQueueDatagram 发送或排队数据报
	SendOrQueueDatagram(payload []byte) types.DatagramStatus

	// MaxDatagramSize 返回最大数据报负载
	MaxDatagramSize() int

	// CloseConnection 关闭底层连接
	CloseConnection(code uint64, reason string)
}

// ============================================================================
//                              ConnectionVisitor 接口
// ============================================================================

// ConnectionVisitor 传输层事件回调，由会话实现
//
// 所有回调都在连接的事件处理上下文中同步调用。
type ConnectionVisitor interface {
	// OnIncomingStreamsAvailable 有对端流等待接受
	OnIncomingStreamsAvailable()

	// OnStreamReadable 流有新数据或 FIN
	OnStreamReadable(id types.StreamID)

	// OnStreamWritable 流的发送缓冲重新可写
	OnStreamWritable(id types.StreamID)

	// OnStreamReset 对端重置了流（传输层错误码）
	OnStreamReset(id types.StreamID, code uint64)

	// OnStopSendingReceived 对端请求停止发送（传输层错误码）
	OnStopSendingReceived(id types.StreamID, code uint64)

	// OnWriteSideDataRecvd 写端数据已全部被对端确认
	OnWriteSideDataRecvd(id types.StreamID)

	// OnStreamClosed 流对象已被传输层销毁
	OnStreamClosed(id types.StreamID)

	// OnDatagramReceived 收到数据报
	OnDatagramReceived(payload []byte)

	// OnCanOpenOutgoingStream 流量控制允许打开新流
	OnCanOpenOutgoingStream(direction types.StreamDirection)

	// OnConnectionClosed 底层连接已关闭
	OnConnectionClosed(code uint64, reason string)
}
