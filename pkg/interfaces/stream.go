package interfaces

import (
	"github.com/dep2p/go-sessmux/pkg/types"
)

// ============================================================================
//                              读契约
// ============================================================================

// ReadResult 一次读取的结果
type ReadResult struct {
	// BytesRead 本次读取的字节数
	BytesRead int

	// Fin 本次读取是否到达流结束（FIN 已被消费）
	Fin bool
}

// PeekResult 零拷贝窥视结果
type PeekResult struct {
	// Data 下一段连续可读数据，调用方不得修改或在 SkipBytes 之后继续持有
	Data []byte

	// FinNext Data 之后紧跟 FIN
	FinNext bool

	// AllDataReceived 对端写入的全部数据均已到达
	AllDataReceived bool
}

// HasData 是否有数据可读
func (r PeekResult) HasData() bool {
	return len(r.Data) > 0
}

// ReadStream 可读流
//
// 同一字节序列，无论通过 Read 还是 PeekNextReadableRegion/SkipBytes 读取，
// 得到的字节与最终 FIN 标志必须一致。
type ReadStream interface {
	// Read 读取数据到 p
	Read(p []byte) ReadResult

	// ReadAppend 读取全部可读数据并追加到 dst
	ReadAppend(dst []byte) ([]byte, ReadResult)

	// ReadableBytes 当前可读字节数
	ReadableBytes() int

	// PeekNextReadableRegion 窥视下一段连续可读数据，不消费
	PeekNextReadableRegion() PeekResult

	// SkipBytes 消费 n 字节，返回是否已到达 FIN
	SkipBytes(n int) bool
}

// ============================================================================
//                              写契约
// ============================================================================

// WriteOptions Writev 选项
type WriteOptions struct {
	// SendFin 写完数据后发送 FIN
	SendFin bool

	// BufferUnconditionally 即使写路径阻塞也强制写入缓冲
	BufferUnconditionally bool
}

// WriteStream 可写流
//
// Writev 是全有或全无的：成功表示全部字节（以及请求的 FIN）均被接受；
// 任何无法完整接受的情况都返回错误且不消费任何字节。
type WriteStream interface {
	// Writev 写入多段数据
	//
	// 错误：
	//   - ErrFailedPrecondition: 写端已关闭或 FIN 已缓冲
	//   - ErrUnavailable: 写路径阻塞，等待 OnCanWrite 后重试
	//   - ErrInternal: 底层部分消费，流已被中止
	Writev(data [][]byte, opts WriteOptions) error

	// CanWrite 当前 Writev 是否不会返回 ErrUnavailable
	CanWrite() bool
}

// TerminableStream 可中止流
type TerminableStream interface {
	// AbruptlyTerminate 立即关闭读写两个方向，丢弃缓冲数据
	//
	// 仅用于致命、不可恢复的情况。
	AbruptlyTerminate(err error)
}

// ============================================================================
//                              Stream 接口
// ============================================================================

// Stream 会话内的一条逻辑字节流
type Stream interface {
	ReadStream
	WriteStream
	TerminableStream

	// ID 返回流 ID
	ID() types.StreamID

	// Direction 返回流方向性
	Direction() types.StreamDirection

	// Write 等价于 Writev([][]byte{p}, WriteOptions{})
	Write(p []byte) error

	// SendFin 等价于 Writev(nil, WriteOptions{SendFin: true})
	SendFin() error

	// ResetWithUserCode 以应用错误码重置写端
	ResetWithUserCode(code types.StreamErrorCode)

	// ResetDueToInternalError 以内部错误码重置写端
	ResetDueToInternalError()

	// MaybeResetDueToStreamObjectGone 若流仍未完全关闭则重置
	MaybeResetDueToStreamObjectGone()

	// SendStopSending 请求对端停止发送
	SendStopSending(code types.StreamErrorCode)

	// SetPriority 调整流在会话调度器中的优先级
	SetPriority(priority types.StreamPriority) error

	// ShouldYield 调度器中是否有其他流应先被服务
	ShouldYield() bool

	// SetVisitor 设置回调
	SetVisitor(v StreamVisitor)

	// Visitor 返回当前回调
	Visitor() StreamVisitor
}

// StreamVisitor 流事件回调
//
// 每种流角色（控制流、数据流）各有一个实现，在打开流时构造并归流所有。
type StreamVisitor interface {
	// OnCanRead 有未读字节或未投递的 FIN
	OnCanRead()

	// OnCanWrite 流重新变为可写
	OnCanWrite()

	// OnResetStreamReceived 对端重置了其写端
	OnResetStreamReceived(code types.StreamErrorCode)

	// OnStopSendingReceived 对端请求本端停止发送
	OnStopSendingReceived(code types.StreamErrorCode)

	// OnWriteSideInDataRecvdState 本端写入的全部数据已被对端确认
	OnWriteSideInDataRecvdState()
}
