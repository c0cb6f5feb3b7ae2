package stream

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-sessmux/internal/core/streamio"
	pkgif "github.com/dep2p/go-sessmux/pkg/interfaces"
	transportif "github.com/dep2p/go-sessmux/pkg/interfaces/transport"
	"github.com/dep2p/go-sessmux/pkg/lib/log"
	"github.com/dep2p/go-sessmux/pkg/types"
)

var logger = log.Logger("core/stream")

// errStreamGone 底层流已被传输层销毁
var errStreamGone = errors.New("stream object gone")

// Resolver 按 ID 重新查找底层流
//
// transport.Connection 满足该接口。
type Resolver interface {
	GetStream(id types.StreamID) transportif.SequencedStream
}

// Hooks 流所有者关心的内部事件
type Hooks struct {
	// OnFinRead 首次观察到读端 FIN 已被消费，每条流最多触发一次
	OnFinRead func(id types.StreamID)

	// WriteGate 额外的写入闸门（如会话尚未就绪），返回 false 时 CanWrite 为 false
	WriteGate func() bool

	// OnAbort 流因内部错误被中止
	OnAbort func(id types.StreamID, err error)
}

// 确保实现接口
var (
	_ pkgif.ReadStream       = (*Adapter)(nil)
	_ pkgif.WriteStream      = (*Adapter)(nil)
	_ pkgif.TerminableStream = (*Adapter)(nil)
)

// Adapter 把一条底层有序字节流适配为读写契约
type Adapter struct {
	id        types.StreamID
	direction types.StreamDirection
	resolver  Resolver
	hooks     Hooks

	visitor         pkgif.StreamVisitor
	finReadNotified bool
}

// NewAdapter 创建适配器
func NewAdapter(id types.StreamID, direction types.StreamDirection, resolver Resolver, hooks Hooks) *Adapter {
	return &Adapter{
		id:        id,
		direction: direction,
		resolver:  resolver,
		hooks:     hooks,
	}
}

// ID 返回流 ID
func (a *Adapter) ID() types.StreamID {
	return a.id
}

// Direction 返回流方向性
func (a *Adapter) Direction() types.StreamDirection {
	return a.direction
}

// SetVisitor 设置回调
func (a *Adapter) SetVisitor(v pkgif.StreamVisitor) {
	a.visitor = v
}

// Visitor 返回当前回调
func (a *Adapter) Visitor() pkgif.StreamVisitor {
	return a.visitor
}

// FinReadNotified 是否已投递过 FIN
func (a *Adapter) FinReadNotified() bool {
	return a.finReadNotified
}

func (a *Adapter) stream() transportif.SequencedStream {
	return a.resolver.GetStream(a.id)
}

// ============================================================================
//                              读
// ============================================================================

// 底层流对象已不存在时，读端表现为数据读完且已收到 FIN。

// Read 读取数据到 p
func (a *Adapter) Read(p []byte) pkgif.ReadResult {
	s := a.stream()
	if s == nil {
		a.maybeNotifyFinRead()
		return pkgif.ReadResult{Fin: true}
	}
	n := s.Read(p)
	fin := s.IsClosed()
	if fin {
		a.maybeNotifyFinRead()
	}
	return pkgif.ReadResult{BytesRead: n, Fin: fin}
}

// ReadAppend 读取全部可读数据并追加到 dst
func (a *Adapter) ReadAppend(dst []byte) ([]byte, pkgif.ReadResult) {
	readable := a.ReadableBytes()
	start := len(dst)
	if cap(dst)-start < readable {
		grown := make([]byte, start, start+readable)
		copy(grown, dst)
		dst = grown
	}
	r := a.Read(dst[start : start+readable])
	return dst[:start+r.BytesRead], r
}

// ReadableBytes 当前可读字节数
func (a *Adapter) ReadableBytes() int {
	s := a.stream()
	if s == nil {
		return 0
	}
	return s.ReadableBytes()
}

// PeekNextReadableRegion 窥视下一段连续可读数据
func (a *Adapter) PeekNextReadableRegion() pkgif.PeekResult {
	s := a.stream()
	if s == nil {
		return pkgif.PeekResult{FinNext: true, AllDataReceived: true}
	}
	region, ok := s.PeekRegion()
	if !ok {
		region = nil
	}
	all := s.IsAllDataAvailable()
	return pkgif.PeekResult{
		Data:            region,
		FinNext:         all && len(region) == s.ReadableBytes(),
		AllDataReceived: all,
	}
}

// SkipBytes 消费 n 字节，返回是否已到达 FIN
func (a *Adapter) SkipBytes(n int) bool {
	s := a.stream()
	if s == nil {
		a.maybeNotifyFinRead()
		return true
	}
	if readable := s.ReadableBytes(); n > readable {
		logger.Warn("跳过字节数超过可读字节数", "stream", a.id, "skip", n, "readable", readable)
		n = readable
	}
	if n > 0 {
		s.MarkConsumed(n)
	}
	fin := s.IsClosed()
	if fin {
		a.maybeNotifyFinRead()
	}
	return fin
}

func (a *Adapter) maybeNotifyFinRead() {
	if a.finReadNotified {
		return
	}
	a.finReadNotified = true
	if a.hooks.OnFinRead != nil {
		a.hooks.OnFinRead(a.id)
	}
}

// ============================================================================
//                              写
// ============================================================================

// Writev 写入多段数据，全有或全无
func (a *Adapter) Writev(data [][]byte, opts pkgif.WriteOptions) error {
	total := streamio.TotalSize(data)
	if total == 0 && !opts.SendFin {
		return fmt.Errorf("writev called without any data or a FIN: %w", streamio.ErrInvalidArgument)
	}

	s := a.stream()
	if s == nil {
		return fmt.Errorf("%v: %w", errStreamGone, streamio.ErrFailedPrecondition)
	}
	if err := checkBeforeWrite(s); err != nil {
		return err
	}
	if !a.canWrite(s) && !opts.BufferUnconditionally {
		return fmt.Errorf("stream write-blocked: %w", streamio.ErrUnavailable)
	}

	consumed, finConsumed := s.WriteSlices(data, opts.SendFin, opts.BufferUnconditionally)
	if consumed == total && (finConsumed || !opts.SendFin) {
		return nil
	}
	if consumed == 0 && !finConsumed {
		return fmt.Errorf("stream write-blocked: %w", streamio.ErrUnavailable)
	}

	err := fmt.Errorf("unexpected partial write (%d of %d bytes, fin=%v/%v): %w",
		consumed, total, finConsumed, opts.SendFin, streamio.ErrInternal)
	logger.Error("底层流部分消费，中止流", "stream", a.id, "consumed", consumed, "total", total)
	a.abort(s, err)
	return err
}

// CanWrite 当前 Writev 是否不会返回 ErrUnavailable
func (a *Adapter) CanWrite() bool {
	s := a.stream()
	if s == nil {
		return false
	}
	return a.canWrite(s)
}

func (a *Adapter) canWrite(s transportif.SequencedStream) bool {
	if checkBeforeWrite(s) != nil {
		return false
	}
	if a.hooks.WriteGate != nil && !a.hooks.WriteGate() {
		return false
	}
	return s.CanWriteNewData()
}

func checkBeforeWrite(s transportif.SequencedStream) error {
	if s.WriteSideClosed() {
		return fmt.Errorf("write side closed: %w", streamio.ErrFailedPrecondition)
	}
	if s.FinBuffered() {
		return fmt.Errorf("FIN already buffered: %w", streamio.ErrFailedPrecondition)
	}
	return nil
}

// ============================================================================
//                              终止
// ============================================================================

// AbruptlyTerminate 立即关闭读写两个方向
func (a *Adapter) AbruptlyTerminate(err error) {
	logger.Warn("流被强制终止", "stream", a.id, "error", err)
	s := a.stream()
	if s == nil {
		return
	}
	a.abort(s, err)
}

func (a *Adapter) abort(s transportif.SequencedStream, err error) {
	if !s.WriteSideClosed() {
		s.ResetWriteSide(InternalErrorCode)
	}
	if !s.ReadSideClosed() {
		s.SendStopSending(InternalErrorCode)
	}
	if a.hooks.OnAbort != nil {
		a.hooks.OnAbort(a.id, err)
	}
}

// ResetWithUserCode 以应用错误码重置写端
func (a *Adapter) ResetWithUserCode(code types.StreamErrorCode) {
	if s := a.stream(); s != nil {
		s.ResetWriteSide(AppCodeToTransport(code))
	}
}

// ResetDueToInternalError 以内部错误码重置写端
func (a *Adapter) ResetDueToInternalError() {
	if s := a.stream(); s != nil {
		s.ResetWriteSide(InternalErrorCode)
	}
}

// MaybeResetDueToStreamObjectGone 流未完全关闭时重置
func (a *Adapter) MaybeResetDueToStreamObjectGone() {
	s := a.stream()
	if s == nil {
		return
	}
	if s.WriteSideClosed() && s.ReadSideClosed() {
		return
	}
	s.ResetWriteSide(InternalErrorCode)
}

// SendStopSending 请求对端停止发送
func (a *Adapter) SendStopSending(code types.StreamErrorCode) {
	if s := a.stream(); s != nil {
		s.SendStopSending(AppCodeToTransport(code))
	}
}

// ============================================================================
//                              传输层事件
// ============================================================================

// OnCanRead 传输层通知有新数据
//
// 只有存在未读字节或未投递的 FIN 时才回调 visitor。
func (a *Adapter) OnCanRead() {
	s := a.stream()
	if s == nil || a.visitor == nil {
		return
	}
	pendingFin := s.IsAllDataAvailable() && !a.finReadNotified
	if s.ReadableBytes() == 0 && !pendingFin {
		return
	}
	a.visitor.OnCanRead()
}

// OnCanWrite 传输层通知流可写
//
// 重新确认 CanWrite() 后才回调 visitor，避免闸门未打开时的虚假唤醒。
func (a *Adapter) OnCanWrite() {
	if a.visitor == nil || !a.CanWrite() {
		return
	}
	a.visitor.OnCanWrite()
}

// OnResetStreamReceived 对端重置了流
func (a *Adapter) OnResetStreamReceived(code uint64) {
	if a.visitor == nil {
		return
	}
	appCode, _ := TransportCodeToApp(code)
	a.visitor.OnResetStreamReceived(appCode)
}

// OnStopSendingReceived 对端请求停止发送
func (a *Adapter) OnStopSendingReceived(code uint64) {
	if a.visitor == nil {
		return
	}
	appCode, _ := TransportCodeToApp(code)
	a.visitor.OnStopSendingReceived(appCode)
}

// OnWriteSideInDataRecvdState 写端数据已被全部确认
func (a *Adapter) OnWriteSideInDataRecvdState() {
	if a.visitor != nil {
		a.visitor.OnWriteSideInDataRecvdState()
	}
}
