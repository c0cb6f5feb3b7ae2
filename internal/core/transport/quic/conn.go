package quic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync/atomic"

	transportif "github.com/dep2p/go-sessmux/pkg/interfaces/transport"
	"github.com/dep2p/go-sessmux/pkg/lib/log"
	"github.com/dep2p/go-sessmux/pkg/types"
	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"
)

var logger = log.Logger("core/transport/quic")

// 确保实现接口
var _ transportif.Connection = (*Conn)(nil)

// Conn 把 *quic.Conn 适配为事件驱动的 transport.Connection
//
// 除 Run、Submit、Close、Wait、Done 与地址查询外，
// 其余方法只能在事件循环 goroutine 上调用。
type Conn struct {
	qconn       *quic.Conn
	perspective types.Perspective
	cfg         Config
	log         *slog.Logger

	events chan func()
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	runCh chan struct{}

	// inTask 事件循环正在执行任务
	inTask atomic.Bool

	// 以下字段只在事件循环中访问
	visitor      transportif.ConnectionVisitor
	streams      map[types.StreamID]*Stream
	incomingBidi []*Stream
	incomingUni  []*Stream
	deferred     []func()

	spareBidi   *quic.Stream
	spareUni    *quic.SendStream
	waitingBidi bool
	waitingUni  bool

	datagrams   bool
	maxDatagram int

	closed        bool
	closeNotified bool
}

func newConn(qconn *quic.Conn, p types.Perspective, cfg Config) *Conn {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		qconn:       qconn,
		perspective: p,
		cfg:         cfg,
		log:         logger.With("remote", qconn.RemoteAddr().String(), "perspective", p.String()),
		events:      make(chan func(), cfg.EventQueueSize),
		ctx:         ctx,
		cancel:      cancel,
		runCh:       make(chan struct{}, 1),
		streams:     make(map[types.StreamID]*Stream),
		datagrams:   qconn.ConnectionState().SupportsDatagrams,
		maxDatagram: initialMaxDatagram,
	}
}

// ============================================================================
//                              事件循环
// ============================================================================

// Run 启动事件循环
//
// setup 在事件循环上最先执行并返回事件接收方，通常在其中创建并启动会话。
// setup 内可以调用连接方法，回调在 setup 返回后才开始投递。
func (c *Conn) Run(setup func() transportif.ConnectionVisitor) error {
	select {
	case c.runCh <- struct{}{}:
	default:
		return ErrAlreadyRunning
	}
	c.events <- func() { c.visitor = setup() }

	c.group.Go(c.loop)
	c.group.Go(c.acceptBidiLoop)
	c.group.Go(c.acceptUniLoop)
	if c.datagrams {
		c.group.Go(c.datagramLoop)
	}
	c.group.Go(c.watchClose)
	c.log.Debug("连接事件循环启动", "datagrams", c.datagrams)
	return nil
}

// Submit 在事件循环上执行 fn
//
// 不能在事件循环内部调用，队列满时会阻塞。
func (c *Conn) Submit(fn func()) error {
	if !c.post(fn) {
		return ErrConnectionClosed
	}
	return nil
}

// Close 关闭连接并等待所有 goroutine 退出
//
// 在回调中（事件循环任务执行期间）调用时只发起关闭、不等待，
// 会话随后通过 OnConnectionClosed 收到通知。
func (c *Conn) Close() error {
	select {
	case c.runCh <- struct{}{}:
		// 从未启动
		c.cancel()
		return c.qconn.CloseWithError(0, "connection closed")
	default:
	}
	if c.inTask.Load() {
		// 可能就在事件循环上：不能投递任务，也不能等待自身
		return ignoreClosed(c.qconn.CloseWithError(0, "connection closed"))
	}
	_ = c.Submit(func() { c.CloseConnection(0, "connection closed") })
	return c.Wait()
}

// Wait 等待事件循环与所有工作 goroutine 退出
func (c *Conn) Wait() error {
	return c.group.Wait()
}

// Done 事件循环退出时关闭
func (c *Conn) Done() <-chan struct{} {
	return c.ctx.Done()
}

// LocalAddr 本地地址
func (c *Conn) LocalAddr() net.Addr {
	return c.qconn.LocalAddr()
}

// RemoteAddr 远端地址
func (c *Conn) RemoteAddr() net.Addr {
	return c.qconn.RemoteAddr()
}

func (c *Conn) loop() error {
	for {
		select {
		case fn := <-c.events:
			c.inTask.Store(true)
			fn()
			c.runDeferred()
			c.inTask.Store(false)
		case <-c.ctx.Done():
			return nil
		}
	}
}

// post 从任意 goroutine 投递任务，事件循环已退出时返回 false
func (c *Conn) post(fn func()) bool {
	select {
	case c.events <- fn:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// later 在当前任务结束后执行 fn，只能在事件循环中调用
func (c *Conn) later(fn func()) {
	c.deferred = append(c.deferred, fn)
}

func (c *Conn) runDeferred() {
	for len(c.deferred) > 0 {
		fn := c.deferred[0]
		c.deferred = c.deferred[1:]
		fn()
	}
	c.deferred = nil
}

// ============================================================================
//                              后台 goroutine
// ============================================================================

func (c *Conn) acceptBidiLoop() error {
	for {
		qs, err := c.qconn.AcceptStream(c.ctx)
		if err != nil {
			return nil
		}
		if !c.post(func() { c.addIncoming(newBidiStream(c, qs)) }) {
			qs.CancelRead(0)
			qs.CancelWrite(0)
			return nil
		}
	}
}

func (c *Conn) acceptUniLoop() error {
	for {
		qs, err := c.qconn.AcceptUniStream(c.ctx)
		if err != nil {
			return nil
		}
		if !c.post(func() { c.addIncoming(newReceiveStream(c, qs)) }) {
			qs.CancelRead(0)
			return nil
		}
	}
}

func (c *Conn) datagramLoop() error {
	for {
		payload, err := c.qconn.ReceiveDatagram(c.ctx)
		if err != nil {
			return nil
		}
		if !c.post(func() {
			if !c.closed {
				c.visitor.OnDatagramReceived(payload)
			}
		}) {
			return nil
		}
	}
}

// watchClose 等待底层连接关闭并通知会话
func (c *Conn) watchClose() error {
	qctx := c.qconn.Context()
	select {
	case <-qctx.Done():
	case <-c.ctx.Done():
		return nil
	}
	code, reason := closeInfo(context.Cause(qctx))
	c.post(func() { c.onConnectionClosed(code, reason) })
	return nil
}

// closeInfo 从 quic-go 的关闭原因提取错误码与原因
func closeInfo(cause error) (uint64, string) {
	var appErr *quic.ApplicationError
	if errors.As(cause, &appErr) {
		return uint64(appErr.ErrorCode), appErr.ErrorMessage
	}
	if cause == nil {
		return 0, ""
	}
	// 传输层错误（空闲超时等）不属于会话错误码空间
	return math.MaxUint64, cause.Error()
}

// ============================================================================
//                              连接关闭
// ============================================================================

// CloseConnection 以应用错误码关闭底层连接
func (c *Conn) CloseConnection(code uint64, reason string) {
	if c.closed {
		return
	}
	c.closed = true
	if err := c.qconn.CloseWithError(quic.ApplicationErrorCode(code), reason); err != nil {
		c.log.Debug("关闭 QUIC 连接失败", "error", err)
	}
	c.later(func() { c.onConnectionClosed(code, reason) })
}

func (c *Conn) onConnectionClosed(code uint64, reason string) {
	if c.closeNotified {
		return
	}
	c.closeNotified = true
	c.closed = true
	c.log.Debug("连接已关闭", "code", code, "reason", reason)

	c.streams = make(map[types.StreamID]*Stream)
	c.incomingBidi = nil
	c.incomingUni = nil
	if c.visitor != nil {
		c.visitor.OnConnectionClosed(code, reason)
	}
	c.cancel()
}

// ============================================================================
//                              Connection 实现
// ============================================================================

// Perspective 返回本端角色
func (c *Conn) Perspective() types.Perspective {
	return c.perspective
}

// AcceptIncomingBidirectionalStream 取出下一条对端双向流
func (c *Conn) AcceptIncomingBidirectionalStream() transportif.SequencedStream {
	return c.takeIncoming(&c.incomingBidi)
}

// AcceptIncomingUnidirectionalStream 取出下一条对端单向流
func (c *Conn) AcceptIncomingUnidirectionalStream() transportif.SequencedStream {
	return c.takeIncoming(&c.incomingUni)
}

func (c *Conn) takeIncoming(q *[]*Stream) transportif.SequencedStream {
	for len(*q) > 0 {
		st := (*q)[0]
		*q = (*q)[1:]
		if !st.removed {
			return st
		}
	}
	return nil
}

func (c *Conn) addIncoming(st *Stream) {
	if c.closed {
		st.abort()
		return
	}
	c.streams[st.id] = st
	if st.dir == types.Bidirectional {
		c.incomingBidi = append(c.incomingBidi, st)
	} else {
		c.incomingUni = append(c.incomingUni, st)
	}
	st.start()
	c.visitor.OnIncomingStreamsAvailable()
}

// CanOpenNextOutgoingBidirectionalStream 流量控制是否允许新的双向流
func (c *Conn) CanOpenNextOutgoingBidirectionalStream() bool {
	return !c.closed && (c.spareBidi != nil || !c.waitingBidi)
}

// CanOpenNextOutgoingUnidirectionalStream 流量控制是否允许新的单向流
func (c *Conn) CanOpenNextOutgoingUnidirectionalStream() bool {
	return !c.closed && (c.spareUni != nil || !c.waitingUni)
}

// OpenOutgoingBidirectionalStream 打开双向流，受流量控制限制时返回 nil
func (c *Conn) OpenOutgoingBidirectionalStream() transportif.SequencedStream {
	if c.closed {
		return nil
	}
	qs := c.spareBidi
	c.spareBidi = nil
	if qs == nil {
		var err error
		if qs, err = c.qconn.OpenStream(); err != nil {
			c.log.Debug("双向流已达上限", "error", err)
			c.waitForBidi()
			return nil
		}
	}
	return c.addOutgoing(newBidiStream(c, qs))
}

// OpenOutgoingUnidirectionalStream 打开单向流，受流量控制限制时返回 nil
func (c *Conn) OpenOutgoingUnidirectionalStream() transportif.SequencedStream {
	if c.closed {
		return nil
	}
	qs := c.spareUni
	c.spareUni = nil
	if qs == nil {
		var err error
		if qs, err = c.qconn.OpenUniStream(); err != nil {
			c.log.Debug("单向流已达上限", "error", err)
			c.waitForUni()
			return nil
		}
	}
	return c.addOutgoing(newSendStream(c, qs))
}

func (c *Conn) addOutgoing(st *Stream) *Stream {
	c.streams[st.id] = st
	st.start()
	return st
}

// waitForBidi 后台等待对端放开双向流额度
//
// 拿到的流作为备用，下一次 Open 直接使用。
func (c *Conn) waitForBidi() {
	if c.waitingBidi {
		return
	}
	c.waitingBidi = true
	c.group.Go(func() error {
		qs, err := c.qconn.OpenStreamSync(c.ctx)
		if err != nil {
			return nil
		}
		if !c.post(func() {
			c.waitingBidi = false
			if c.closed {
				qs.CancelWrite(0)
				return
			}
			c.spareBidi = qs
			c.visitor.OnCanOpenOutgoingStream(types.Bidirectional)
		}) {
			qs.CancelWrite(0)
		}
		return nil
	})
}

func (c *Conn) waitForUni() {
	if c.waitingUni {
		return
	}
	c.waitingUni = true
	c.group.Go(func() error {
		qs, err := c.qconn.OpenUniStreamSync(c.ctx)
		if err != nil {
			return nil
		}
		if !c.post(func() {
			c.waitingUni = false
			if c.closed {
				qs.CancelWrite(0)
				return
			}
			c.spareUni = qs
			c.visitor.OnCanOpenOutgoingStream(types.Unidirectional)
		}) {
			qs.CancelWrite(0)
		}
		return nil
	})
}

// GetStream 按 ID 查找流
func (c *Conn) GetStream(id types.StreamID) transportif.SequencedStream {
	st, ok := c.streams[id]
	if !ok {
		return nil
	}
	return st
}

// NumStreams 当前存活的流数量
func (c *Conn) NumStreams() int {
	return len(c.streams)
}

// removeStream 两个方向都结束后销毁流
func (c *Conn) removeStream(st *Stream) {
	if st.removed {
		return
	}
	st.removed = true
	if c.streams[st.id] != st {
		return
	}
	delete(c.streams, st.id)
	c.visitor.OnStreamClosed(st.id)
}

// ============================================================================
//                              数据报
// ============================================================================

// SendOrQueueDatagram 发送数据报
func (c *Conn) SendOrQueueDatagram(payload []byte) types.DatagramStatus {
	if c.closed {
		return types.DatagramStatus{Code: types.DatagramInternalError, Message: ErrConnectionClosed.Error()}
	}
	if !c.datagrams {
		return types.DatagramStatus{Code: types.DatagramInternalError, Message: "datagrams not negotiated"}
	}
	if len(payload) > c.maxDatagram {
		return types.DatagramStatus{
			Code:    types.DatagramTooBig,
			Message: fmt.Sprintf("datagram of %d bytes exceeds %d", len(payload), c.maxDatagram),
		}
	}
	err := c.qconn.SendDatagram(payload)
	if err == nil {
		return types.DatagramStatus{Code: types.DatagramSuccess}
	}
	var tooLarge *quic.DatagramTooLargeError
	if errors.As(err, &tooLarge) {
		c.maxDatagram = int(tooLarge.MaxDatagramPayloadSize)
		return types.DatagramStatus{Code: types.DatagramTooBig, Message: err.Error()}
	}
	return types.DatagramStatus{Code: types.DatagramInternalError, Message: err.Error()}
}

// MaxDatagramSize 当前已知的最大数据报负载
func (c *Conn) MaxDatagramSize() int {
	if !c.datagrams {
		return 0
	}
	return c.maxDatagram
}
