package session

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/eapache/queue"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-sessmux/internal/core/capsule"
	"github.com/dep2p/go-sessmux/internal/core/metrics"
	"github.com/dep2p/go-sessmux/internal/core/scheduler"
	"github.com/dep2p/go-sessmux/internal/core/stream"
	pkgif "github.com/dep2p/go-sessmux/pkg/interfaces"
	transportif "github.com/dep2p/go-sessmux/pkg/interfaces/transport"
	"github.com/dep2p/go-sessmux/pkg/lib/log"
	"github.com/dep2p/go-sessmux/pkg/types"
)

var logger = log.Logger("core/session")

// 确保实现接口
var (
	_ pkgif.Session                 = (*Session)(nil)
	_ transportif.ConnectionVisitor = (*Session)(nil)
)

// Session 一条底层连接上的会话
type Session struct {
	conn     transportif.Connection
	visitor  pkgif.SessionVisitor
	cfg      Config
	reporter metrics.Reporter
	traceID  uuid.UUID
	log      *slog.Logger

	started bool
	state   types.SessionState
	version types.Version

	control *controlStream

	streams        map[types.StreamID]*Stream
	scheduler      *scheduler.PriorityScheduler
	incomingBidi   *queue.Queue
	incomingUni    *queue.Queue
	recentlyClosed *lru.Cache[types.StreamID, types.StreamDirection]
	unknownEvents  int
	writePass      bool

	draining     bool
	drainSent    bool
	drainPending bool

	closeSent     bool
	closeReceived bool
	closeCode     types.SessionErrorCode
	closeMessage  string
	connClosed    bool

	onClosed   oneShot[func(types.SessionErrorCode, string)]
	onDraining oneShot[func()]
}

// New 创建会话
//
// 调用方负责把返回的会话注册为 conn 的 ConnectionVisitor，然后调用 Start。
// reporter 为 nil 时不上报指标。
func New(conn transportif.Connection, visitor pkgif.SessionVisitor, cfg Config, reporter metrics.Reporter) *Session {
	if reporter == nil {
		reporter = metrics.NoopReporter{}
	}
	if cfg.MaxCapsuleSize <= 0 {
		cfg.MaxCapsuleSize = capsule.DefaultMaxCapsuleSize
	}
	if len(cfg.SupportedVersions) == 0 {
		cfg.SupportedVersions = DefaultConfig().SupportedVersions
	}

	traceID := uuid.New()
	s := &Session{
		conn:         conn,
		visitor:      visitor,
		cfg:          cfg,
		reporter:     reporter,
		traceID:      traceID,
		log:          logger.With("session", traceID.String(), "perspective", conn.Perspective().String()),
		state:        types.SessionHandshaking,
		streams:      make(map[types.StreamID]*Stream),
		scheduler:    scheduler.NewPriorityScheduler(),
		incomingBidi: queue.New(),
		incomingUni:  queue.New(),
	}
	if cfg.ClosedStreamCacheSize > 0 {
		// 容量为正时不会出错
		s.recentlyClosed, _ = lru.New[types.StreamID, types.StreamDirection](cfg.ClosedStreamCacheSize)
	}
	s.onClosed.Set(visitor.OnSessionClosed)
	return s
}

// Start 启动会话
//
// 发起方打开控制流并发送版本提议；响应方等待对端的控制流。
func (s *Session) Start() {
	if s.started {
		return
	}
	s.started = true
	s.reporter.SessionOpened(s.Perspective())
	s.log.Debug("会话启动")

	if s.Perspective() == types.PerspectiveClient {
		raw := s.conn.OpenOutgoingBidirectionalStream()
		if raw == nil {
			s.closeWithError(types.SessionErrorInternal, "cannot open control stream")
			return
		}
		s.control = newControlStream(s, raw.ID())
		offer := &capsule.VersionOffer{Versions: slices.Clone(s.cfg.SupportedVersions)}
		if err := s.control.send(offer, false); err != nil {
			s.closeWithError(types.SessionErrorInternal, fmt.Sprintf("send version offer: %v", err))
			return
		}
	}
	s.OnIncomingStreamsAvailable()
}

// TraceID 返回会话的追踪标识
func (s *Session) TraceID() uuid.UUID {
	return s.traceID
}

// ============================================================================
//                              状态查询
// ============================================================================

// Perspective 返回本端角色
func (s *Session) Perspective() types.Perspective {
	return s.conn.Perspective()
}

// State 返回会话状态
func (s *Session) State() types.SessionState {
	return s.state
}

// IsDraining 对端是否已发出排空通知
func (s *Session) IsDraining() bool {
	return s.draining
}

// NegotiatedVersion 返回协商得到的版本
func (s *Session) NegotiatedVersion() (types.Version, bool) {
	if s.version == 0 {
		return 0, false
	}
	return s.version, true
}

// NumStreams 返回活跃数据流数量
func (s *Session) NumStreams() int {
	return len(s.streams)
}

// ============================================================================
//                              流
// ============================================================================

// AcceptIncomingBidirectionalStream 取出下一条对端双向流
func (s *Session) AcceptIncomingBidirectionalStream() pkgif.Stream {
	return s.accept(s.incomingBidi)
}

// AcceptIncomingUnidirectionalStream 取出下一条对端单向流
func (s *Session) AcceptIncomingUnidirectionalStream() pkgif.Stream {
	return s.accept(s.incomingUni)
}

func (s *Session) accept(q *queue.Queue) pkgif.Stream {
	for q.Length() > 0 {
		id := q.Remove().(types.StreamID)
		if st, ok := s.streams[id]; ok {
			return st
		}
	}
	return nil
}

// CanOpenNextOutgoingBidirectionalStream 是否允许打开新的双向流
func (s *Session) CanOpenNextOutgoingBidirectionalStream() bool {
	return s.state == types.SessionReady && s.conn.CanOpenNextOutgoingBidirectionalStream()
}

// CanOpenNextOutgoingUnidirectionalStream 是否允许打开新的单向流
func (s *Session) CanOpenNextOutgoingUnidirectionalStream() bool {
	return s.state == types.SessionReady && s.conn.CanOpenNextOutgoingUnidirectionalStream()
}

// OpenOutgoingBidirectionalStream 打开双向流
func (s *Session) OpenOutgoingBidirectionalStream() pkgif.Stream {
	return s.open(types.Bidirectional)
}

// OpenOutgoingUnidirectionalStream 打开单向流
func (s *Session) OpenOutgoingUnidirectionalStream() pkgif.Stream {
	return s.open(types.Unidirectional)
}

func (s *Session) open(dir types.StreamDirection) pkgif.Stream {
	if s.state != types.SessionReady {
		return nil
	}
	var raw transportif.SequencedStream
	if dir == types.Bidirectional {
		raw = s.conn.OpenOutgoingBidirectionalStream()
	} else {
		raw = s.conn.OpenOutgoingUnidirectionalStream()
	}
	if raw == nil {
		return nil
	}
	st := s.addStream(raw.ID(), dir)
	s.reporter.StreamOpened(dir, true)
	s.log.Debug("打开数据流", "stream", raw.ID(), "direction", dir)
	return st
}

// GetStreamByID 按 ID 查找活跃数据流
func (s *Session) GetStreamByID(id types.StreamID) pkgif.Stream {
	if st, ok := s.streams[id]; ok {
		return st
	}
	return nil
}

func (s *Session) addStream(id types.StreamID, dir types.StreamDirection) *Stream {
	st := newStream(s, id, dir)
	if err := s.scheduler.Register(id, types.DefaultStreamPriority); err != nil {
		s.log.Error("注册流到调度器失败", "stream", id, "error", err)
	}
	s.streams[id] = st
	return st
}

func (s *Session) removeStream(id types.StreamID) {
	st, ok := s.streams[id]
	if !ok {
		return
	}
	delete(s.streams, id)
	if err := s.scheduler.Unregister(id); err != nil {
		s.log.Error("从调度器注销流失败", "stream", id, "error", err)
	}
	if s.recentlyClosed != nil {
		s.recentlyClosed.Add(id, st.Direction())
	}
	s.reporter.StreamClosed(st.Direction())
}

func (s *Session) setPriority(id types.StreamID, priority types.StreamPriority) error {
	if _, ok := s.streams[id]; !ok {
		return fmt.Errorf("%v: %w", id, ErrStreamNotFound)
	}
	current, err := s.scheduler.GetPriority(id)
	if err != nil {
		return err
	}
	if current.SendGroupID != priority.SendGroupID {
		if err := s.scheduler.UpdateSendGroup(id, priority.SendGroupID); err != nil {
			return err
		}
	}
	if current.SendOrder != priority.SendOrder {
		return s.scheduler.UpdateSendOrder(id, priority.SendOrder)
	}
	return nil
}

// ============================================================================
//                              数据报
// ============================================================================

// SendOrQueueDatagram 发送数据报
func (s *Session) SendOrQueueDatagram(payload []byte) types.DatagramStatus {
	var status types.DatagramStatus
	switch {
	case s.state != types.SessionReady:
		status = types.DatagramStatus{Code: types.DatagramInternalError, Message: ErrSessionNotReady.Error()}
	case len(payload) > s.conn.MaxDatagramSize():
		status = types.DatagramStatus{
			Code:    types.DatagramTooBig,
			Message: fmt.Sprintf("%d > %d", len(payload), s.conn.MaxDatagramSize()),
		}
	default:
		status = s.conn.SendOrQueueDatagram(payload)
	}
	s.reporter.DatagramSent(status.Code)
	if status.OK() {
		s.reporter.BytesSent(metrics.ChannelDatagram, len(payload))
	}
	return status
}

// MaxDatagramSize 返回最大数据报负载
func (s *Session) MaxDatagramSize() int {
	return s.conn.MaxDatagramSize()
}

// ============================================================================
//                              关闭与排空
// ============================================================================

// CloseSession 关闭会话
//
// 发送 CLOSE_SESSION 并结束控制流，立即通知 visitor 并中止全部数据流。
// 底层连接在对端回应（FIN 或 CLOSE_SESSION）后关闭。重复调用无效果。
func (s *Session) CloseSession(code types.SessionErrorCode, message string) {
	if s.closeSent {
		return
	}
	s.closeSent = true
	cs := capsule.NewCloseSession(code, message)
	s.closeCode, s.closeMessage = cs.Code, cs.Message

	if s.control != nil && !s.closeReceived && !s.connClosed {
		if err := s.control.send(cs, true); err != nil {
			s.log.Debug("发送 CLOSE_SESSION 失败", "error", err)
		}
	}
	s.log.Info("关闭会话", "code", code, "message", cs.Message)
	s.notifyClosed(cs.Code, cs.Message)
	s.teardown()

	if s.control == nil || s.control.finReceived || s.closeReceived {
		s.closeConnection(uint64(cs.Code), cs.Message)
	}
}

// NotifySessionDraining 通知对端本端即将关闭
//
// 会话就绪前调用时延迟到就绪后发送。重复调用无效果。
func (s *Session) NotifySessionDraining() {
	if s.drainSent || s.closeSent || s.state == types.SessionClosed {
		return
	}
	if s.state != types.SessionReady {
		s.drainPending = true
		return
	}
	s.drainSent = true
	s.drainPending = false
	if err := s.control.send(&capsule.DrainSession{}, false); err != nil {
		s.log.Debug("发送 DRAIN_SESSION 失败", "error", err)
	}
}

// SetOnDraining 设置对端排空回调
//
// 回调最多触发一次；对端已排空时立即触发。
func (s *Session) SetOnDraining(fn func()) {
	s.onDraining.Set(fn)
	if s.draining {
		s.fireDraining()
	}
}

func (s *Session) fireDraining() {
	if fn, ok := s.onDraining.Take(); ok && fn != nil {
		fn()
	}
}

// closeWithError 因错误关闭会话并立即关闭底层连接
func (s *Session) closeWithError(code types.SessionErrorCode, message string) {
	s.CloseSession(code, message)
	s.closeConnection(uint64(code), message)
}

func (s *Session) protocolViolation(err error) {
	if s.state == types.SessionClosed {
		s.log.Debug("会话关闭后的协议错误", "error", err)
		return
	}
	s.log.Warn("对端违反协议", "error", err)
	s.reporter.ProtocolViolation()
	s.closeWithError(types.SessionErrorProtocolViolation, err.Error())
}

func (s *Session) notifyClosed(code types.SessionErrorCode, message string) {
	s.state = types.SessionClosed
	if fn, ok := s.onClosed.Take(); ok {
		s.reporter.SessionClosed(s.Perspective(), code)
		fn(code, message)
	}
}

func (s *Session) closeConnection(code uint64, reason string) {
	if s.connClosed {
		return
	}
	s.connClosed = true
	s.conn.CloseConnection(code, reason)
}

// teardown 中止并移除全部数据流
func (s *Session) teardown() {
	for _, id := range s.sortedStreamIDs() {
		st := s.streams[id]
		if !s.connClosed {
			st.AbruptlyTerminate(ErrSessionClosed)
		}
		s.removeStream(id)
	}
	s.incomingBidi = queue.New()
	s.incomingUni = queue.New()
}

func (s *Session) sortedStreamIDs() []types.StreamID {
	ids := make([]types.StreamID, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ============================================================================
//                              控制流事件
// ============================================================================

func (s *Session) handleCapsule(cp capsule.Capsule) {
	if s.state == types.SessionClosed {
		if cs, ok := cp.(*capsule.CloseSession); ok {
			s.onCloseReceived(cs.Code, cs.Message)
		}
		return
	}
	s.log.Debug("收到 capsule", "type", cp.Type())

	switch c := cp.(type) {
	case *capsule.CloseSession:
		s.onCloseReceived(c.Code, c.Message)
	case *capsule.DrainSession:
		if s.state != types.SessionReady {
			s.protocolViolation(protocolError("DRAIN_SESSION before session is ready"))
			return
		}
		s.onDrainReceived()
	case *capsule.VersionOffer:
		if s.Perspective() != types.PerspectiveServer || s.state != types.SessionHandshaking {
			s.protocolViolation(protocolError("unexpected VERSION_OFFER (%v, %v)", s.Perspective(), s.state))
			return
		}
		s.onVersionOffer(c.Versions)
	case *capsule.VersionAccept:
		if s.Perspective() != types.PerspectiveClient || s.state != types.SessionHandshaking {
			s.protocolViolation(protocolError("unexpected VERSION_ACCEPT (%v, %v)", s.Perspective(), s.state))
			return
		}
		s.onVersionAccept(c.Version)
	default:
		s.protocolViolation(protocolError("unexpected capsule %v", cp.Type()))
	}
}

func (s *Session) onVersionOffer(offered []types.Version) {
	chosen, ok := chooseVersion(s.cfg.SupportedVersions, offered)
	if !ok {
		s.log.Warn("版本协商失败", "offered", offered, "supported", s.cfg.SupportedVersions)
		s.closeWithError(types.SessionErrorVersionNegotiation,
			fmt.Sprintf("no compatible version in offer %v", offered))
		return
	}
	if err := s.control.send(&capsule.VersionAccept{Version: chosen}, false); err != nil {
		s.closeWithError(types.SessionErrorInternal, fmt.Sprintf("send version accept: %v", err))
		return
	}
	s.becomeReady(chosen)
}

func (s *Session) onVersionAccept(v types.Version) {
	if !slices.Contains(s.cfg.SupportedVersions, v) {
		s.closeWithError(types.SessionErrorVersionNegotiation,
			fmt.Sprintf("peer accepted version %v which was not offered", v))
		return
	}
	s.becomeReady(v)
}

// chooseVersion 按本端偏好选择第一个被对端提议的版本
func chooseVersion(supported, offered []types.Version) (types.Version, bool) {
	for _, v := range supported {
		if slices.Contains(offered, v) {
			return v, true
		}
	}
	return 0, false
}

func (s *Session) becomeReady(v types.Version) {
	s.state = types.SessionReady
	s.version = v
	s.log.Info("会话就绪", "version", v)
	s.reporter.SessionReady(s.Perspective(), v)

	s.visitor.OnSessionReady()
	if s.state != types.SessionReady {
		return
	}
	if s.drainPending {
		s.NotifySessionDraining()
	}

	// 就绪前到达的入站流此时才通知
	s.announceQueued(s.incomingBidi, s.visitor.OnIncomingBidirectionalStreamAvailable)
	s.announceQueued(s.incomingUni, s.visitor.OnIncomingUnidirectionalStreamAvailable)

	// 就绪前的写闸门已打开
	for _, id := range s.sortedStreamIDs() {
		if st := s.streams[id]; st.CanWrite() {
			_ = s.scheduler.Schedule(id)
		}
	}
	s.serviceWrites()
}

func (s *Session) announceQueued(q *queue.Queue, announce func()) {
	n := 0
	for i := 0; i < q.Length(); i++ {
		if _, ok := s.streams[q.Get(i).(types.StreamID)]; ok {
			n++
		}
	}
	for ; n > 0 && s.state == types.SessionReady; n-- {
		announce()
	}
}

func (s *Session) onCloseReceived(code types.SessionErrorCode, message string) {
	if s.closeReceived {
		return
	}
	s.closeReceived = true
	s.log.Info("对端关闭会话", "code", code, "message", message)
	s.notifyClosed(code, message)
	if err := s.control.sendFin(); err != nil {
		s.log.Debug("结束控制流失败", "error", err)
	}
	s.teardown()
	s.closeConnection(uint64(code), message)
}

func (s *Session) onDrainReceived() {
	if s.draining {
		return
	}
	s.draining = true
	s.log.Info("对端进入排空状态")
	s.fireDraining()
}

// onControlFin 对端结束了控制流
func (s *Session) onControlFin() {
	if err := s.control.parser.Finish(); err != nil {
		s.protocolViolation(err)
		return
	}
	switch {
	case s.closeReceived:
	case s.closeSent:
		s.closeConnection(uint64(s.closeCode), s.closeMessage)
	case s.state == types.SessionHandshaking:
		s.protocolViolation(protocolError("control stream finished during handshake"))
	default:
		s.onCloseReceived(types.SessionErrorNone, "")
	}
}

func (s *Session) isControl(id types.StreamID) bool {
	return s.control != nil && s.control.id() == id
}

// ============================================================================
//                              写调度
// ============================================================================

// serviceWrites 按优先级依次唤醒待写的流
//
// 单轮出队次数有上限；让步后仍可写的流重新入队。
func (s *Session) serviceWrites() {
	if s.writePass || s.state != types.SessionReady {
		return
	}
	s.writePass = true
	defer func() { s.writePass = false }()

	budget := 2 * (s.scheduler.NumRegistered() + 1)
	for ; budget > 0 && s.state == types.SessionReady && s.scheduler.HasScheduled(); budget-- {
		id, err := s.scheduler.PopFront()
		if err != nil {
			s.log.Error("写调度出队失败", "error", err)
			return
		}
		s.reporter.SchedulerPop()
		st, ok := s.streams[id]
		if !ok {
			continue
		}
		st.yielded = false
		st.Adapter.OnCanWrite()
		if st.yielded && st.CanWrite() {
			st.yielded = false
			_ = s.scheduler.Schedule(id)
		}
	}
}

// ============================================================================
//                              ConnectionVisitor 实现
// ============================================================================

// OnIncomingStreamsAvailable 接受所有等待中的对端流
func (s *Session) OnIncomingStreamsAvailable() {
	for {
		raw := s.conn.AcceptIncomingBidirectionalStream()
		if raw == nil {
			break
		}
		if s.control == nil && s.Perspective() == types.PerspectiveServer && s.state == types.SessionHandshaking {
			s.control = newControlStream(s, raw.ID())
			s.log.Debug("控制流已建立", "stream", raw.ID())
			s.control.adapter.OnCanRead()
			continue
		}
		s.acceptDataStream(raw, types.Bidirectional)
	}
	for {
		raw := s.conn.AcceptIncomingUnidirectionalStream()
		if raw == nil {
			break
		}
		s.acceptDataStream(raw, types.Unidirectional)
	}
}

func (s *Session) acceptDataStream(raw transportif.SequencedStream, dir types.StreamDirection) {
	id := raw.ID()
	q := s.incomingBidi
	if dir == types.Unidirectional {
		q = s.incomingUni
	}
	limit := s.cfg.MaxPendingIncomingStreams
	reused := s.wasRecentlyClosed(id)
	if reused || s.state == types.SessionClosed || (limit > 0 && q.Length() >= limit) {
		if reused {
			s.log.Warn("入站流复用了已关闭的流 ID", "stream", id, "direction", dir)
		} else {
			s.log.Debug("拒绝入站流", "stream", id, "direction", dir, "state", s.state)
		}
		if !raw.ReadSideClosed() {
			raw.SendStopSending(stream.InternalErrorCode)
		}
		if !raw.WriteSideClosed() {
			raw.ResetWriteSide(stream.InternalErrorCode)
		}
		return
	}

	s.addStream(id, dir)
	s.reporter.StreamOpened(dir, false)
	q.Add(id)
	s.log.Debug("入站数据流", "stream", id, "direction", dir)

	if s.state != types.SessionReady {
		return
	}
	if dir == types.Bidirectional {
		s.visitor.OnIncomingBidirectionalStreamAvailable()
	} else {
		s.visitor.OnIncomingUnidirectionalStreamAvailable()
	}
}

// OnStreamReadable 流有新数据
func (s *Session) OnStreamReadable(id types.StreamID) {
	if s.isControl(id) {
		s.control.adapter.OnCanRead()
		return
	}
	if st, ok := s.streams[id]; ok {
		st.Adapter.OnCanRead()
		return
	}
	s.staleEvent("readable", id)
}

// OnStreamWritable 流重新可写
func (s *Session) OnStreamWritable(id types.StreamID) {
	if s.isControl(id) {
		return
	}
	if _, ok := s.streams[id]; !ok {
		s.staleEvent("writable", id)
		return
	}
	if err := s.scheduler.Schedule(id); err != nil {
		s.log.Error("调度流失败", "stream", id, "error", err)
		return
	}
	s.serviceWrites()
}

// OnStreamReset 对端重置了流
func (s *Session) OnStreamReset(id types.StreamID, code uint64) {
	if s.isControl(id) {
		s.control.adapter.OnResetStreamReceived(code)
		return
	}
	if st, ok := s.streams[id]; ok {
		s.reporter.StreamReset(false)
		st.Adapter.OnResetStreamReceived(code)
		return
	}
	s.staleEvent("reset", id)
}

// OnStopSendingReceived 对端请求停止发送
func (s *Session) OnStopSendingReceived(id types.StreamID, code uint64) {
	if s.isControl(id) {
		s.control.adapter.OnStopSendingReceived(code)
		return
	}
	if st, ok := s.streams[id]; ok {
		st.Adapter.OnStopSendingReceived(code)
		return
	}
	s.staleEvent("stop_sending", id)
}

// OnWriteSideDataRecvd 写端数据已全部确认
func (s *Session) OnWriteSideDataRecvd(id types.StreamID) {
	if s.isControl(id) {
		s.control.adapter.OnWriteSideInDataRecvdState()
		return
	}
	if st, ok := s.streams[id]; ok {
		st.Adapter.OnWriteSideInDataRecvdState()
		return
	}
	s.staleEvent("data_recvd", id)
}

// OnStreamClosed 流对象已被传输层销毁
func (s *Session) OnStreamClosed(id types.StreamID) {
	if s.isControl(id) {
		if s.state != types.SessionClosed {
			s.protocolViolation(protocolError("control stream closed before the session"))
		}
		return
	}
	s.removeStream(id)
}

// OnDatagramReceived 收到数据报
func (s *Session) OnDatagramReceived(payload []byte) {
	if s.state != types.SessionReady {
		s.log.Debug("会话未就绪，丢弃数据报", "size", len(payload), "state", s.state)
		return
	}
	s.reporter.BytesReceived(metrics.ChannelDatagram, len(payload))
	s.visitor.OnDatagramReceived(payload)
}

// OnCanOpenOutgoingStream 流量控制允许打开新流
func (s *Session) OnCanOpenOutgoingStream(dir types.StreamDirection) {
	if s.state != types.SessionReady {
		return
	}
	if dir == types.Bidirectional {
		s.visitor.OnCanCreateNewOutgoingBidirectionalStream()
	} else {
		s.visitor.OnCanCreateNewOutgoingUnidirectionalStream()
	}
}

// OnConnectionClosed 底层连接已关闭
func (s *Session) OnConnectionClosed(code uint64, reason string) {
	s.connClosed = true
	sessionCode := types.SessionErrorInternal
	if code <= math.MaxUint32 {
		sessionCode = types.SessionErrorCode(code)
	}
	s.log.Debug("底层连接已关闭", "code", code, "reason", reason)
	s.notifyClosed(sessionCode, reason)
	s.teardown()
}

// staleEvent 处理找不到流的事件
//
// 最近关闭的流的迟到事件是正常现象；其余 ID 从未出现过，按异常记录。
func (s *Session) staleEvent(event string, id types.StreamID) {
	if s.wasRecentlyClosed(id) {
		s.log.Debug("已关闭流的迟到事件", "event", event, "stream", id)
		return
	}
	s.unknownEvents++
	s.log.Warn("未知流的事件", "event", event, "stream", id)
}

func (s *Session) wasRecentlyClosed(id types.StreamID) bool {
	return s.recentlyClosed != nil && s.recentlyClosed.Contains(id)
}
