package interfaces

import (
	"github.com/dep2p/go-sessmux/pkg/types"
)

// ============================================================================
//                              Session 接口
// ============================================================================

// Session 多路复用会话
//
// 每条底层连接对应一个会话，提供双向流、单向流与数据报。
type Session interface {
	// Perspective 返回本端角色
	Perspective() types.Perspective

	// State 返回会话状态
	State() types.SessionState

	// IsDraining 是否处于排空状态
	IsDraining() bool

	// NegotiatedVersion 返回协商得到的版本，未就绪时第二个返回值为 false
	NegotiatedVersion() (types.Version, bool)

	// AcceptIncomingBidirectionalStream 取出下一条对端发起的双向流，无则返回 nil
	AcceptIncomingBidirectionalStream() Stream

	// AcceptIncomingUnidirectionalStream 取出下一条对端发起的单向流，无则返回 nil
	AcceptIncomingUnidirectionalStream() Stream

	// CanOpenNextOutgoingBidirectionalStream 流量控制是否允许打开新的双向流
	CanOpenNextOutgoingBidirectionalStream() bool

	// CanOpenNextOutgoingUnidirectionalStream 流量控制是否允许打开新的单向流
	CanOpenNextOutgoingUnidirectionalStream() bool

	// OpenOutgoingBidirectionalStream 打开双向流，不允许时返回 nil
	OpenOutgoingBidirectionalStream() Stream

	// OpenOutgoingUnidirectionalStream 打开单向流，不允许时返回 nil
	OpenOutgoingUnidirectionalStream() Stream

	// GetStreamByID 按 ID 查找活跃流
	GetStreamByID(id types.StreamID) Stream

	// SendOrQueueDatagram 发送数据报
	SendOrQueueDatagram(payload []byte) types.DatagramStatus

	// MaxDatagramSize 返回可发送的最大数据报负载
	MaxDatagramSize() int

	// CloseSession 关闭会话（幂等）
	CloseSession(code types.SessionErrorCode, message string)

	// NotifySessionDraining 通知对端本端即将关闭（幂等）
	NotifySessionDraining()

	// SetOnDraining 设置对端排空通知回调，最多触发一次
	SetOnDraining(fn func())
}

// SessionVisitor 会话事件回调
type SessionVisitor interface {
	// OnSessionReady 版本协商完成，会话就绪
	OnSessionReady()

	// OnSessionClosed 会话已关闭，每个会话恰好调用一次
	OnSessionClosed(code types.SessionErrorCode, message string)

	// OnIncomingBidirectionalStreamAvailable 有新的对端双向流可接受
	OnIncomingBidirectionalStreamAvailable()

	// OnIncomingUnidirectionalStreamAvailable 有新的对端单向流可接受
	OnIncomingUnidirectionalStreamAvailable()

	// OnDatagramReceived 收到数据报
	OnDatagramReceived(payload []byte)

	// OnCanCreateNewOutgoingBidirectionalStream 可以打开新的双向流
	OnCanCreateNewOutgoingBidirectionalStream()

	// OnCanCreateNewOutgoingUnidirectionalStream 可以打开新的单向流
	OnCanCreateNewOutgoingUnidirectionalStream()
}
