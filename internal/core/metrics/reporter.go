package metrics

import (
	"github.com/dep2p/go-sessmux/pkg/types"
)

// Reporter 会话层指标上报接口
//
// 会话在事件循环中调用这些方法；实现必须快速返回且不得回调会话。
type Reporter interface {
	// SessionOpened 会话创建
	SessionOpened(p types.Perspective)

	// SessionReady 会话完成版本协商
	SessionReady(p types.Perspective, v types.Version)

	// SessionClosed 会话关闭
	SessionClosed(p types.Perspective, code types.SessionErrorCode)

	// StreamOpened 数据流创建，local 表示本端发起
	StreamOpened(dir types.StreamDirection, local bool)

	// StreamClosed 数据流移出会话
	StreamClosed(dir types.StreamDirection)

	// StreamReset 流被重置，local 表示本端发起
	StreamReset(local bool)

	// BytesSent 记录发送字节数
	BytesSent(ch Channel, n int)

	// BytesReceived 记录接收字节数
	BytesReceived(ch Channel, n int)

	// DatagramSent 记录数据报发送结果
	DatagramSent(status types.DatagramStatusCode)

	// SchedulerPop 记录一次调度出队
	SchedulerPop()

	// ProtocolViolation 记录一次协议违规
	ProtocolViolation()
}

// NoopReporter 丢弃所有指标
type NoopReporter struct{}

var _ Reporter = NoopReporter{}

func (NoopReporter) SessionOpened(types.Perspective)                        {}
func (NoopReporter) SessionReady(types.Perspective, types.Version)          {}
func (NoopReporter) SessionClosed(types.Perspective, types.SessionErrorCode) {}
func (NoopReporter) StreamOpened(types.StreamDirection, bool)               {}
func (NoopReporter) StreamClosed(types.StreamDirection)                     {}
func (NoopReporter) StreamReset(bool)                                       {}
func (NoopReporter) BytesSent(Channel, int)                                 {}
func (NoopReporter) BytesReceived(Channel, int)                             {}
func (NoopReporter) DatagramSent(types.DatagramStatusCode)                  {}
func (NoopReporter) SchedulerPop()                                          {}
func (NoopReporter) ProtocolViolation()                                     {}
