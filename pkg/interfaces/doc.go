// Package interfaces 定义会话多路复用层对应用暴露的公共接口
//
// # 接口分组
//
//   - stream.go  - ReadStream / WriteStream / Stream 读写契约与 StreamVisitor 回调
//   - session.go - Session 会话操作与 SessionVisitor 回调
//   - transport/ - 本层从底层多路复用传输消费的接口
//
// # 线程模型
//
// 所有接口都在连接唯一的事件处理上下文中同步调用，没有内部锁。
// "阻塞" 永远不会以阻塞调用的形式出现，而是返回 Unavailable 状态，
// 调用方只能在对应的就绪回调触发后重试。
package interfaces
