// Package session 实现会话层
//
// 一个 Session 包装一条底层多路复用连接，负责：
//   - 控制流上的版本协商（发起方提议，响应方选择）
//   - 会话关闭与排空通知
//   - 数据流的创建、接受与按 (发送组, 组内顺序) 的写调度
//   - 数据报的收发
//
// # 控制流
//
// 发起方打开的第一条双向流是控制流，只承载 capsule：
//
//	发起方 ──VERSION_OFFER──▶ 响应方
//	发起方 ◀──VERSION_ACCEPT── 响应方
//	任一方 ──DRAIN_SESSION──▶ 对端
//	任一方 ──CLOSE_SESSION + FIN──▶ 对端
//
// 会话就绪后，控制流在没有 CLOSE_SESSION 的情况下收到 FIN，
// 视为对端以错误码 0、空消息关闭会话。
//
// # 并发模型
//
// Session 不是并发安全的。所有方法与传输层回调必须在同一个事件处理上下文中
// 串行调用，由传输绑定保证。
package session
