// Package transport 组装会话使用的底层传输
//
// 会话层只依赖 pkg/interfaces/transport 定义的事件驱动接口，
// 本包提供两种实现：
//
//   - quic: 基于 quic-go 的真实网络传输（默认）
//   - memory: 单线程确定性内存传输，用于测试
//
// Module 通过 Fx 提供 *quic.Transport，并在应用停止时关闭。
//
// # 使用示例
//
//	app := fx.New(
//	    fx.Supply(cfg),
//	    transport.Module(),
//	    fx.Invoke(func(t *quic.Transport) { ... }),
//	)
package transport
