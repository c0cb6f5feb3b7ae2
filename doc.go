// Package sessmux 在 QUIC 连接之上提供 WebTransport 风格的会话复用
//
// 一条 QUIC 连接承载一个会话。会话通过控制流上的 capsule 协商版本、
// 通知排空与关闭，并在其上复用双向流、单向流与数据报。
// 数据流的发送顺序由两级优先级调度器决定：发送组之间轮转，
// 组内按 SendOrder 从小到大服务。
//
// # 快速开始
//
//	ep, err := sessmux.Start(ctx,
//	    sessmux.WithPreset(sessmux.PresetServer),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ep.Close()
//
//	// 服务端：每条入站连接调用一次 handler
//	ln, _ := ep.Listen("0.0.0.0:4433", func(c *sessmux.Conn) interfaces.SessionVisitor {
//	    return &myVisitor{conn: c}
//	})
//
//	// 客户端
//	conn, _ := ep.Dial(ctx, "example.com:4433", func(c *sessmux.Conn) interfaces.SessionVisitor {
//	    return &myVisitor{conn: c}
//	})
//
// # 线程模型
//
// 每条连接有一个事件循环 goroutine，会话回调全部在其上执行。
// 会话对象不是并发安全的：回调之外请使用 Conn.Do 把操作投递到事件循环。
//
// # 配置
//
// 统一配置见 config 包，可通过 WithConfig / WithConfigJSON 整体替换，
// 也可以使用 WithPreset 与细粒度选项覆盖部分字段。
//
// # 可观测性
//
// 日志使用 log/slog（pkg/lib/log），指标通过 Endpoint.Metrics 暴露的
// Prometheus Gatherer 获取。
package sessmux
