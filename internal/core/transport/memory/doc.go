// Package memory 提供确定性的内存多路复用连接
//
// Network 持有一对互联的 Conn（client/server）和一个全局 FIFO 事件队列。
// 所有对端可见的效果（新流到达、可读、RESET、数据报、连接关闭）都以事件形式排队，
// 只有调用 Flush 时才在调用方 goroutine 上依次投递给 ConnectionVisitor，
// 因此测试可以精确控制事件的交错顺序。
//
//	net := memory.NewNetwork(memory.Options{})
//	client, server := net.Client(), net.Server()
//	client.SetVisitor(clientSession)
//	server.SetVisitor(serverSession)
//	net.Flush()
//
// 流 ID 按 QUIC 规则分配：客户端双向流 0,4,8…，服务端双向流 1,5,9…，
// 客户端单向流 2,6,10…，服务端单向流 3,7,11…。
//
// 写入总是全有或全无；收到 STOP_SENDING 的写端会自动以相同错误码重置。
// 本包不是并发安全的，与会话层一样运行在单一事件上下文中。
package memory
