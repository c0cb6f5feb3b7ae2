// Package quic 基于 quic-go 的传输层绑定
//
// 将 *quic.Conn 适配为会话层消费的 transport.Connection。
// quic-go 的流是阻塞式 io 接口，而会话层是单线程事件驱动模型，
// 因此每个连接运行一个事件循环：
//
//   - 每条流由读 goroutine 与写 goroutine 驱动，结果以任务形式投递到事件循环
//   - 接受流、接收数据报、监听连接关闭各有一个 goroutine
//   - 所有 ConnectionVisitor 回调都在事件循环 goroutine 上执行
//   - 应用通过 Conn.Submit 在事件循环上操作会话
//
// 写路径：WriteSlices 把数据放入每流发送队列（上限 StreamWriteBuffer），
// 写 goroutine 负责真正写入 quic-go；队列降到上限以下时触发 OnStreamWritable。
//
// 读路径：读 goroutine 以固定块读取，缓冲量超过上限时暂停，
// 直到会话消费数据后再继续。
//
// quic-go 不暴露写端数据全部被确认的时机，FIN 写入并 Close 成功后
// 即视为 OnWriteSideDataRecvd。
//
// CloseConnection 立即发送 CONNECTION_CLOSE，应用错误码与原因随之送达对端，
// 尚在发送队列中的流数据可能被丢弃。
//
// 所有 goroutine 由 errgroup 管理，Conn.Wait 等待全部退出。
package quic
