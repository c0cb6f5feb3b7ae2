// Package stream 实现流适配器
//
// Adapter 把底层传输的一条有序字节流（transport.SequencedStream）
// 绑定到 pkg/interfaces 的读写契约上，并把传输层的就绪/关闭信号
// 转换为 StreamVisitor 回调。
//
// # 按 ID 引用
//
// Adapter 只保存 StreamID，每次操作都通过 Resolver 重新查找底层流。
// 底层流随时可能被传输层销毁（例如收到对端 RESET），
// 找不到时 Adapter 表现为一条已完全关闭的流。
//
// # 写前置条件
//
// Writev 依次检查：
//  1. 写端已关闭或 FIN 已缓冲 → ErrFailedPrecondition
//  2. CanWrite() 为 false 且未设置 BufferUnconditionally → ErrUnavailable
//  3. 否则写入；底层消费量既非 0 也非全部时中止该流并返回 ErrInternal
//
// # 错误码映射
//
// 应用错误码（32 位）映射到传输层保留错误码区间，见 errorcode.go。
package stream
