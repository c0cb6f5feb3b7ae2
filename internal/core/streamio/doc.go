// Package streamio 实现流 I/O 核心契约的通用部分
//
// 读契约：
//   - Read / ReadAppend：按序拷贝读取
//   - PeekNextReadableRegion / SkipBytes：零拷贝窥视与消费
//
// 对于任意对端写入序列，ProcessAllReadableRegions（窥视+跳过循环）
// 重建的字节与最终 FIN 标志必须与重复调用 Read 完全一致。
//
// 写契约：
//   - Writev 全有或全无，不允许部分消费
//   - Write(p) = Writev([p])，SendFin() = Writev(nil, SendFin)
//
// 错误分类见 errors.go。
package streamio
