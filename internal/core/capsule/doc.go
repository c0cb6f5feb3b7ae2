// Package capsule 实现会话级控制消息（capsule）
//
// 控制流上传输四种 capsule：
//
//   - VersionOffer：发起方提供的版本列表
//   - VersionAccept：响应方选定的版本
//   - CloseSession：关闭码与原因
//   - DrainSession：通知对端不再开启新流
//
// # 编码
//
// 默认编码为 type(varint) + length(varint) + payload，varint 使用
// QUIC 变长整数（quicvarint）。未知类型的 capsule 被跳过。
//
// Parser 支持增量输入，适合直接消费控制流上的可读区域：
//
//	p := capsule.NewParser(capsule.DefaultMaxCapsuleSize)
//	caps, err := p.Feed(region)
package capsule
