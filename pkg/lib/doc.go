// Package lib 包含与会话语义无关的基础设施工具库
//
//   - log: 基于 slog 的分级日志封装
//
//	import "github.com/dep2p/go-sessmux/pkg/lib/log"
package lib
