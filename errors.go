package sessmux

import "errors"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 端点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 端点未启动
	ErrNotStarted = errors.New("endpoint not started")

	// ErrAlreadyStarted 端点已启动
	ErrAlreadyStarted = errors.New("endpoint already started")

	// ErrEndpointClosed 端点已关闭
	ErrEndpointClosed = errors.New("endpoint closed")

	// ────────────────────────────────────────────────────────────────────────
	// 会话相关错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNilHandler 未提供会话处理函数
	ErrNilHandler = errors.New("session handler is nil")

	// ErrConnClosed 连接已关闭
	ErrConnClosed = errors.New("connection closed")
)
