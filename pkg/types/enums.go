package types

// ============================================================================
//                              Perspective - 会话角色
// ============================================================================

// Perspective 会话角色
type Perspective int

const (
	// PerspectiveClient 发起方：主动打开控制流并发送版本提议
	PerspectiveClient Perspective = iota
	// PerspectiveServer 响应方：等待版本提议并回复
	PerspectiveServer
)

// String 返回角色的字符串表示
func (p Perspective) String() string {
	switch p {
	case PerspectiveClient:
		return "client"
	case PerspectiveServer:
		return "server"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              SessionState - 会话状态
// ============================================================================

// SessionState 会话状态
//
// 状态迁移：Handshaking → Ready → Closed。
// Draining 是独立的软信号，不在此枚举中。
type SessionState int

const (
	// SessionHandshaking 正在进行版本协商
	SessionHandshaking SessionState = iota
	// SessionReady 已就绪
	SessionReady
	// SessionClosed 已关闭（终态）
	SessionClosed
)

// String 返回状态的字符串表示
func (s SessionState) String() string {
	switch s {
	case SessionHandshaking:
		return "handshaking"
	case SessionReady:
		return "ready"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              StreamDirection - 流方向性
// ============================================================================

// StreamDirection 流方向性
type StreamDirection int

const (
	// Bidirectional 双向流
	Bidirectional StreamDirection = iota
	// Unidirectional 单向流
	Unidirectional
)

// String 返回方向性的字符串表示
func (d StreamDirection) String() string {
	if d == Unidirectional {
		return "unidirectional"
	}
	return "bidirectional"
}
