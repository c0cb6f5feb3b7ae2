package capsule

import (
	"fmt"
	"unicode/utf8"

	"github.com/dep2p/go-sessmux/pkg/types"
)

// Type capsule 类型
type Type uint64

const (
	// TypeVersionOffer 版本提议
	TypeVersionOffer Type = 0x80ff7a00
	// TypeVersionAccept 版本确认
	TypeVersionAccept Type = 0x80ff7a01
	// TypeCloseSession 关闭会话
	TypeCloseSession Type = 0x2843
	// TypeDrainSession 排空会话
	TypeDrainSession Type = 0x78ae
)

// MaxCloseMessageLength 关闭原因的最大字节数
const MaxCloseMessageLength = 1024

// DefaultMaxCapsuleSize 默认单个 capsule 的最大负载
const DefaultMaxCapsuleSize = 16 * 1024

// String 返回类型名
func (t Type) String() string {
	switch t {
	case TypeVersionOffer:
		return "VERSION_OFFER"
	case TypeVersionAccept:
		return "VERSION_ACCEPT"
	case TypeCloseSession:
		return "CLOSE_SESSION"
	case TypeDrainSession:
		return "DRAIN_SESSION"
	default:
		return fmt.Sprintf("UNKNOWN(%#x)", uint64(t))
	}
}

// Capsule 控制消息
type Capsule interface {
	// Type 返回 capsule 类型
	Type() Type
}

// VersionOffer 发起方支持的版本列表，按偏好排序
type VersionOffer struct {
	Versions []types.Version
}

// VersionAccept 响应方选定的版本
type VersionAccept struct {
	Version types.Version
}

// CloseSession 关闭会话
type CloseSession struct {
	Code    types.SessionErrorCode
	Message string
}

// DrainSession 排空会话
type DrainSession struct{}

func (*VersionOffer) Type() Type  { return TypeVersionOffer }
func (*VersionAccept) Type() Type { return TypeVersionAccept }
func (*CloseSession) Type() Type  { return TypeCloseSession }
func (*DrainSession) Type() Type  { return TypeDrainSession }

var (
	_ Capsule = (*VersionOffer)(nil)
	_ Capsule = (*VersionAccept)(nil)
	_ Capsule = (*CloseSession)(nil)
	_ Capsule = (*DrainSession)(nil)
)

// NewCloseSession 创建关闭 capsule
//
// 原因超长时截断到 MaxCloseMessageLength 字节以内，不拆分 UTF-8 字符。
func NewCloseSession(code types.SessionErrorCode, message string) *CloseSession {
	if len(message) > MaxCloseMessageLength {
		cut := MaxCloseMessageLength
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut]
	}
	return &CloseSession{Code: code, Message: message}
}
