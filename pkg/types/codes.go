package types

import "fmt"

// StreamErrorCode 应用层流错误码
//
// 通过 RESET_STREAM / STOP_SENDING 传递给对端，
// 在传输层会被映射到保留的错误码空间。
type StreamErrorCode uint32

// SessionErrorCode 应用层会话错误码
//
// 随会话关闭信令一起发送。
type SessionErrorCode uint32

// 会话错误码
const (
	// SessionErrorNone 正常关闭
	SessionErrorNone SessionErrorCode = 0
	// SessionErrorProtocolViolation 对端违反会话协议
	SessionErrorProtocolViolation SessionErrorCode = 0x1
	// SessionErrorVersionNegotiation 版本协商失败
	SessionErrorVersionNegotiation SessionErrorCode = 0x2
	// SessionErrorInternal 内部错误
	SessionErrorInternal SessionErrorCode = 0x3
)

// ============================================================================
//                              DatagramStatus - 数据报发送结果
// ============================================================================

// DatagramStatusCode 数据报发送状态码
type DatagramStatusCode int

const (
	// DatagramSuccess 已发送或已排队
	DatagramSuccess DatagramStatusCode = iota
	// DatagramBlocked 发送队列已满
	DatagramBlocked
	// DatagramTooBig 超过最大数据报大小
	DatagramTooBig
	// DatagramInternalError 内部错误（如会话未就绪）
	DatagramInternalError
)

// String 返回状态码的字符串表示
func (c DatagramStatusCode) String() string {
	switch c {
	case DatagramSuccess:
		return "success"
	case DatagramBlocked:
		return "blocked"
	case DatagramTooBig:
		return "too_big"
	case DatagramInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// DatagramStatus 数据报发送结果
//
// 发送失败不是致命错误，只作为状态值返回给调用方。
type DatagramStatus struct {
	Code    DatagramStatusCode
	Message string
}

// OK 是否发送成功
func (s DatagramStatus) OK() bool {
	return s.Code == DatagramSuccess
}

// String 返回结果的字符串表示
func (s DatagramStatus) String() string {
	if s.Message == "" {
		return s.Code.String()
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}
