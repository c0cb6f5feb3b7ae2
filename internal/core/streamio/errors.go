package streamio

import "errors"

// 错误分类
//
// NotFound / AlreadyExists 是本地可恢复的返回值；
// Unavailable 是瞬时背压，调用方在就绪回调后重试；
// Internal 是不变量被破坏，对受影响的流或会话是致命的；
// Protocol 是对端违反协议，对整个会话是致命的。
var (
	// ErrNotFound 操作的 ID 未注册
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists 重复注册
	ErrAlreadyExists = errors.New("already exists")

	// ErrFailedPrecondition 写端已关闭或 FIN 已发送
	ErrFailedPrecondition = errors.New("failed precondition")

	// ErrUnavailable 写路径阻塞
	ErrUnavailable = errors.New("unavailable")

	// ErrInternal 内部不变量被破坏
	ErrInternal = errors.New("internal error")

	// ErrProtocol 对端违反协议
	ErrProtocol = errors.New("protocol error")

	// ErrInvalidArgument 参数无效
	ErrInvalidArgument = errors.New("invalid argument")
)

// IsUnavailable 是否为瞬时背压错误
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsFatal 是否为致命错误（内部错误或协议错误）
func IsFatal(err error) bool {
	return errors.Is(err, ErrInternal) || errors.Is(err, ErrProtocol)
}
