package session

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-sessmux/internal/core/streamio"
)

var (
	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("session closed")

	// ErrSessionNotReady 会话尚未完成版本协商
	ErrSessionNotReady = errors.New("session not ready")

	// ErrStreamNotFound 流不属于本会话或已移除
	ErrStreamNotFound = fmt.Errorf("stream not in session: %w", streamio.ErrNotFound)
)

// protocolError 构造对端违反协议的错误
func protocolError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), streamio.ErrProtocol)
}
