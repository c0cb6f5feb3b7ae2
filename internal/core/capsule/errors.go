package capsule

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-sessmux/internal/core/streamio"
)

var (
	// ErrMalformed capsule 格式错误
	ErrMalformed = fmt.Errorf("malformed capsule: %w", streamio.ErrProtocol)

	// ErrTooLarge capsule 超过大小上限
	ErrTooLarge = fmt.Errorf("capsule too large: %w", streamio.ErrProtocol)

	// ErrTruncated 流结束时仍有未完成的 capsule
	ErrTruncated = fmt.Errorf("truncated capsule at end of stream: %w", streamio.ErrProtocol)

	// ErrMessageTooLong 关闭原因超过上限
	ErrMessageTooLong = errors.New("close message too long")
)
