package scheduler

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-sessmux/internal/core/streamio"
)

var (
	// ErrNotRegistered 流未注册
	ErrNotRegistered = fmt.Errorf("stream not registered: %w", streamio.ErrNotFound)

	// ErrAlreadyRegistered 流已注册
	ErrAlreadyRegistered = fmt.Errorf("stream already registered: %w", streamio.ErrAlreadyExists)

	// ErrNothingScheduled 没有待调度的流
	ErrNothingScheduled = errors.New("no streams scheduled")

	// ErrInactiveGroup 轮询队列中出现没有待调度流的组
	ErrInactiveGroup = fmt.Errorf("inactive group found in top-level schedule: %w", streamio.ErrInternal)
)
