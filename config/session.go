package config

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-sessmux/pkg/types"
)

// SessionConfig 会话层配置
type SessionConfig struct {
	// SupportedVersions 支持的协议版本，按偏好排序
	//
	// 发起方按此顺序提议；响应方选择此列表中第一个被对端提议的版本。
	SupportedVersions []types.Version `json:"supported_versions"`

	// MaxCapsuleSize 单个 capsule 负载上限（字节）
	MaxCapsuleSize int `json:"max_capsule_size"`

	// ClosedStreamCacheSize 记录最近关闭流 ID 的数量
	//
	// 用于区分迟到事件与未知流的事件，0 表示不记录。
	ClosedStreamCacheSize int `json:"closed_stream_cache_size"`

	// MaxPendingIncomingStreams 等待 Accept 的入站流上限
	//
	// 超过上限的入站流被拒绝（STOP_SENDING + RESET），0 表示不限制。
	MaxPendingIncomingStreams int `json:"max_pending_incoming_streams"`
}

// DefaultSessionConfig 返回默认会话配置
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SupportedVersions:         []types.Version{types.VersionDraft07, types.VersionDraft02},
		MaxCapsuleSize:            16 * 1024, // 16 KB
		ClosedStreamCacheSize:     256,
		MaxPendingIncomingStreams: 1024,
	}
}

// Validate 验证会话配置
func (c *SessionConfig) Validate() error {
	if len(c.SupportedVersions) == 0 {
		return errors.New("session: supported_versions must not be empty")
	}
	seen := make(map[types.Version]struct{}, len(c.SupportedVersions))
	for _, v := range c.SupportedVersions {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("session: duplicate version %v", v)
		}
		seen[v] = struct{}{}
	}
	if c.MaxCapsuleSize < 1024 {
		return fmt.Errorf("session: max_capsule_size must be at least 1024, got %d", c.MaxCapsuleSize)
	}
	if c.ClosedStreamCacheSize < 0 {
		return errors.New("session: closed_stream_cache_size must not be negative")
	}
	if c.MaxPendingIncomingStreams < 0 {
		return errors.New("session: max_pending_incoming_streams must not be negative")
	}
	return nil
}
