package config

import (
	"errors"
	"fmt"
)

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，额外处理 nil。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 版本列表为空 -> 使用默认版本
//   - KeepAlive 周期不小于空闲超时 -> 取空闲超时的一半
//   - 缓冲或队列为零 -> 使用默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	if len(c.Session.SupportedVersions) == 0 {
		c.Session.SupportedVersions = DefaultSessionConfig().SupportedVersions
	}
	if c.Session.MaxCapsuleSize <= 0 {
		c.Session.MaxCapsuleSize = DefaultSessionConfig().MaxCapsuleSize
	}

	q := &c.Transport.QUIC
	if q.MaxIdleTimeout <= 0 {
		q.MaxIdleTimeout = DefaultTransportConfig().QUIC.MaxIdleTimeout
	}
	if q.KeepAlivePeriod >= q.MaxIdleTimeout {
		q.KeepAlivePeriod = q.MaxIdleTimeout / 2
	}
	if c.Transport.StreamWriteBuffer <= 0 {
		c.Transport.StreamWriteBuffer = DefaultTransportConfig().StreamWriteBuffer
	}
	if c.Transport.EventQueueSize <= 0 {
		c.Transport.EventQueueSize = DefaultTransportConfig().EventQueueSize
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed after fixes: %w", err)
	}
	return c, nil
}

// ValidateSubConfig 验证特定子配置
type ValidateSubConfig interface {
	Validate() error
}

var (
	_ ValidateSubConfig = (*SessionConfig)(nil)
	_ ValidateSubConfig = (*TransportConfig)(nil)
	_ ValidateSubConfig = (*MetricsConfig)(nil)
	_ ValidateSubConfig = (*LogConfig)(nil)
)

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}
