package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值。
//
// 示例 JSON:
//
//	{
//	  "session": {"supported_versions": [4278190087]},
//	  "transport": {"quic": {"max_idle_timeout": "1m"}},
//	  "log": {"level": "debug"}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ToJSON 把配置序列化为带缩进的 JSON
func ToJSON(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "default": 不做修改
//   - "lowlatency": 更短的超时与更小的缓冲
//   - "constrained": 低资源占用
//   - "server": 更多并发流与更大的窗口
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case "", "default":
		return nil
	case "lowlatency":
		applyLowLatencyPreset(cfg)
	case "constrained":
		applyConstrainedPreset(cfg)
	case "server":
		applyServerPreset(cfg)
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
	return nil
}

func applyLowLatencyPreset(cfg *Config) {
	cfg.Transport.QUIC.MaxIdleTimeout = Duration(10 * time.Second)
	cfg.Transport.QUIC.KeepAlivePeriod = Duration(2 * time.Second)
	cfg.Transport.StreamWriteBuffer = 64 * 1024
}

func applyConstrainedPreset(cfg *Config) {
	cfg.Transport.QUIC.MaxIncomingStreams = 32
	cfg.Transport.QUIC.MaxIncomingUniStreams = 32
	cfg.Transport.QUIC.MaxStreamReceiveWindow = 512 * 1024
	cfg.Transport.QUIC.MaxConnectionReceiveWindow = 2 * 1024 * 1024
	cfg.Transport.StreamWriteBuffer = 32 * 1024
	cfg.Transport.EventQueueSize = 128
	cfg.Session.ClosedStreamCacheSize = 32
	cfg.Session.MaxPendingIncomingStreams = 64
	cfg.Metrics.EnableBandwidth = false
}

func applyServerPreset(cfg *Config) {
	cfg.Transport.QUIC.MaxIncomingStreams = 4096
	cfg.Transport.QUIC.MaxIncomingUniStreams = 4096
	cfg.Transport.QUIC.MaxConnectionReceiveWindow = 64 * 1024 * 1024
	cfg.Transport.EventQueueSize = 8192
	cfg.Session.ClosedStreamCacheSize = 4096
	cfg.Session.MaxPendingIncomingStreams = 8192
}

// CloneConfig 克隆配置
//
// 创建配置的深拷贝，用于安全地修改配置而不影响原始配置。
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	cloned := *cfg
	cloned.Session.SupportedVersions = slices.Clone(cfg.Session.SupportedVersions)
	return &cloned
}
