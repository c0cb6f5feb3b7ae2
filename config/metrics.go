package config

import (
	"errors"
	"regexp"
	"time"
)

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否启用指标收集
	// 默认值: true
	Enabled bool `json:"enabled"`

	// Namespace Prometheus 指标命名空间
	// 默认值: "sessmux"
	Namespace string `json:"namespace"`

	// EnableBandwidth 是否统计按方向的流量与速率
	// 默认值: true
	EnableBandwidth bool `json:"enable_bandwidth"`

	// SnapshotInterval 指标快照日志间隔，0 表示不输出
	// 默认值: 0
	SnapshotInterval Duration `json:"snapshot_interval"`
}

var metricNamespaceRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultMetricsConfig 返回默认的指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:         true,
		Namespace:       "sessmux",
		EnableBandwidth: true,
	}
}

// Validate 验证指标配置的有效性
func (c *MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if !metricNamespaceRe.MatchString(c.Namespace) {
		return errors.New("metrics: namespace must be a valid prometheus identifier")
	}
	if c.SnapshotInterval < 0 {
		return errors.New("metrics: snapshot_interval must not be negative")
	}
	if c.SnapshotInterval > 0 && c.SnapshotInterval.Duration() < time.Second {
		return errors.New("metrics: snapshot_interval must be at least 1s")
	}
	return nil
}
