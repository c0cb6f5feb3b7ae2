package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-sessmux/config"
)

// Config 指标配置
type Config struct {
	// Enabled 是否启用指标收集
	Enabled bool
	// Namespace Prometheus 命名空间
	Namespace string
	// EnableBandwidth 是否统计速率
	EnableBandwidth bool
	// SnapshotInterval 快照日志间隔，0 表示不输出
	SnapshotInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Namespace:       "sessmux",
		EnableBandwidth: true,
	}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Enabled:          cfg.Metrics.Enabled,
		Namespace:        cfg.Metrics.Namespace,
		EnableBandwidth:  cfg.Metrics.EnableBandwidth,
		SnapshotInterval: cfg.Metrics.SnapshotInterval.Duration(),
	}
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Registerer prometheus.Registerer
	UnifiedCfg *config.Config `optional:"true"`
}

// Module 是 metrics 的 Fx 模块
//
// 提供独立的 Prometheus 注册表（Registerer/Gatherer）与 Reporter。
var Module = fx.Module("metrics",
	fx.Provide(
		prometheus.NewRegistry,
		registerer,
		gatherer,
		NewReporterFromParams,
	),
)

func registerer(r *prometheus.Registry) prometheus.Registerer { return r }

func gatherer(r *prometheus.Registry) prometheus.Gatherer { return r }

// NewReporterFromParams 从参数创建 Reporter
//
// 指标禁用时返回 NoopReporter；配置了快照间隔时随生命周期启停快照收集器。
func NewReporterFromParams(p Params) (Reporter, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if !cfg.Enabled {
		return NoopReporter{}, nil
	}

	var bw *BandwidthCounter
	if cfg.EnableBandwidth {
		bw = NewBandwidthCounter()
	}
	c, err := NewCollector(cfg.Namespace, p.Registerer, bw)
	if err != nil {
		return nil, err
	}

	if cfg.SnapshotInterval > 0 {
		snap := NewSnapshotCollector(c, nil)
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				snap.Start(cfg.SnapshotInterval)
				return nil
			},
			OnStop: func(context.Context) error {
				snap.Stop()
				return nil
			},
		})
	}
	return c, nil
}
