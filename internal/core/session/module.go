package session

import (
	"slices"

	"go.uber.org/fx"

	"github.com/dep2p/go-sessmux/config"
	"github.com/dep2p/go-sessmux/internal/core/metrics"
	pkgif "github.com/dep2p/go-sessmux/pkg/interfaces"
	transportif "github.com/dep2p/go-sessmux/pkg/interfaces/transport"
	"github.com/dep2p/go-sessmux/pkg/types"
)

// Config 会话配置
type Config struct {
	// SupportedVersions 支持的版本，按偏好排序
	SupportedVersions []types.Version
	// MaxCapsuleSize 单个 capsule 负载上限
	MaxCapsuleSize int
	// ClosedStreamCacheSize 记录最近关闭流 ID 的数量，0 表示不记录
	ClosedStreamCacheSize int
	// MaxPendingIncomingStreams 每个方向等待 Accept 的入站流上限，0 表示不限制
	MaxPendingIncomingStreams int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建会话配置
func ConfigFromUnified(cfg *config.Config) Config {
	sc := config.DefaultSessionConfig()
	if cfg != nil {
		sc = cfg.Session
	}
	return Config{
		SupportedVersions:         slices.Clone(sc.SupportedVersions),
		MaxCapsuleSize:            sc.MaxCapsuleSize,
		ClosedStreamCacheSize:     sc.ClosedStreamCacheSize,
		MaxPendingIncomingStreams: sc.MaxPendingIncomingStreams,
	}
}

// Factory 以统一的配置与指标创建会话
type Factory struct {
	cfg      Config
	reporter metrics.Reporter
}

// NewFactory 创建会话工厂
func NewFactory(cfg Config, reporter metrics.Reporter) *Factory {
	return &Factory{cfg: cfg, reporter: reporter}
}

// NewSession 在 conn 上创建会话
func (f *Factory) NewSession(conn transportif.Connection, visitor pkgif.SessionVisitor) *Session {
	cfg := f.cfg
	cfg.SupportedVersions = slices.Clone(f.cfg.SupportedVersions)
	return New(conn, visitor, cfg, f.reporter)
}

// Config 返回工厂使用的会话配置
func (f *Factory) Config() Config {
	return f.cfg
}

// Params 会话模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config   `optional:"true"`
	Reporter   metrics.Reporter `optional:"true"`
}

// Module 是 session 的 Fx 模块
var Module = fx.Module("session",
	fx.Provide(NewFactoryFromParams),
)

// NewFactoryFromParams 从参数创建会话工厂
func NewFactoryFromParams(p Params) *Factory {
	return NewFactory(ConfigFromUnified(p.UnifiedCfg), p.Reporter)
}
