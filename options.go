package sessmux

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-sessmux/config"
	"github.com/dep2p/go-sessmux/pkg/types"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置，为 nil 时使用 config.NewConfig()
	base *config.Config

	// 预设名称
	preset string

	// 会话配置
	versions []types.Version

	// 传输配置
	transport struct {
		maxIncomingStreams    *int64
		maxIncomingUniStreams *int64
		datagrams             *bool
		idleTimeout           *time.Duration
		streamWriteBuffer     int
	}

	// 指标配置
	metrics struct {
		enabled   *bool
		namespace string
	}

	// TLS 配置
	serverTLS *tls.Config
	clientTLS *tls.Config

	// 日志配置
	logLevel  string
	logOutput io.Writer

	// 用户自定义 Fx 选项
	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{}
}

// toInternalConfig 转换为内部统一配置
func (o *options) toInternalConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if o.base != nil {
		cfg = config.CloneConfig(o.base)
	}

	// 应用预设
	if err := config.ApplyPreset(cfg, o.preset); err != nil {
		return nil, err
	}

	// 覆盖: 会话
	if len(o.versions) > 0 {
		cfg.Session.SupportedVersions = append([]types.Version(nil), o.versions...)
	}

	// 覆盖: 传输
	if o.transport.maxIncomingStreams != nil {
		cfg.Transport.QUIC.MaxIncomingStreams = *o.transport.maxIncomingStreams
	}
	if o.transport.maxIncomingUniStreams != nil {
		cfg.Transport.QUIC.MaxIncomingUniStreams = *o.transport.maxIncomingUniStreams
	}
	if o.transport.datagrams != nil {
		cfg.Transport.QUIC.EnableDatagrams = *o.transport.datagrams
	}
	if o.transport.idleTimeout != nil {
		cfg.Transport.QUIC.MaxIdleTimeout = config.Duration(*o.transport.idleTimeout)
		if cfg.Transport.QUIC.KeepAlivePeriod >= cfg.Transport.QUIC.MaxIdleTimeout {
			cfg.Transport.QUIC.KeepAlivePeriod = cfg.Transport.QUIC.MaxIdleTimeout / 2
		}
	}
	if o.transport.streamWriteBuffer > 0 {
		cfg.Transport.StreamWriteBuffer = o.transport.streamWriteBuffer
	}

	// 覆盖: 指标
	if o.metrics.enabled != nil {
		cfg.Metrics.Enabled = *o.metrics.enabled
	}
	if o.metrics.namespace != "" {
		cfg.Metrics.Namespace = o.metrics.namespace
	}

	// 覆盖: 日志
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	return cfg, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置与预设
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 以完整配置为基础，后续选项在其上覆盖
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.base = cfg
		return nil
	}
}

// WithConfigJSON 从 JSON 加载基础配置
func WithConfigJSON(data []byte) Option {
	return func(o *options) error {
		cfg, err := config.FromJSON(data)
		if err != nil {
			return err
		}
		o.base = cfg
		return nil
	}
}

// WithPreset 应用预设（default / lowlatency / constrained / server）
func WithPreset(name string) Option {
	return func(o *options) error {
		switch name {
		case PresetDefault, PresetLowLatency, PresetConstrained, PresetServer:
			o.preset = name
			return nil
		default:
			return fmt.Errorf("unknown preset: %s", name)
		}
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              会话与传输
// ════════════════════════════════════════════════════════════════════════════

// WithSupportedVersions 设置支持的会话版本，按偏好排序
func WithSupportedVersions(versions ...types.Version) Option {
	return func(o *options) error {
		if len(versions) == 0 {
			return errors.New("at least one version is required")
		}
		o.versions = versions
		return nil
	}
}

// WithMaxIncomingStreams 设置对端可并发开启的流数量
func WithMaxIncomingStreams(bidi, uni int64) Option {
	return func(o *options) error {
		if bidi < 0 || uni < 0 {
			return errors.New("stream limits must not be negative")
		}
		o.transport.maxIncomingStreams = &bidi
		o.transport.maxIncomingUniStreams = &uni
		return nil
	}
}

// WithDatagrams 启用或禁用 QUIC DATAGRAM
func WithDatagrams(enabled bool) Option {
	return func(o *options) error {
		o.transport.datagrams = &enabled
		return nil
	}
}

// WithIdleTimeout 设置连接空闲超时
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("idle timeout must be positive")
		}
		o.transport.idleTimeout = &d
		return nil
	}
}

// WithStreamWriteBuffer 设置每流发送缓冲上限（字节）
func WithStreamWriteBuffer(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.New("stream write buffer must be positive")
		}
		o.transport.streamWriteBuffer = n
		return nil
	}
}

// WithTLS 设置监听与拨号使用的 TLS 配置
//
// server 为 nil 时生成自签名证书；client 为 nil 时使用系统根证书验证对端。
func WithTLS(server, client *tls.Config) Option {
	return func(o *options) error {
		o.serverTLS = server
		o.clientTLS = client
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              指标与日志
// ════════════════════════════════════════════════════════════════════════════

// WithMetrics 启用或禁用 Prometheus 指标
func WithMetrics(enabled bool) Option {
	return func(o *options) error {
		o.metrics.enabled = &enabled
		return nil
	}
}

// WithMetricsNamespace 设置指标命名空间
func WithMetricsNamespace(ns string) Option {
	return func(o *options) error {
		o.metrics.namespace = ns
		return nil
	}
}

// WithLogLevel 设置日志级别（debug/info/warn/error）
func WithLogLevel(level string) Option {
	return func(o *options) error {
		o.logLevel = level
		return nil
	}
}

// WithLogOutput 设置日志输出，未设置时不改动全局 logger
func WithLogOutput(w io.Writer) Option {
	return func(o *options) error {
		o.logOutput = w
		return nil
	}
}

// WithFxOption 追加自定义 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
