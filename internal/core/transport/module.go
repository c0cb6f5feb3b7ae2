package transport

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/dep2p/go-sessmux/config"
	"github.com/dep2p/go-sessmux/internal/core/transport/quic"
	"github.com/dep2p/go-sessmux/pkg/lib/log"
	"go.uber.org/fx"
)

var logger = log.Logger("core/transport")

// TLS 传输使用的 TLS 配置
type TLS struct {
	// Server 监听使用，为 nil 时生成自签名证书
	Server *tls.Config

	// Client 拨号使用，为 nil 时以系统根证书验证对端
	Client *tls.Config
}

// Params Fx 输入
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	TLS        *TLS           `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(
			ProvideConfig,
			ProvideTransport,
		),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideConfig 从统一配置提供传输配置
func ProvideConfig(p Params) quic.Config {
	return quic.ConfigFromUnified(p.UnifiedCfg)
}

// ProvideTransport 提供 QUIC 传输
func ProvideTransport(cfg quic.Config, p Params) (*quic.Transport, error) {
	server, client, err := resolveTLS(p.TLS)
	if err != nil {
		return nil, err
	}
	logger.Debug("创建 QUIC 传输",
		"datagrams", cfg.EnableDatagrams,
		"maxIncomingStreams", cfg.MaxIncomingStreams,
		"streamWriteBuffer", cfg.StreamWriteBuffer)
	return quic.New(cfg, server, client), nil
}

// resolveTLS 补齐缺省 TLS 配置
func resolveTLS(t *TLS) (server, client *tls.Config, err error) {
	if t != nil {
		server, client = t.Server, t.Client
	}
	if server == nil {
		cert, err := quic.GenerateSelfSigned("localhost", "127.0.0.1", "::1")
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrNoServerCertificate, err)
		}
		server = quic.ServerTLSConfig(cert)
		logger.Info("使用自签名证书", "fingerprint", quic.Fingerprint(cert))
	}
	if client == nil {
		client = quic.ClientTLSConfig(nil, "")
	}
	return server, client, nil
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, t *quic.Transport) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return t.Close()
		},
	})
}
