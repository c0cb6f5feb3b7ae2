package sessmux

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-sessmux/config"
	"github.com/dep2p/go-sessmux/internal/core/metrics"
	"github.com/dep2p/go-sessmux/internal/core/session"
	"github.com/dep2p/go-sessmux/internal/core/transport"
	"github.com/dep2p/go-sessmux/internal/core/transport/quic"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置注入：统一配置、TLS
//  2. Metrics：Prometheus 注册表与 Reporter
//  3. Session：会话工厂（依赖 Reporter）
//  4. Transport：共享 UDP socket 的 QUIC 传输
//  5. 用户自定义 Fx 选项
func buildFxApp(cfg *config.Config, o *options, ep *Endpoint) *fx.App {
	modules := []fx.Option{
		fx.Supply(cfg),
		fx.Supply(&transport.TLS{Server: o.serverTLS, Client: o.clientTLS}),

		metrics.Module,
		session.Module,
		transport.Module(),
	}

	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	modules = append(modules,
		fx.Invoke(injectEndpointComponents(ep)),
		fx.WithLogger(fxLogger(cfg)),
	)
	return fx.New(modules...)
}

// fxLogger debug 级别输出 Fx 事件，其余情况静默
func fxLogger(cfg *config.Config) func() fxevent.Logger {
	return func() fxevent.Logger {
		if cfg.Log.Level == "debug" {
			if l, err := zap.NewDevelopment(); err == nil {
				return &fxevent.ZapLogger{Logger: l.Named("fx")}
			}
		}
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}
}

// injectEndpointComponents 把 Fx 构建的组件注入端点
func injectEndpointComponents(ep *Endpoint) func(*quic.Transport, *session.Factory, prometheus.Gatherer) {
	return func(t *quic.Transport, f *session.Factory, g prometheus.Gatherer) {
		ep.transport = t
		ep.factory = f
		ep.gatherer = g
	}
}
