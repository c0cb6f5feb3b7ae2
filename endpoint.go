package sessmux

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-sessmux/config"
	"github.com/dep2p/go-sessmux/internal/core/session"
	"github.com/dep2p/go-sessmux/internal/core/transport/quic"
	"github.com/dep2p/go-sessmux/pkg/lib/log"
)

var logger = log.Logger("sessmux")

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期常量
// ════════════════════════════════════════════════════════════════════════════

const (
	// startTimeout Fx App 启动超时
	startTimeout = 15 * time.Second

	// stopTimeout Fx App 停止超时
	stopTimeout = 10 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Endpoint
// ════════════════════════════════════════════════════════════════════════════

// Endpoint 会话端点
//
// 持有一个共享 UDP socket 的 QUIC 传输，可以同时拨号和监听。
// 每条连接承载一个会话。
type Endpoint struct {
	mu sync.Mutex

	cfg *config.Config
	app *fx.App

	// Fx 注入
	transport *quic.Transport
	factory   *session.Factory
	gatherer  prometheus.Gatherer

	conns     map[*Conn]struct{}
	listeners map[*Listener]struct{}

	started bool
	closed  bool
}

// New 创建端点（未启动）
func New(opts ...Option) (*Endpoint, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	cfg, err := o.toInternalConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if o.logOutput != nil {
		cfg.Log.Apply(o.logOutput)
	}

	ep := &Endpoint{
		cfg:       cfg,
		conns:     make(map[*Conn]struct{}),
		listeners: make(map[*Listener]struct{}),
	}
	ep.app = buildFxApp(cfg, o, ep)
	if err := ep.app.Err(); err != nil {
		return nil, fmt.Errorf("build endpoint: %w", err)
	}
	return ep, nil
}

// Start 创建并启动端点
func Start(ctx context.Context, opts ...Option) (*Endpoint, error) {
	ep, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := ep.Start(ctx); err != nil {
		return nil, err
	}
	return ep, nil
}

// Start 启动端点
func (e *Endpoint) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEndpointClosed
	}
	if e.started {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := e.app.Start(ctx); err != nil {
		return fmt.Errorf("start endpoint: %w", err)
	}
	e.started = true
	logger.Info("端点已启动", "versions", e.cfg.Session.SupportedVersions)
	return nil
}

// Close 关闭所有监听器与连接，然后停止传输
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	started := e.started
	listeners := make([]*Listener, 0, len(e.listeners))
	for l := range e.listeners {
		listeners = append(listeners, l)
	}
	conns := make([]*Conn, 0, len(e.conns))
	for c := range e.conns {
		conns = append(conns, c)
	}
	e.mu.Unlock()

	var err error
	for _, l := range listeners {
		err = multierr.Append(err, l.Close())
	}
	for _, c := range conns {
		err = multierr.Append(err, c.Close())
	}
	if started {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		err = multierr.Append(err, e.app.Stop(ctx))
	}
	logger.Info("端点已关闭", "conns", len(conns), "listeners", len(listeners))
	return err
}

// checkRunning 端点必须已启动且未关闭，调用方持有锁
func (e *Endpoint) checkRunning() error {
	if e.closed {
		return ErrEndpointClosed
	}
	if !e.started {
		return ErrNotStarted
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              拨号与监听
// ════════════════════════════════════════════════════════════════════════════

// Dial 拨号并在新连接上以客户端身份启动会话
func (e *Endpoint) Dial(ctx context.Context, addr string, h Handler) (*Conn, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	e.mu.Lock()
	if err := e.checkRunning(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()

	qc, err := e.transport.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	c, err := e.adopt(qc, h)
	if err != nil {
		return nil, err
	}
	logger.Debug("拨号会话已启动", "remote", addr)
	return c, nil
}

// Listen 在 addr 上接受连接，每条连接以服务端身份启动会话
func (e *Endpoint) Listen(addr string, h Handler) (*Listener, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkRunning(); err != nil {
		return nil, err
	}

	ql, err := e.transport.Listen(addr)
	if err != nil {
		return nil, err
	}
	l := newListener(e, ql, h)
	e.listeners[l] = struct{}{}
	go l.serve()
	return l, nil
}

// adopt 登记连接并启动会话
func (e *Endpoint) adopt(qc *quic.Conn, h Handler) (*Conn, error) {
	c := newConn(e, qc)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, multierr.Append(ErrEndpointClosed, qc.Close())
	}
	e.conns[c] = struct{}{}
	e.mu.Unlock()

	if err := c.start(h); err != nil {
		return nil, multierr.Append(err, c.Close())
	}
	go func() {
		<-c.Done()
		e.removeConn(c)
	}()
	return c, nil
}

func (e *Endpoint) removeConn(c *Conn) {
	e.mu.Lock()
	delete(e.conns, c)
	e.mu.Unlock()
}

func (e *Endpoint) removeListener(l *Listener) {
	e.mu.Lock()
	delete(e.listeners, l)
	e.mu.Unlock()
}

// ════════════════════════════════════════════════════════════════════════════
//                              查询
// ════════════════════════════════════════════════════════════════════════════

// Config 返回生效配置的副本
func (e *Endpoint) Config() *config.Config {
	return config.CloneConfig(e.cfg)
}

// Metrics 返回 Prometheus Gatherer
func (e *Endpoint) Metrics() prometheus.Gatherer {
	return e.gatherer
}

// LocalAddr 共享 UDP socket 的本地地址，尚未拨号或监听时为 nil
func (e *Endpoint) LocalAddr() net.Addr {
	if e.transport == nil {
		return nil
	}
	return e.transport.LocalAddr()
}

// NumConns 当前连接数量
func (e *Endpoint) NumConns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.conns)
}

// ════════════════════════════════════════════════════════════════════════════
//                              Listener
// ════════════════════════════════════════════════════════════════════════════

// Listener 端点上的监听器
type Listener struct {
	ep      *Endpoint
	ql      *quic.Listener
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newListener(ep *Endpoint, ql *quic.Listener, h Handler) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		ep:      ep,
		ql:      ql,
		handler: h,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (l *Listener) serve() {
	defer close(l.done)
	for {
		qc, err := l.ql.Accept(l.ctx)
		if err != nil {
			if !errors.Is(err, quic.ErrListenerClosed) && l.ctx.Err() == nil {
				logger.Warn("接受连接失败", "addr", l.Addr(), "error", err)
			}
			return
		}
		if _, err := l.ep.adopt(qc, l.handler); err != nil {
			logger.Debug("启动入站会话失败", "remote", qc.RemoteAddr(), "error", err)
		}
	}
}

// Addr 监听地址
func (l *Listener) Addr() net.Addr {
	return l.ql.Addr()
}

// Close 停止接受新连接，已建立的连接不受影响
func (l *Listener) Close() error {
	l.cancel()
	err := l.ql.Close()
	<-l.done
	l.ep.removeListener(l)
	return err
}
