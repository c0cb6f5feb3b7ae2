package quic

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"

	"github.com/dep2p/go-sessmux/pkg/types"
	"github.com/quic-go/quic-go"
	"go.uber.org/multierr"
)

// Transport QUIC 传输
//
// 监听与拨号共享同一个 UDP socket 与 quic.Transport。
type Transport struct {
	mu sync.Mutex

	cfg           Config
	serverTLSConf *tls.Config
	clientTLSConf *tls.Config

	quicTransport *quic.Transport
	udpConn       *net.UDPConn

	listeners map[*Listener]struct{}
	closed    bool
}

// New 创建 QUIC 传输
//
// serverTLS 用于 Listen，clientTLS 用于 Dial，二者都会补齐 ALPN。
func New(cfg Config, serverTLS, clientTLS *tls.Config) *Transport {
	return &Transport{
		cfg:           cfg.withDefaults(),
		serverTLSConf: withALPN(serverTLS),
		clientTLSConf: withALPN(clientTLS),
		listeners:     make(map[*Listener]struct{}),
	}
}

// Config 返回传输配置
func (t *Transport) Config() Config {
	return t.cfg
}

// ensureSocket 首次使用时创建共享 UDP socket
func (t *Transport) ensureSocket(laddr *net.UDPAddr) error {
	if t.quicTransport != nil {
		return nil
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("listen udp: %w", err)
	}
	t.udpConn = conn
	t.quicTransport = &quic.Transport{Conn: conn}
	return nil
}

// Listen 在 addr（host:port）上监听
//
// 同一个 Transport 只绑定一个 UDP socket，先拨号后监听时复用拨号的本地端口。
func (t *Transport) Listen(addr string) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, addr, err)
	}
	if t.serverTLSConf == nil || len(t.serverTLSConf.Certificates) == 0 && t.serverTLSConf.GetCertificate == nil {
		return nil, ErrNoCertificate
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}
	if err := t.ensureSocket(udpAddr); err != nil {
		return nil, err
	}
	ql, err := t.quicTransport.Listen(t.serverTLSConf, t.cfg.quicConfig())
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	l := &Listener{quicListener: ql, transport: t}
	t.listeners[l] = struct{}{}
	logger.Info("开始监听", "addr", ql.Addr().String())
	return l, nil
}

// Dial 拨号到 addr（host:port）
//
// 返回的 Conn 尚未启动事件循环，调用方需要 Run。
func (t *Transport) Dial(ctx context.Context, addr string) (*Conn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, addr, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTransportClosed
	}
	if err := t.ensureSocket(&net.UDPAddr{}); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	qt := t.quicTransport
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
	defer cancel()

	qconn, err := qt.Dial(ctx, udpAddr, t.clientTLSConf, t.cfg.quicConfig())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	logger.Debug("拨号成功", "remote", addr)
	return newConn(qconn, types.PerspectiveClient, t.cfg), nil
}

// LocalAddr 共享 socket 的本地地址，尚未绑定时返回 nil
func (t *Transport) LocalAddr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.udpConn == nil {
		return nil
	}
	return t.udpConn.LocalAddr()
}

func (t *Transport) removeListener(l *Listener) {
	t.mu.Lock()
	delete(t.listeners, l)
	t.mu.Unlock()
}

// Close 关闭传输
//
// 关闭 quic.Transport 会同时关闭其上的全部连接。
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	listeners := make([]*Listener, 0, len(t.listeners))
	for l := range t.listeners {
		listeners = append(listeners, l)
	}
	qt, udp := t.quicTransport, t.udpConn
	t.quicTransport, t.udpConn = nil, nil
	t.mu.Unlock()

	var err error
	for _, l := range listeners {
		err = multierr.Append(err, l.Close())
	}
	if qt != nil {
		err = multierr.Append(err, qt.Close())
	}
	if udp != nil {
		err = multierr.Append(err, ignoreClosed(udp.Close()))
	}
	return err
}

// ignoreClosed quic.Transport.Close 可能已关闭底层 socket
func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func withALPN(conf *tls.Config) *tls.Config {
	if conf == nil {
		return nil
	}
	conf = conf.Clone()
	if !slices.Contains(conf.NextProtos, ALPN) {
		conf.NextProtos = append(conf.NextProtos, ALPN)
	}
	if conf.MinVersion < tls.VersionTLS13 {
		conf.MinVersion = tls.VersionTLS13
	}
	return conf
}
