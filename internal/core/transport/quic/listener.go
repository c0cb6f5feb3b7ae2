package quic

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/dep2p/go-sessmux/pkg/types"
	"github.com/quic-go/quic-go"
)

// ErrListenerClosed 监听器已关闭
var ErrListenerClosed = errors.New("listener closed")

// Listener QUIC 监听器
type Listener struct {
	quicListener *quic.Listener
	transport    *Transport
	closed       atomic.Bool
}

// Accept 接受一条入站连接
//
// 返回的 Conn 尚未启动事件循环，调用方需要 Run。
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	if l.closed.Load() {
		return nil, ErrListenerClosed
	}
	qconn, err := l.quicListener.Accept(ctx)
	if err != nil {
		if l.closed.Load() {
			return nil, ErrListenerClosed
		}
		return nil, fmt.Errorf("accept connection: %w", err)
	}
	logger.Debug("接受入站连接", "remote", qconn.RemoteAddr().String())
	return newConn(qconn, types.PerspectiveServer, l.transport.cfg), nil
}

// Addr 监听地址
func (l *Listener) Addr() net.Addr {
	return l.quicListener.Addr()
}

// Close 关闭监听器，已建立的连接不受影响
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	l.transport.removeListener(l)
	return l.quicListener.Close()
}
