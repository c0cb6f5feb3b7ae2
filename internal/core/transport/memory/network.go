package memory

import (
	"github.com/dep2p/go-sessmux/pkg/lib/log"
	"github.com/dep2p/go-sessmux/pkg/types"
)

var logger = log.Logger("core/transport/memory")

// DefaultMaxDatagramSize 默认最大数据报负载
const DefaultMaxDatagramSize = 1200

// maxFlushEvents 单次 Flush 处理的事件上限，防止回调互相触发导致死循环
const maxFlushEvents = 1 << 20

// Options 内存连接参数，两端对称
type Options struct {
	// MaxIncomingBidiStreams 对端同时存活的双向流上限，0 表示不限
	MaxIncomingBidiStreams int

	// MaxIncomingUniStreams 对端同时存活的单向流上限，0 表示不限
	MaxIncomingUniStreams int

	// StreamWindow 每条流未被对端消费的字节上限，超过后 CanWriteNewData 为 false；0 表示不限
	StreamWindow int

	// MaxDatagramSize 最大数据报负载，0 使用 DefaultMaxDatagramSize
	MaxDatagramSize int

	// DatagramQueueLimit 未投递数据报上限，超过返回 Blocked；0 表示不限
	DatagramQueueLimit int

	// MaxPeekRegion PeekRegion 单次返回的最大字节数，0 表示不限
	MaxPeekRegion int
}

// Network 一对互联的内存连接及其事件队列
type Network struct {
	opts   Options
	events []func()
	client *Conn
	server *Conn
}

// NewNetwork 创建内存网络
func NewNetwork(opts Options) *Network {
	if opts.MaxDatagramSize <= 0 {
		opts.MaxDatagramSize = DefaultMaxDatagramSize
	}
	n := &Network{opts: opts}
	n.client = newConn(n, types.PerspectiveClient)
	n.server = newConn(n, types.PerspectiveServer)
	n.client.peer = n.server
	n.server.peer = n.client
	return n
}

// Client 返回发起方连接
func (n *Network) Client() *Conn {
	return n.client
}

// Server 返回响应方连接
func (n *Network) Server() *Conn {
	return n.server
}

// post 事件入队
func (n *Network) post(fn func()) {
	n.events = append(n.events, fn)
}

// Pending 返回排队中的事件数
func (n *Network) Pending() int {
	return len(n.events)
}

// Step 投递一个事件，队列为空时返回 false
func (n *Network) Step() bool {
	if len(n.events) == 0 {
		return false
	}
	fn := n.events[0]
	n.events[0] = nil
	n.events = n.events[1:]
	fn()
	return true
}

// Flush 依次投递事件直到队列为空，返回投递的事件数
func (n *Network) Flush() int {
	count := 0
	for n.Step() {
		count++
		if count >= maxFlushEvents {
			logger.Error("事件数超过上限，可能存在回调循环", "events", count)
			break
		}
	}
	if len(n.events) == 0 {
		n.events = nil
	}
	return count
}
