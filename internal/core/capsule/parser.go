package capsule

import (
	"fmt"

	"github.com/quic-go/quic-go/quicvarint"

	"github.com/dep2p/go-sessmux/pkg/lib/log"
)

var logger = log.Logger("core/capsule")

// Parser 增量 capsule 解析器
//
// 输入可以在任意字节处切分；不完整的尾部保留到下一次 Feed。
type Parser struct {
	buf     []byte
	maxSize uint64
	skipped int
}

// NewParser 创建解析器，maxSize 为单个 capsule 负载上限
func NewParser(maxSize int) *Parser {
	if maxSize <= 0 {
		maxSize = DefaultMaxCapsuleSize
	}
	return &Parser{maxSize: uint64(maxSize)}
}

// Feed 追加数据并返回其中所有完整的已知 capsule
//
// 返回错误后解析器不可再使用。
func (p *Parser) Feed(data []byte) ([]Capsule, error) {
	p.buf = append(p.buf, data...)

	var out []Capsule
	for {
		t, payload, consumed, ok, err := p.next()
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		c, err := decodePayload(t, payload)
		p.buf = p.buf[consumed:]
		if err != nil {
			return out, err
		}
		if c == nil {
			p.skipped++
			logger.Debug("跳过未知 capsule", "type", t, "length", len(payload))
			continue
		}
		out = append(out, c)
	}

	if len(p.buf) == 0 {
		p.buf = nil
	}
	return out, nil
}

// Finish 在流结束时调用，存在未完成的 capsule 时返回 ErrTruncated
func (p *Parser) Finish() error {
	if len(p.buf) > 0 {
		return fmt.Errorf("%d bytes pending: %w", len(p.buf), ErrTruncated)
	}
	return nil
}

// Buffered 返回尚未组成完整 capsule 的字节数
func (p *Parser) Buffered() int {
	return len(p.buf)
}

// Skipped 返回已跳过的未知 capsule 数量
func (p *Parser) Skipped() int {
	return p.skipped
}

// next 尝试从缓冲头部切出一个完整 capsule
func (p *Parser) next() (t Type, payload []byte, consumed int, ok bool, err error) {
	b := p.buf
	if len(b) == 0 || len(b) < varintLen(b[0]) {
		return 0, nil, 0, false, nil
	}
	typ, n, err := quicvarint.Parse(b)
	if err != nil {
		return 0, nil, 0, false, fmt.Errorf("type: %v: %w", err, ErrMalformed)
	}
	b = b[n:]
	consumed = n

	if len(b) == 0 || len(b) < varintLen(b[0]) {
		return 0, nil, 0, false, nil
	}
	length, n, err := quicvarint.Parse(b)
	if err != nil {
		return 0, nil, 0, false, fmt.Errorf("length: %v: %w", err, ErrMalformed)
	}
	if length > p.maxSize {
		return 0, nil, 0, false, fmt.Errorf("type %v length %d exceeds %d: %w", Type(typ), length, p.maxSize, ErrTooLarge)
	}
	b = b[n:]
	consumed += n

	if uint64(len(b)) < length {
		return 0, nil, 0, false, nil
	}
	consumed += int(length)
	return Type(typ), b[:length], consumed, true, nil
}
