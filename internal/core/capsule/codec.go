package capsule

import (
	"encoding/binary"
	"fmt"

	"github.com/quic-go/quic-go/quicvarint"

	"github.com/dep2p/go-sessmux/pkg/types"
)

// Append 把 capsule 编码追加到 b
func Append(b []byte, c Capsule) ([]byte, error) {
	payload, err := encodePayload(c)
	if err != nil {
		return b, err
	}
	b = quicvarint.Append(b, uint64(c.Type()))
	b = quicvarint.Append(b, uint64(len(payload)))
	return append(b, payload...), nil
}

// Encode 编码单个 capsule
func Encode(c Capsule) ([]byte, error) {
	return Append(nil, c)
}

func encodePayload(c Capsule) ([]byte, error) {
	switch c := c.(type) {
	case *VersionOffer:
		var b []byte
		for _, v := range c.Versions {
			b = quicvarint.Append(b, uint64(v))
		}
		return b, nil
	case *VersionAccept:
		return quicvarint.Append(nil, uint64(c.Version)), nil
	case *CloseSession:
		if len(c.Message) > MaxCloseMessageLength {
			return nil, fmt.Errorf("%d bytes: %w", len(c.Message), ErrMessageTooLong)
		}
		b := binary.BigEndian.AppendUint32(nil, uint32(c.Code))
		return append(b, c.Message...), nil
	case *DrainSession:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported capsule %T", c)
	}
}

// decodePayload 解码已知类型的负载；未知类型返回 nil
func decodePayload(t Type, payload []byte) (Capsule, error) {
	switch t {
	case TypeVersionOffer:
		offer := &VersionOffer{}
		for len(payload) > 0 {
			v, n, err := readVarint(payload)
			if err != nil {
				return nil, fmt.Errorf("%v version list: %w", t, err)
			}
			offer.Versions = append(offer.Versions, types.Version(v))
			payload = payload[n:]
		}
		return offer, nil
	case TypeVersionAccept:
		v, n, err := readVarint(payload)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", t, err)
		}
		if n != len(payload) {
			return nil, fmt.Errorf("%v: %d trailing bytes: %w", t, len(payload)-n, ErrMalformed)
		}
		return &VersionAccept{Version: types.Version(v)}, nil
	case TypeCloseSession:
		if len(payload) < 4 {
			return nil, fmt.Errorf("%v: short payload: %w", t, ErrMalformed)
		}
		msg := payload[4:]
		if len(msg) > MaxCloseMessageLength {
			return nil, fmt.Errorf("%v: %w", t, ErrMessageTooLong)
		}
		return &CloseSession{
			Code:    types.SessionErrorCode(binary.BigEndian.Uint32(payload)),
			Message: string(msg),
		}, nil
	case TypeDrainSession:
		if len(payload) != 0 {
			return nil, fmt.Errorf("%v: unexpected payload: %w", t, ErrMalformed)
		}
		return &DrainSession{}, nil
	default:
		return nil, nil
	}
}

// varintLen 根据首字节得到 varint 的编码长度
func varintLen(first byte) int {
	return 1 << (first >> 6)
}

// readVarint 从完整缓冲中读取 varint，数据不足视为格式错误
func readVarint(b []byte) (uint64, int, error) {
	if len(b) == 0 || len(b) < varintLen(b[0]) {
		return 0, 0, ErrMalformed
	}
	v, n, err := quicvarint.Parse(b)
	if err != nil {
		return 0, 0, fmt.Errorf("%v: %w", err, ErrMalformed)
	}
	return v, n, nil
}
