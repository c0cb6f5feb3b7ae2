package capsule

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/quic-go/quic-go/quicvarint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-sessmux/internal/core/streamio"
	"github.com/dep2p/go-sessmux/pkg/types"
)

func encodeAll(t *testing.T, caps ...Capsule) []byte {
	t.Helper()
	var b []byte
	for _, c := range caps {
		var err error
		b, err = Append(b, c)
		require.NoError(t, err)
	}
	return b
}

func TestParser_AllTypes(t *testing.T) {
	in := []Capsule{
		&VersionOffer{Versions: []types.Version{types.VersionDraft07, types.VersionDraft02}},
		&VersionAccept{Version: types.VersionDraft07},
		&DrainSession{},
		&CloseSession{Code: 42, Message: "bye"},
	}
	p := NewParser(0)
	out, err := p.Feed(encodeAll(t, in...))
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.NoError(t, p.Finish())
}

func TestParser_ByteAtATime(t *testing.T) {
	in := []Capsule{
		&VersionOffer{Versions: []types.Version{types.VersionDraft02}},
		&CloseSession{Code: 7, Message: strings.Repeat("x", 300)},
	}
	data := encodeAll(t, in...)

	p := NewParser(0)
	var out []Capsule
	for i := range data {
		caps, err := p.Feed(data[i : i+1])
		require.NoError(t, err)
		out = append(out, caps...)
		assert.Equal(t, p.Buffered() > 0, p.Finish() != nil, "中途结束应报告截断")
	}
	assert.Equal(t, in, out)
	assert.Zero(t, p.Buffered())
}

func TestParser_SkipsUnknown(t *testing.T) {
	data := quicvarint.Append(nil, 0x1234)
	data = quicvarint.Append(data, 3)
	data = append(data, 1, 2, 3)
	data = append(data, encodeAll(t, &DrainSession{})...)

	p := NewParser(0)
	out, err := p.Feed(data)
	require.NoError(t, err)
	assert.Equal(t, []Capsule{&DrainSession{}}, out)
	assert.Equal(t, 1, p.Skipped())
}

func TestParser_TooLarge(t *testing.T) {
	data := quicvarint.Append(nil, uint64(TypeCloseSession))
	data = quicvarint.Append(data, 100)

	p := NewParser(64)
	_, err := p.Feed(data)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorIs(t, err, streamio.ErrProtocol)
}

func TestParser_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"close without code": append(quicvarint.Append(quicvarint.Append(nil, uint64(TypeCloseSession)), 2), 0, 1),
		"drain with payload": append(quicvarint.Append(quicvarint.Append(nil, uint64(TypeDrainSession)), 1), 9),
		"accept trailing":    append(quicvarint.Append(quicvarint.Append(nil, uint64(TypeVersionAccept)), 2), 1, 2),
		"accept empty":       quicvarint.Append(quicvarint.Append(nil, uint64(TypeVersionAccept)), 0),
		"offer cut varint":   append(quicvarint.Append(quicvarint.Append(nil, uint64(TypeVersionOffer)), 1), 0xc0),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewParser(0).Feed(data)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParser_EmptyOffer(t *testing.T) {
	out, err := NewParser(0).Feed(encodeAll(t, &VersionOffer{}))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].(*VersionOffer).Versions)
}

func TestCloseSession_MessageLimit(t *testing.T) {
	long := strings.Repeat("a", MaxCloseMessageLength+10)

	_, err := Encode(&CloseSession{Code: 1, Message: long})
	assert.ErrorIs(t, err, ErrMessageTooLong)

	c := NewCloseSession(1, long)
	assert.Len(t, c.Message, MaxCloseMessageLength)
	_, err = Encode(c)
	assert.NoError(t, err)
}

func TestCloseSession_TruncatesOnRuneBoundary(t *testing.T) {
	// 每个字符 3 字节，1024 不是 3 的倍数
	long := strings.Repeat("关", 2000/3+1)
	require.Greater(t, len(long), MaxCloseMessageLength)

	c := NewCloseSession(2, long)
	assert.True(t, utf8.ValidString(c.Message))
	assert.LessOrEqual(t, len(c.Message), MaxCloseMessageLength)
	assert.Greater(t, len(c.Message), MaxCloseMessageLength-utf8.UTFMax)
	assert.True(t, strings.HasPrefix(long, c.Message))

	buf, err := Encode(c)
	require.NoError(t, err)
	caps, err := NewParser(DefaultMaxCapsuleSize).Feed(buf)
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, c.Message, caps[0].(*CloseSession).Message)
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "CLOSE_SESSION", TypeCloseSession.String())
	assert.Equal(t, "UNKNOWN(0x1)", Type(1).String())
}
