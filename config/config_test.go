package config

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-sessmux/pkg/types"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, []types.Version{types.VersionDraft07, types.VersionDraft02}, cfg.Session.SupportedVersions)
	assert.True(t, cfg.Transport.QUIC.EnableDatagrams)
}

// TestSessionConfig_Validate 测试会话配置验证
func TestSessionConfig_Validate(t *testing.T) {
	t.Run("EmptyVersions", func(t *testing.T) {
		cfg := DefaultSessionConfig()
		cfg.SupportedVersions = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("DuplicateVersion", func(t *testing.T) {
		cfg := DefaultSessionConfig()
		cfg.SupportedVersions = []types.Version{1, 2, 1}
		assert.Error(t, cfg.Validate())
	})

	t.Run("SmallCapsule", func(t *testing.T) {
		cfg := DefaultSessionConfig()
		cfg.MaxCapsuleSize = 10
		assert.Error(t, cfg.Validate())
	})

	t.Run("NegativeCache", func(t *testing.T) {
		cfg := DefaultSessionConfig()
		cfg.ClosedStreamCacheSize = -1
		assert.Error(t, cfg.Validate())
	})
}

// TestTransportConfig_Validate 测试传输配置验证
func TestTransportConfig_Validate(t *testing.T) {
	t.Run("KeepAliveNotLessThanIdle", func(t *testing.T) {
		cfg := DefaultTransportConfig()
		cfg.QUIC.KeepAlivePeriod = cfg.QUIC.MaxIdleTimeout
		assert.Error(t, cfg.Validate())
	})

	t.Run("KeepAliveDisabled", func(t *testing.T) {
		cfg := DefaultTransportConfig()
		cfg.QUIC.KeepAlivePeriod = 0
		assert.NoError(t, cfg.Validate())
	})

	t.Run("ZeroBuffer", func(t *testing.T) {
		cfg := DefaultTransportConfig()
		cfg.StreamWriteBuffer = 0
		assert.Error(t, cfg.Validate())
	})
}

// TestMetricsConfig_Validate 测试指标配置验证
func TestMetricsConfig_Validate(t *testing.T) {
	cfg := DefaultMetricsConfig()
	cfg.Namespace = "bad-name"
	assert.Error(t, cfg.Validate())

	cfg.Enabled = false
	assert.NoError(t, cfg.Validate(), "禁用时不检查命名空间")
}

// TestLogConfig 测试日志配置
func TestLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = LogConfig{Level: "warn", Format: "json"}
	require.NoError(t, cfg.Validate())

	var buf bytes.Buffer
	cfg.Apply(&buf)
	defer func() {
		restore := DefaultLogConfig()
		restore.Apply(os.Stderr)
	}()
	assert.Empty(t, buf.String())
}

// TestFromJSON 测试从 JSON 加载
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"session": {"supported_versions": [4278190082]},
		"transport": {"quic": {"max_idle_timeout": "1m", "keep_alive_period": 5000000000}},
		"log": {"level": "debug"}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, []types.Version{types.VersionDraft02}, cfg.Session.SupportedVersions)
	assert.Equal(t, time.Minute, cfg.Transport.QUIC.MaxIdleTimeout.Duration())
	assert.Equal(t, 5*time.Second, cfg.Transport.QUIC.KeepAlivePeriod.Duration())
	assert.Equal(t, "debug", cfg.Log.Level)

	// 未出现的字段保留默认值
	assert.Equal(t, DefaultTransportConfig().StreamWriteBuffer, cfg.Transport.StreamWriteBuffer)
	assert.NoError(t, cfg.Validate())

	_, err = FromJSON([]byte(`{"transport": {"dial_timeout": "soon"}}`))
	assert.Error(t, err)
}

// TestToJSON_RoundTrip 测试序列化后可重新加载
func TestToJSON_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, ApplyPreset(cfg, "server"))

	data, err := ToJSON(cfg)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.Contains(t, string(data), `"max_idle_timeout": "30s"`)

	loaded, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// TestApplyPreset 测试预设
func TestApplyPreset(t *testing.T) {
	for _, name := range []string{"", "default", "lowlatency", "constrained", "server"} {
		t.Run(name, func(t *testing.T) {
			cfg := NewConfig()
			require.NoError(t, ApplyPreset(cfg, name))
			assert.NoError(t, cfg.Validate())
		})
	}

	assert.Error(t, ApplyPreset(NewConfig(), "mobile"))
	assert.Error(t, ApplyPreset(nil, "server"))
}

// TestValidateAndFix 测试自动修复
func TestValidateAndFix(t *testing.T) {
	cfg := NewConfig()
	cfg.Session.SupportedVersions = nil
	cfg.Transport.QUIC.KeepAlivePeriod = Duration(time.Hour)
	cfg.Transport.EventQueueSize = 0

	fixed, err := ValidateAndFix(cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, fixed.Session.SupportedVersions)
	assert.Less(t, fixed.Transport.QUIC.KeepAlivePeriod, fixed.Transport.QUIC.MaxIdleTimeout)
	assert.Equal(t, DefaultTransportConfig().EventQueueSize, fixed.Transport.EventQueueSize)

	fixed, err = ValidateAndFix(nil)
	require.NoError(t, err)
	assert.NotNil(t, fixed)

	assert.Error(t, ValidateAll(nil))
	assert.Panics(t, func() {
		bad := NewConfig()
		bad.Log.Format = "xml"
		MustValidate(bad)
	})
}

// TestCloneConfig 测试深拷贝
func TestCloneConfig(t *testing.T) {
	cfg := NewConfig()
	cloned := CloneConfig(cfg)
	require.Equal(t, cfg, cloned)

	cloned.Session.SupportedVersions[0] = 99
	assert.NotEqual(t, types.Version(99), cfg.Session.SupportedVersions[0])
	assert.Nil(t, CloneConfig(nil))
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"250ms"`), &d))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`1000000000`), &d))
	assert.Equal(t, time.Second, d.Duration())

	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))
}
