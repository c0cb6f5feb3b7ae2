package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-sessmux/config"
	"github.com/dep2p/go-sessmux/pkg/types"
)

// ============================================================================
// Fx 模块测试
// ============================================================================

// TestModule_Provides 测试模块提供的类型
func TestModule_Provides(t *testing.T) {
	var (
		reporter Reporter
		gatherer prometheus.Gatherer
	)

	app := fxtest.New(t,
		Module,
		fx.Populate(&reporter, &gatherer),
	)
	defer app.RequireStart().RequireStop()

	require.IsType(t, &Collector{}, reporter)
	reporter.SessionOpened(types.PerspectiveServer)

	n, err := testutil.GatherAndCount(gatherer, "sessmux_session_opened_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestModule_Disabled 测试禁用指标
func TestModule_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enabled = false

	var reporter Reporter
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&reporter),
	)
	defer app.RequireStart().RequireStop()

	assert.Equal(t, NoopReporter{}, reporter)
}

// TestModule_Snapshot 测试快照随生命周期启停
func TestModule_Snapshot(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Namespace = "snap"
	cfg.Metrics.SnapshotInterval = config.Duration(time.Hour)

	var reporter Reporter
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&reporter),
	)
	app.RequireStart()
	reporter.SchedulerPop()
	app.RequireStop()
}

// TestConfigFromUnified 测试配置转换
func TestConfigFromUnified(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFromUnified(nil))

	cfg := config.NewConfig()
	cfg.Metrics.EnableBandwidth = false
	got := ConfigFromUnified(cfg)
	assert.True(t, got.Enabled)
	assert.False(t, got.EnableBandwidth)
	assert.Equal(t, "sessmux", got.Namespace)
}
