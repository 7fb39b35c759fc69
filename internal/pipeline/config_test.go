package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whale-index-lab/internal/rolling"
)

func TestDefault_Validates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParseYAML_OverlaysDefaults(t *testing.T) {
	data := []byte(`
activity:
  history_window: 90
  baseline_kind: exponential
backtest:
  horizon: 14
analysis:
  regime:
    k: 3
`)
	cfg, err := ParseYAML(data)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, 90, cfg.Activity.HistoryWindow)
	assert.Equal(t, rolling.BaselineExponential, cfg.Activity.BaselineKind)
	assert.Equal(t, def.Activity.BaselineWindow, cfg.Activity.BaselineWindow)
	assert.Equal(t, 14, cfg.Backtest.Horizon)
	assert.Equal(t, def.Backtest.AnnualizationFactor, cfg.Backtest.AnnualizationFactor)
	assert.Equal(t, 3, cfg.Analysis.Regime.K)
	assert.Equal(t, def.Analysis.Regime.MaxIterations, cfg.Analysis.Regime.MaxIterations)
	assert.Equal(t, def.Intent, cfg.Intent)
}

func TestParseYAML_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "activity: [unclosed"},
		{"bad baseline kind", "activity:\n  baseline_kind: mode\n"},
		{"weights do not sum", "signals:\n  tx_weight: 0.9\n"},
		{"zero horizon", "backtest:\n  horizon: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	cfg, err := LoadYAML("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("intent:\n  smoothing_span: 3\n"), 0o600))

	cfg, err = LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Intent.SmoothingSpan)

	_, err = LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Analysis.LeadLag.MaxLag = 10

	data, err := cfg.YAML()
	require.NoError(t, err)

	parsed, err := ParseYAML(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}
