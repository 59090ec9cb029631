package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scitune/adapter"
	"github.com/YuminosukeSato/scitune/metrics"
	"github.com/YuminosukeSato/scitune/pkg/errors"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		env   map[string]string
		check func(t *testing.T, cfg config)
	}{
		{
			name: "defaults",
			args: []string{"-synthetic", "200"},
			check: func(t *testing.T, cfg config) {
				assert.Equal(t, 200, cfg.synthetic)
				assert.Equal(t, "q_mean", cfg.target)
				assert.Equal(t, adapter.BoostedTreesName, cfg.family)
				assert.Equal(t, []string{"gauge_id"}, cfg.drop)
				assert.False(t, cfg.dropSet)
				assert.Equal(t, []string{"rmse", "r_squared", "mae"}, cfg.metrics)
				assert.Equal(t, metrics.Minimize, cfg.direction)
				assert.Equal(t, 10, cfg.folds)
				assert.Equal(t, 25, cfg.candidates)
				assert.InDelta(t, 0.8, cfg.trainFraction, 1e-12)
			},
		},
		{
			name: "environment fallback",
			args: nil,
			env: map[string]string{
				"SCITUNE_INPUT":     "basins.csv",
				"SCITUNE_FOLDS":     "5",
				"SCITUNE_COMPARE":   "true",
				"SCITUNE_DIRECTION": "max",
				"SCITUNE_SELECT":    "r_squared",
			},
			check: func(t *testing.T, cfg config) {
				assert.Equal(t, "basins.csv", cfg.input)
				assert.Equal(t, 5, cfg.folds)
				assert.True(t, cfg.compare)
				assert.Equal(t, metrics.Maximize, cfg.direction)
				assert.Equal(t, "r_squared", cfg.selection)
				assert.False(t, cfg.dropSet)
			},
		},
		{
			name: "flag overrides environment",
			args: []string{"-input", "other.csv", "-folds", "3", "-metrics", " mae , rmse ,"},
			env:  map[string]string{"SCITUNE_INPUT": "basins.csv", "SCITUNE_FOLDS": "5"},
			check: func(t *testing.T, cfg config) {
				assert.Equal(t, "other.csv", cfg.input)
				assert.Equal(t, 3, cfg.folds)
				assert.Equal(t, []string{"mae", "rmse"}, cfg.metrics)
			},
		},
		{
			name: "drop from flag",
			args: []string{"-synthetic", "10", "-drop", "gauge_id,geology"},
			check: func(t *testing.T, cfg config) {
				assert.Equal(t, []string{"gauge_id", "geology"}, cfg.drop)
				assert.True(t, cfg.dropSet)
			},
		},
		{
			name: "drop from environment",
			args: []string{"-synthetic", "10"},
			env:  map[string]string{"SCITUNE_DROP": "geology"},
			check: func(t *testing.T, cfg config) {
				assert.Equal(t, []string{"geology"}, cfg.drop)
				assert.True(t, cfg.dropSet)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseConfig(tt.args, envOf(tt.env), io.Discard)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		env   map[string]string
		param string
	}{
		{name: "no input", args: nil, param: "input"},
		{name: "both inputs", args: []string{"-input", "a.csv", "-synthetic", "10"}, param: "input"},
		{name: "malformed env", args: []string{"-synthetic", "10"}, env: map[string]string{"SCITUNE_FOLDS": "ten"}, param: "SCITUNE_FOLDS"},
		{name: "bad direction", args: []string{"-synthetic", "10", "-direction", "sideways"}, param: "direction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(tt.args, envOf(tt.env), io.Discard)
			require.Error(t, err)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}
}

func TestParseConfigHelp(t *testing.T) {
	var out bytes.Buffer
	_, err := parseConfig([]string{"-h"}, envOf(nil), &out)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out.String(), "usage: scitune")
}

func smallConfig(t *testing.T) config {
	t.Helper()
	cfg, err := parseConfig([]string{
		"-synthetic", "150",
		"-family", adapter.BoostedTreesName,
		"-trees", "5",
		"-folds", "3",
		"-candidates", "2",
		"-workers", "2",
		"-top", "1",
	}, envOf(nil), io.Discard)
	require.NoError(t, err)
	return cfg
}

func TestRun(t *testing.T) {
	cfg := smallConfig(t)
	cfg.compare = true
	cfg.residuals = filepath.Join(t.TempDir(), "residuals.csv")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out))

	text := out.String()
	assert.Contains(t, text, "Model families")
	assert.Contains(t, text, adapter.LinearName)
	assert.Contains(t, text, adapter.RandomForestName)
	assert.Contains(t, text, "Selected configuration")
	assert.Contains(t, text, "Test set")
	assert.Contains(t, text, "dropped: gauge_id")

	f, err := os.Open(cfg.residuals)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 151)
	header := records[0]
	assert.Equal(t, "row", header[0])
	assert.Equal(t, []string{"predicted", "actual", "residual"}, header[len(header)-3:])
	assert.Contains(t, header, "gauge_id")
}

func TestRunResidualsToStdout(t *testing.T) {
	cfg := smallConfig(t)
	cfg.family = adapter.LinearName
	cfg.residuals = "-"

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out))
	assert.Contains(t, out.String(), "row,")
}

func TestRunUnknownFamily(t *testing.T) {
	cfg := smallConfig(t)
	cfg.family = "svm"

	err := run(context.Background(), cfg, io.Discard)
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestRunDropColumns(t *testing.T) {
	t.Run("default list skips absent columns", func(t *testing.T) {
		cfg := smallConfig(t)
		cfg.family = adapter.LinearName
		cfg.drop = []string{"gauge_id", "basin_name"}

		var out bytes.Buffer
		require.NoError(t, run(context.Background(), cfg, &out))
		assert.Contains(t, out.String(), "dropped: gauge_id\n")
	})

	t.Run("explicit list rejects absent columns", func(t *testing.T) {
		cfg := smallConfig(t)
		cfg.family = adapter.LinearName
		cfg.drop = []string{"gauge_id", "basin_name"}
		cfg.dropSet = true

		err := run(context.Background(), cfg, io.Discard)
		var uc *errors.UnknownColumnError
		require.True(t, errors.As(err, &uc), "got %v", err)
		assert.Equal(t, "basin_name", uc.Column)
	})
}

func TestRunMissingFile(t *testing.T) {
	cfg := smallConfig(t)
	cfg.synthetic = 0
	cfg.input = filepath.Join(t.TempDir(), "missing.csv")

	assert.Error(t, run(context.Background(), cfg, io.Discard))
}
