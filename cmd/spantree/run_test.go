package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/spantree"
)

const wantISO = `[
  {
    "Method": "RootMethod",
    "Duration": "PT5S",
    "Children": [
      {
        "Method": "Method1",
        "Duration": "PT2.5S"
      },
      {
        "Method": "Method2",
        "Duration": "PT2.5S"
      }
    ]
  }
]
`

func simulated(source string) config {
	return config{
		Delay:    2500 * time.Millisecond,
		Format:   "iso8601",
		Lookup:   "indexed",
		Source:   source,
		LogLevel: "warn",
		Simulate: true,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunSources(t *testing.T) {
	for _, source := range []string{"native", "otel"} {
		t.Run(source, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, run(context.Background(), simulated(source), &out, discard()))
			assert.Equal(t, wantISO, out.String())
		})
	}
}

func TestRunTimeSpanFormat(t *testing.T) {
	cfg := simulated("native")
	cfg.Format = "timespan"

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out, discard()))
	assert.Contains(t, out.String(), `"Duration": "00:00:05"`)
	assert.Contains(t, out.String(), `"Duration": "00:00:02.5000000"`)
}

func TestRunRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config)
	}{
		{"format", func(c *config) { c.Format = "rfc3339" }},
		{"lookup", func(c *config) { c.Lookup = "deep" }},
		{"source", func(c *config) { c.Source = "zipkin" }},
		{"delay", func(c *config) { c.Delay = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := simulated("native")
			tc.mutate(&cfg)
			err := run(context.Background(), cfg, &bytes.Buffer{}, discard())
			assert.True(t, errors.Is(err, spantree.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := simulated("native")
	cfg.Simulate = false
	cfg.Delay = time.Hour

	err := run(ctx, cfg, &bytes.Buffer{}, discard())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd(simulated("native"))
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--source", "otel", "--delay", "1s", "--log-level", "info"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"Duration": "PT2S"`)
	assert.Contains(t, out.String(), `"Duration": "PT1S"`)
	assert.Contains(t, errOut.String(), "forest built")
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SPANTREE_DELAY", "10ms")
	t.Setenv("SPANTREE_FORMAT", "timespan")
	t.Setenv("SPANTREE_SIMULATE", "true")
	t.Setenv("SPANTREE_LOOKUP", "")

	cfg := loadConfig()
	assert.Equal(t, 10*time.Millisecond, cfg.Delay)
	assert.Equal(t, "timespan", cfg.Format)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, "indexed", cfg.Lookup)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	assert.Equal(t, slog.LevelWarn, parseLevel("loud"))
	assert.True(t, strings.EqualFold(parseLevel("info").String(), "info"))
}
