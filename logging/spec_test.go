package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnetworks/swapd/logging"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantBase logging.Level
		wantComp map[string]logging.Level
		wantErr  string
	}{
		{
			name:     "empty defaults to info",
			input:    "",
			wantBase: logging.LevelInfo,
		},
		{
			name:     "bare base level",
			input:    "debug",
			wantBase: logging.LevelDebug,
		},
		{
			name:     "base with one override",
			input:    "warn,xconnect=debug",
			wantBase: logging.LevelWarn,
			wantComp: map[string]logging.Level{"xconnect": logging.LevelDebug},
		},
		{
			name:     "multiple overrides",
			input:    "info,egress=trace,sqlite=debug",
			wantBase: logging.LevelInfo,
			wantComp: map[string]logging.Level{
				"egress": logging.LevelTrace,
				"sqlite": logging.LevelDebug,
			},
		},
		{
			name:     "overrides only",
			input:    "node=debug",
			wantBase: logging.LevelInfo,
			wantComp: map[string]logging.Level{"node": logging.LevelDebug},
		},
		{
			name:    "base level not first",
			input:   "xconnect=debug,warn",
			wantErr: "must be first",
		},
		{
			name:    "unknown level",
			input:   "verbose",
			wantErr: "unknown log level",
		},
		{
			name:    "unknown component level",
			input:   "info,egress=loud",
			wantErr: "invalid level for component",
		},
		{
			name:    "empty component name",
			input:   "info,=debug",
			wantErr: "empty component name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := logging.ParseSpec(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, spec.BaseLevel)
			for component, level := range tt.wantComp {
				assert.Equal(t, level, spec.LevelFor(component), "component %s", component)
			}
		})
	}
}

func TestLevelFor_FallsBackToBase(t *testing.T) {
	spec, err := logging.ParseSpec("warn,egress=debug")
	require.NoError(t, err)

	assert.Equal(t, logging.LevelDebug, spec.LevelFor("egress"))
	assert.Equal(t, logging.LevelWarn, spec.LevelFor("node"))
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]logging.Level{
		"trace":   logging.LevelTrace,
		"debug":   logging.LevelDebug,
		"info":    logging.LevelInfo,
		"warn":    logging.LevelWarn,
		"warning": logging.LevelWarn,
		"error":   logging.LevelError,
		"ERR":     logging.LevelError,
	} {
		got, err := logging.ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := logging.ParseLevel("loud")
	assert.Error(t, err)
}

func TestSpecRoundTrip(t *testing.T) {
	spec, err := logging.ParseSpec("warn,egress=trace")
	require.NoError(t, err)

	reparsed, err := logging.ParseSpec(spec.String())
	require.NoError(t, err)
	assert.Equal(t, spec, reparsed)
}
