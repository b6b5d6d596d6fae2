package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantBase   Level
		wantComps  map[string]Level
		errContain string
	}{
		{name: "empty defaults to info", input: "", wantBase: LevelInfo},
		{name: "base only", input: "debug", wantBase: LevelDebug},
		{
			name:      "overrides",
			input:     "warn,factory=debug,group=trace",
			wantBase:  LevelWarn,
			wantComps: map[string]Level{"factory": LevelDebug, "group": LevelTrace},
		},
		{
			name:      "whitespace and empty parts",
			input:     " info ,, server = debug , ",
			wantBase:  LevelInfo,
			wantComps: map[string]Level{"server": LevelDebug},
		},
		{
			name:      "override without base",
			input:     "engine=warn",
			wantBase:  LevelInfo,
			wantComps: map[string]Level{"engine": LevelWarn},
		},
		{name: "aliases", input: "warning,store=err", wantBase: LevelWarn, wantComps: map[string]Level{"store": LevelError}},
		{name: "bad base", input: "loud", errContain: "unknown log level"},
		{name: "bad override", input: "info,factory=loud", errContain: "invalid level for component"},
		{name: "base not first", input: "factory=debug,info", errContain: "must be first"},
		{name: "empty component", input: "info,=debug", errContain: "empty component name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpec(tt.input)
			if tt.errContain != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContain)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, got.Base)
			if tt.wantComps == nil {
				assert.Empty(t, got.Components)
			} else {
				assert.Equal(t, tt.wantComps, got.Components)
			}
		})
	}
}

func TestSpecLevelFor(t *testing.T) {
	spec := Spec{Base: LevelWarn, Components: map[string]Level{"factory": LevelDebug}}

	assert.Equal(t, LevelDebug, spec.LevelFor("factory"))
	assert.Equal(t, LevelWarn, spec.LevelFor("group"))
	assert.Equal(t, LevelWarn, spec.LevelFor(""))
}

func TestSpecStringRoundTrips(t *testing.T) {
	spec, err := ParseSpec("error,server=info,factory=trace")
	require.NoError(t, err)
	assert.Equal(t, "error,factory=trace,server=info", spec.String())

	again, err := ParseSpec(spec.String())
	require.NoError(t, err)
	assert.Equal(t, spec, again)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "trace", LevelTrace.String())
	assert.Equal(t, "Level(3)", Level(3).String())
}
