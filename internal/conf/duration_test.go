package conf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_MarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration Duration
		expected string
	}{
		{"zero", Duration(0), `"0s"`},
		{"30 seconds", Duration(30 * time.Second), `"30s"`},
		{"5 minutes", Duration(5 * time.Minute), `"5m0s"`},
		{"1 hour", Duration(time.Hour), `"1h0m0s"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := json.Marshal(tt.duration)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(b))
		})
	}
}

func TestDuration_UnmarshalJSON_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected Duration
	}{
		{"30s string", `"30s"`, Duration(30 * time.Second)},
		{"5m string", `"5m"`, Duration(5 * time.Minute)},
		{"1h string", `"1h"`, Duration(time.Hour)},
		{"complex", `"1h30m10s"`, Duration(time.Hour + 30*time.Minute + 10*time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestDuration_UnmarshalJSON_Number(t *testing.T) {
	t.Parallel()

	// Backward compat: numbers are nanoseconds
	var d Duration
	err := json.Unmarshal([]byte(`30000000000`), &d)
	require.NoError(t, err)
	assert.Equal(t, Duration(30*time.Second), d)
}

func TestDuration_UnmarshalJSON_Null(t *testing.T) {
	t.Parallel()

	d := Duration(30 * time.Second)
	err := json.Unmarshal([]byte(`null`), &d)
	require.NoError(t, err)
	assert.Equal(t, Duration(0), d)
}

func TestDuration_UnmarshalJSON_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"invalid string", `"notaduration"`},
		{"boolean", `true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			assert.Error(t, err)
		})
	}
}

func TestDuration_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	// Durations round-trip through the admin API as JSON maps; make sure
	// the value survives intact instead of degrading to nanoseconds.
	type Config struct {
		Timeout Duration `json:"timeout"`
	}

	original := Config{Timeout: Duration(30 * time.Second)}

	b, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"30s"`)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))

	b2, err := json.Marshal(m)
	require.NoError(t, err)

	var result Config
	require.NoError(t, json.Unmarshal(b2, &result))
	assert.Equal(t, original.Timeout, result.Timeout, "duration should survive JSON round-trip through map")
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	t.Parallel()

	type Config struct {
		Timeout Duration `yaml:"timeout"`
	}

	original := Config{Timeout: Duration(30 * time.Second)}

	b, err := yaml.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(b), "30s")

	var result Config
	require.NoError(t, yaml.Unmarshal(b, &result))
	assert.Equal(t, original.Timeout, result.Timeout, "duration should survive YAML round-trip")
}

func TestDuration_YAMLInvalid(t *testing.T) {
	t.Parallel()

	type Config struct {
		Timeout Duration `yaml:"timeout"`
	}

	var result Config
	err := yaml.Unmarshal([]byte("timeout: notaduration"), &result)
	assert.Error(t, err)
}

func TestDuration_Std(t *testing.T) {
	t.Parallel()

	d := Duration(30 * time.Second)
	assert.Equal(t, 30*time.Second, d.Std())
}
