package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := parse(nil, envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "ledger.db", cfg.DatabasePath)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.False(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.CORSOrigins)
	assert.Equal(t, int64(50), cfg.LowStockThreshold)
	assert.False(t, cfg.SeedDemo)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestParse_EnvThenFlags(t *testing.T) {
	// GIVEN: Environment settings
	env := envOf(map[string]string{
		"PORT":                "9000",
		"DATABASE_PATH":       ":memory:",
		"APP_ENV":             "development",
		"CORS_ORIGINS":        "https://office.example.com, http://localhost:5173 ,",
		"LOW_STOCK_THRESHOLD": "20",
		"SEED_DEMO":           "true",
	})

	// WHEN: Only the port flag is given
	cfg, err := parse([]string{"-port", "9100"}, env)
	require.NoError(t, err)

	// THEN: The flag wins, the rest comes from the environment
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DatabasePath)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://office.example.com", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, int64(20), cfg.LowStockThreshold)
	assert.True(t, cfg.SeedDemo)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"port not a number", nil, map[string]string{"PORT": "http"}},
		{"port out of range", []string{"-port", "70000"}, nil},
		{"unknown env", []string{"-env", "staging"}, nil},
		{"negative threshold", []string{"-low-stock", "-1"}, nil},
		{"bad bool", nil, map[string]string{"SEED_DEMO": "maybe"}},
		{"unknown flag", []string{"-verbose"}, nil},
		{"empty db", []string{"-db", ""}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(tt.args, envOf(tt.env))
			assert.Error(t, err)
		})
	}
}
