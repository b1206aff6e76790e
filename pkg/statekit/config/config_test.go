package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_NilMap(t *testing.T) {
	cfg := New(nil)
	assert.False(t, cfg.Has("anything"))
	assert.Equal(t, "fallback", cfg.String("anything", "fallback"))
}

func TestConfig_String(t *testing.T) {
	cfg := New(map[string]any{
		"name":  "primary",
		"count": 3,
	})

	assert.Equal(t, "primary", cfg.String("name", "d"))
	assert.Equal(t, "d", cfg.String("missing", "d"))
	assert.Equal(t, "d", cfg.String("count", "d"), "wrong type falls back")
}

func TestConfig_Bool(t *testing.T) {
	cfg := New(map[string]any{
		"metrics": true,
		"name":    "x",
	})

	assert.True(t, cfg.Bool("metrics", false))
	assert.False(t, cfg.Bool("missing", false))
	assert.True(t, cfg.Bool("name", true), "wrong type falls back")
}

func TestConfig_Int(t *testing.T) {
	cfg := New(map[string]any{
		"rounds":     50,
		"big":        int64(7),
		"from_json":  float64(25),
		"fractional": 2.5,
		"name":       "x",
	})

	assert.Equal(t, 50, cfg.Int("rounds", 1))
	assert.Equal(t, 7, cfg.Int("big", 1))
	assert.Equal(t, 25, cfg.Int("from_json", 1), "whole float converts")
	assert.Equal(t, 1, cfg.Int("fractional", 1), "fractional float falls back")
	assert.Equal(t, 1, cfg.Int("name", 1))
	assert.Equal(t, 1, cfg.Int("missing", 1))
}

func TestConfig_Duration(t *testing.T) {
	cfg := New(map[string]any{
		"timeout":  "1m30s",
		"interval": 10,
		"rate":     2.5,
		"native":   5 * time.Second,
		"bad":      "not-a-duration",
	})

	assert.Equal(t, 90*time.Second, cfg.Duration("timeout", time.Second))
	assert.Equal(t, 10*time.Second, cfg.Duration("interval", time.Second))
	assert.Equal(t, 2500*time.Millisecond, cfg.Duration("rate", time.Second))
	assert.Equal(t, 5*time.Second, cfg.Duration("native", time.Second))
	assert.Equal(t, time.Second, cfg.Duration("bad", time.Second))
	assert.Equal(t, time.Second, cfg.Duration("missing", time.Second))
}

func TestConfig_Has(t *testing.T) {
	cfg := New(map[string]any{"present": nil})
	assert.True(t, cfg.Has("present"))
	assert.False(t, cfg.Has("absent"))
}
