package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_FALLBACK_MODELS", "gemini-2.0-flash")
	cfg := Load()

	assert.Equal(t, 180*time.Second, cfg.Summary.LeaseTTL)
	assert.Equal(t, 90000, cfg.Summary.MaxAnswerChars)
	assert.Equal(t, "aligna_pro", cfg.Summary.EntitlementId)
	assert.Equal(t, "lifetime_unlock", cfg.Summary.PurchaseType)
	assert.Equal(t, 0.4, cfg.Ai.Temperature)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SUMMARY_LEASE_TTL", "90")
	t.Setenv("SUMMARY_CACHE_TTL", "2h")
	t.Setenv("SUMMARY_LEASE_STORE", "memory")
	t.Setenv("GEMINI_FALLBACK_MODELS", " a , ,b ")
	t.Setenv("LLM_TEMPERATURE", "0.7")

	cfg := Load()
	assert.Equal(t, 90*time.Second, cfg.Summary.LeaseTTL)
	assert.Equal(t, 2*time.Hour, cfg.Summary.CacheTTL)
	assert.Equal(t, "memory", cfg.Summary.LeaseStore)
	assert.Equal(t, []string{"a", "b"}, cfg.Ai.FallbackModels)
	assert.Equal(t, 0.7, cfg.Ai.Temperature)
}

func TestModels_DedupesInOrder(t *testing.T) {
	c := AIConfig{PrimaryModel: "m1", FallbackModels: []string{"m2", "m1", "", "m3", "m2"}}
	assert.Equal(t, []string{"m1", "m2", "m3"}, c.Models())

	c = AIConfig{FallbackModels: []string{"m2"}}
	assert.Equal(t, []string{"m2"}, c.Models())
}
