package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv_PrefersLoadedFile(t *testing.T) {
	Env = map[string]string{"TRASHMAP_TEST_KEY": "from-file"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("TRASHMAP_TEST_KEY", "from-os")

	assert.Equal(t, "from-file", GetEnv("TRASHMAP_TEST_KEY", "def"))
}

func TestGetEnv_FallsBackToOSThenDefault(t *testing.T) {
	Env = map[string]string{}
	t.Cleanup(func() { Env = nil })

	t.Setenv("TRASHMAP_TEST_OS", "os-value")
	assert.Equal(t, "os-value", GetEnv("TRASHMAP_TEST_OS", "def"))
	assert.Equal(t, "def", GetEnv("TRASHMAP_TEST_MISSING", "def"))
}

func TestTypedGetters(t *testing.T) {
	Env = map[string]string{
		"T_BOOL":     "true",
		"T_INT":      "42",
		"T_DURATION": "1500ms",
		"T_BAD_INT":  "many",
	}
	t.Cleanup(func() { Env = nil })

	assert.True(t, GetBool("T_BOOL", false))
	assert.False(t, GetBool("T_MISSING", false))
	assert.Equal(t, 42, GetInt("T_INT", 1))
	assert.Equal(t, 7, GetInt("T_BAD_INT", 7))
	assert.Equal(t, 1500*time.Millisecond, GetDuration("T_DURATION", time.Second))
	assert.Equal(t, time.Second, GetDuration("T_MISSING", time.Second))
}
