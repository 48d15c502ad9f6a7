package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoolEnv(t *testing.T) {
	t.Setenv("SEED_FLAG", "yes")
	require.True(t, boolEnv("SEED_FLAG", false))
	t.Setenv("SEED_FLAG", "garbage")
	require.True(t, boolEnv("SEED_FLAG", true))
	t.Setenv("SEED_FLAG", "")
	require.False(t, boolEnv("SEED_FLAG", false))
}

func TestStrEnv(t *testing.T) {
	t.Setenv("SEED_NAME", "  ")
	require.Equal(t, "def", strEnv("SEED_NAME", "def"))
	t.Setenv("SEED_NAME", "admin")
	require.Equal(t, "admin", strEnv("SEED_NAME", "def"))
}
