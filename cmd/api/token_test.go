package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/brainscan/internal/middleware"
)

func TestTokenCmd(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--user", "u1", "--email", "alice@example.com", "--first-name", "Alice"})
	require.NoError(t, cmd.Execute())

	owner, err := middleware.ParseToken(strings.TrimSpace(out.String()), []byte("cli-secret"))
	require.NoError(t, err)
	assert.Equal(t, "u1", owner.ID)
	assert.Equal(t, "alice@example.com", owner.Email)
	assert.Equal(t, "Alice", owner.FirstName)
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"token", "--config", filepath.Join(t.TempDir(), "none.yaml"), "--user", "u1"})
	assert.Error(t, cmd.Execute())
}

func TestMigrateCmd_MemoryDriver(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "none.yaml")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to migrate")
}
