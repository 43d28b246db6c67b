package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetString(t *testing.T) {
	t.Setenv("WAVELINK_TEST_STR", "value")

	assert.Equal(t, "value", GetString("WAVELINK_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetString("WAVELINK_TEST_STR_UNSET", "fallback"))
}

func TestGetStringFromFile_PrefersSecretFile(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "secret")
	assert.NoError(t, os.WriteFile(secretPath, []byte("from-file\n"), 0o600))

	t.Setenv("WAVELINK_TEST_SECRET_FILE", secretPath)
	t.Setenv("WAVELINK_TEST_SECRET", "from-env")

	assert.Equal(t, "from-file", GetStringFromFile("WAVELINK_TEST_SECRET", ""))
}

func TestGetStringFromFile_FallsBackToEnvOnUnreadableFile(t *testing.T) {
	t.Setenv("WAVELINK_TEST_SECRET_FILE", filepath.Join(t.TempDir(), "missing"))
	t.Setenv("WAVELINK_TEST_SECRET", "from-env")

	assert.Equal(t, "from-env", GetStringFromFile("WAVELINK_TEST_SECRET", ""))
}

func TestGetInt(t *testing.T) {
	t.Setenv("WAVELINK_TEST_INT", "8084")
	t.Setenv("WAVELINK_TEST_INT_BAD", "many")

	assert.Equal(t, 8084, GetInt("WAVELINK_TEST_INT", 1))
	assert.Equal(t, 1, GetInt("WAVELINK_TEST_INT_BAD", 1))
	assert.Equal(t, 1, GetInt("WAVELINK_TEST_INT_UNSET", 1))
}

func TestGetBool(t *testing.T) {
	t.Setenv("WAVELINK_TEST_BOOL", "true")
	t.Setenv("WAVELINK_TEST_BOOL_BAD", "yep")

	assert.True(t, GetBool("WAVELINK_TEST_BOOL", false))
	assert.False(t, GetBool("WAVELINK_TEST_BOOL_BAD", false))
	assert.True(t, GetBool("WAVELINK_TEST_BOOL_UNSET", true))
}
