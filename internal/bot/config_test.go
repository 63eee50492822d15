package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token123")
	t.Setenv("ADMIN_IDS", "42, 1001")
	t.Setenv("UPLOAD_DIR", "")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "token123", cfg.Token)
	assert.Equal(t, []int64{42, 1001}, cfg.AdminIDs)
	assert.Equal(t, DefaultUploadDir, cfg.UploadDir)
}

func TestLoadConfigFromEnvUploadDirOverride(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token123")
	t.Setenv("ADMIN_IDS", "42")
	t.Setenv("UPLOAD_DIR", "/srv/uploads")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/srv/uploads", cfg.UploadDir)
}

func TestLoadConfigFromEnvMissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMIN_IDS", "42")

	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}

func TestLoadConfigFromEnvMissingAdmins(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token123")
	t.Setenv("ADMIN_IDS", "")

	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}

func TestLoadConfigFromEnvInvalidAdminID(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token123")
	t.Setenv("ADMIN_IDS", "42,abc")

	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}
