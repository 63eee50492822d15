package bot

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// MaxMessageLength is the outbound Telegram message size ceiling.
	MaxMessageLength = 4000

	// MaxDownloadSize caps files sent back through /download.
	MaxDownloadSize = 20 * 1024 * 1024

	// DefaultUploadDir receives uploaded files when no path is given.
	DefaultUploadDir = "/tmp/bot_uploads"
)

// Config holds bot configuration.
type Config struct {
	Token     string
	AdminIDs  []int64
	UploadDir string
}

// LoadConfigFromEnv loads configuration from environment variables. Both the
// token and the admin allow-list are required; the process must not serve any
// updates without them.
func LoadConfigFromEnv() (Config, error) {
	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return Config{}, fmt.Errorf("BOT_TOKEN not set")
	}

	var ids []int64
	for _, part := range strings.Split(os.Getenv("ADMIN_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ADMIN_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return Config{}, fmt.Errorf("ADMIN_IDS not set")
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = DefaultUploadDir
	}

	return Config{
		Token:     token,
		AdminIDs:  ids,
		UploadDir: uploadDir,
	}, nil
}
