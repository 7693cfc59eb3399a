package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Бот и чат модерации.
	BotToken         string
	BotAPIBaseURL    string
	ModerationChatID int64

	// Главный админ и стартовые настройки турнира.
	PrimaryAdminID      int64
	DefaultMaxTeams     int
	DefaultTeamSize     int
	SubscriptionChannel string

	// bcrypt-хеш API-ключа для входа в админ-панель.
	AdminAPIKeyHash string

	// Cloudflare R2 (опционально, для выгрузки снапшотов сетки).
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURLPrefix string
}

// R2Configured reports whether snapshot export to object storage is enabled.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable is not set")
	}

	apiKeyHash := os.Getenv("ADMIN_API_KEY_HASH")
	if apiKeyHash == "" {
		return nil, fmt.Errorf("ADMIN_API_KEY_HASH environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	moderationChatID, err := int64Env("MODERATION_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}
	if moderationChatID == 0 {
		return nil, fmt.Errorf("MODERATION_CHAT_ID environment variable is not set")
	}

	primaryAdminID, err := int64Env("PRIMARY_ADMIN_ID", 0)
	if err != nil {
		return nil, err
	}
	if primaryAdminID == 0 {
		return nil, fmt.Errorf("PRIMARY_ADMIN_ID environment variable is not set")
	}

	maxTeams, err := intEnv("DEFAULT_MAX_TEAMS", 16)
	if err != nil {
		return nil, err
	}
	if maxTeams < 2 {
		return nil, fmt.Errorf("DEFAULT_MAX_TEAMS must be at least 2, got %d", maxTeams)
	}

	teamSize, err := intEnv("DEFAULT_TEAM_SIZE", 5)
	if err != nil {
		return nil, err
	}
	if teamSize < 1 {
		return nil, fmt.Errorf("DEFAULT_TEAM_SIZE must be at least 1, got %d", teamSize)
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		JWTSecretKey: jwtKey,
		ServerPort:   port,

		BotToken:         botToken,
		BotAPIBaseURL:    os.Getenv("BOT_API_BASE_URL"),
		ModerationChatID: moderationChatID,

		PrimaryAdminID:      primaryAdminID,
		DefaultMaxTeams:     maxTeams,
		DefaultTeamSize:     teamSize,
		SubscriptionChannel: os.Getenv("SUBSCRIPTION_CHANNEL"),

		AdminAPIKeyHash: apiKeyHash,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURLPrefix: os.Getenv("R2_PUBLIC_URL_PREFIX"),
	}

	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func int64Env(name string, fallback int64) (int64, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}
