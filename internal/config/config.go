package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Bot     BotConfig
	Journal JournalConfig
	Keys    APIKeys
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	GatewayLogFilePath string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type BotConfig struct {
	// OwnerID is the privileged identity allowed to run commands.
	OwnerID string

	WakePhrase       string
	WakeTimeoutSecs  int
	CommandPrefix    string
	CommitCodePrefix string

	// RequirePassphrase asks for the deploy-key passphrase after a valid
	// commit code. Only meaningful when AllowPush is also set.
	RequirePassphrase bool
	AllowPush         bool

	SyncBranch string
}

type JournalConfig struct {
	RepoRoot       string
	DataPath       string
	PlaintextPath  string
	StatesPath     string
	CircumplexPath string
	KeyPath        string
	KeyEnvVar      string
	KeyLabel       string
	PushRemote     string
	PushBranch     string
}

type APIKeys struct {
	JWTSecret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			GatewayLogFilePath: getEnv("GATEWAY_LOG_FILE_PATH", "gateway.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Bot: BotConfig{
			OwnerID:           getEnv("GRACE_OWNER_ID", ""),
			WakePhrase:        getEnv("GRACE_WAKE_PHRASE", "hola grace"),
			WakeTimeoutSecs:   getEnvAsInt("GRACE_WAKE_TIMEOUT_SECONDS", 900),
			CommandPrefix:     getEnv("GRACE_COMMAND_PREFIX", "!"),
			CommitCodePrefix:  getEnv("GRACE_COMMIT_CODE_PREFIX", "grace-"),
			RequirePassphrase: getEnvAsBool("GRACE_REQUIRE_PASSPHRASE", false),
			AllowPush:         getEnvAsBool("GRACE_ALLOW_PUSH", false),
			SyncBranch:        getEnv("GRACE_SYNC_BRANCH", "prepare-to-collaborate"),
		},
		Journal: JournalConfig{
			RepoRoot:       getEnv("GRACE_REPO_ROOT", "."),
			DataPath:       getEnv("GRACE_DATA_PATH", "data_encr/registro_encr.jsonl"),
			PlaintextPath:  getEnv("GRACE_PLAINTEXT_PATH", ""),
			StatesPath:     getEnv("GRACE_STATES_PATH", "config/estados_grace.json"),
			CircumplexPath: getEnv("GRACE_CIRCUMPLEX_PATH", "config/circumplex_map.json"),
			KeyPath:        getEnv("GRACE_KEY_PATH", "config/secrets/journal.key"),
			KeyEnvVar:      getEnv("GRACE_KEY_ENV_VAR", "GRACE_JOURNAL_KEY"),
			KeyLabel:       getEnv("GRACE_KEY_LABEL", "primary"),
			PushRemote:     getEnv("GRACE_GIT_REMOTE", "origin"),
			PushBranch:     getEnv("GRACE_GIT_BRANCH", ""),
		},
		Keys: APIKeys{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
