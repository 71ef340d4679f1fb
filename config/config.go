package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ServerAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Platform resolver credentials. Missing credentials degrade the
	// matching resolver to a resolution failure, never a crash.
	YouTubeAPIKey       string
	SpotifyClientID     string
	SpotifyClientSecret string

	// JWT auth
	JWTSecret string
	TokenTTL  time.Duration

	// Playback synchronization tuning
	SyncInterval    time.Duration // client drift-check period
	DriftThreshold  time.Duration // tolerated drift before corrective seek
	SeekDebounce    time.Duration // scrub coalescing window
	SessionCacheTTL time.Duration // redis session state TTL

	// MinIO object storage for uploaded audio
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	// Local drop directory watched for new uploads; empty disables the
	// watcher.
	DropDir string

	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvMs reads a duration expressed as milliseconds.
func getEnvMs(key string, fallback time.Duration) time.Duration {
	ms := getEnvInt(key, int(fallback.Milliseconds()))
	return time.Duration(ms) * time.Millisecond
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // For password, better not to have a hardcoded default
		DBName:     getEnv("DB_NAME", "jamfm"),

		// Redis配置，使用默认值
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		YouTubeAPIKey:       os.Getenv("YOUTUBE_API_KEY"),
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:  time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,

		SyncInterval:    getEnvMs("SYNC_INTERVAL_MS", 5*time.Second),
		DriftThreshold:  getEnvMs("DRIFT_THRESHOLD_MS", 500*time.Millisecond),
		SeekDebounce:    getEnvMs("SEEK_DEBOUNCE_MS", 500*time.Millisecond),
		SessionCacheTTL: getEnvMs("SESSION_CACHE_TTL_MS", 30*time.Second),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "jamfm"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioPublicURL: getEnv("MINIO_PUBLIC_URL", ""),

		DropDir: os.Getenv("UPLOAD_DROP_DIR"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", "logs/jamfm.log"),
	}
}
