package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Facebook struct {
	AppID           string
	AppSecret       string
	RedirectURI     string
	PageID          string
	PageAccessToken string
	GraphURL        string
	GraphVersion    string
}

type Config struct {
	Port           string
	PublicURL      string
	FrontendURL    string
	DataDir        string
	InboxDir       string
	DataFile       string
	Facebook       Facebook
	PublishTimeout time.Duration
	SyncInterval   string
	RedisURI       string
	PostgresURI    string
	R2             R2
	SecretKey      string
	CookieName     string
	RequireAuth    bool
	LogLevel       string
}

func LoadConfig() *Config {
	dataDir := getEnv("DATA_DIR", "posts-management")
	port := getEnv("PORT", "3000")

	return &Config{
		Port:        port,
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:"+port),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		DataDir:     dataDir,
		InboxDir:    getEnv("INBOX_DIR", "posts"),
		DataFile:    getEnv("DATA_FILE", filepath.Join("data", "posts.json")),
		Facebook: Facebook{
			AppID:           getEnv("FACEBOOK_APP_ID", ""),
			AppSecret:       getEnv("FACEBOOK_APP_SECRET", ""),
			RedirectURI:     getEnv("FACEBOOK_REDIRECT_URI", "http://localhost:"+port+"/auth/facebook/callback"),
			PageID:          getEnv("FACEBOOK_PAGE_ID", ""),
			PageAccessToken: getEnv("FACEBOOK_PAGE_ACCESS_TOKEN", ""),
			GraphURL:        getEnv("GRAPH_API_URL", "https://graph.facebook.com"),
			GraphVersion:    getEnv("GRAPH_API_VERSION", "v21.0"),
		},
		PublishTimeout: getDuration("PUBLISH_TIMEOUT", 30*time.Second),
		SyncInterval:   getEnv("SYNC_INTERVAL", ""),
		RedisURI:       getEnv("REDIS_URI", ""),
		PostgresURI:    getEnv("POSTGRES_URI", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:   getEnv("SECRET_KEY", ""),
		CookieName:  getEnv("COOKIE_NAME", "postpub_token"),
		RequireAuth: getBool("REQUIRE_AUTH", false),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}
