package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Port     string
	DBDSN    string
	MediaDir string
	LogFile  string

	BlobBackend    string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3PublicURL    string
	PublicMediaURL string

	OTPCode      string
	CookieSecure bool
	SeedDemo     bool
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] ignoring %s=%q: %v", key, v, err)
		return def
	}
	return b
}

func Load() Config {
	cfg := Config{
		Port:     env("PORT", "8080"),
		DBDSN:    env("DB_DSN", "marketplace.db"),
		MediaDir: env("MEDIA_DIR", "./web/media"),
		LogFile:  os.Getenv("LOG_FILE"),

		BlobBackend:    env("BLOB_BACKEND", "disk"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       env("S3_REGION", "us-east-1"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3PublicURL:    os.Getenv("S3_PUBLIC_URL"),
		PublicMediaURL: env("PUBLIC_MEDIA_URL", "/media"),

		OTPCode:      env("OTP_CODE", "123456"),
		CookieSecure: envBool("COOKIE_SECURE", false),
		SeedDemo:     envBool("SEED_DEMO", true),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s MEDIA_DIR=%s LOG_FILE=%s BLOB_BACKEND=%s S3_BUCKET=%s SEED_DEMO=%t",
		cfg.Port, cfg.DBDSN, cfg.MediaDir, cfg.LogFile, cfg.BlobBackend, cfg.S3Bucket, cfg.SeedDemo)
	return cfg
}
