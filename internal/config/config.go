package config

import (
	"os"
	"strings"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	BlobBasePath string // extracted question/answer images land here

	AuthSecret    string
	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOrigins []string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		DBDriver:      envOr("DB_DRIVER", "sqlite"),
		DBDSN:         envOr("DB_DSN", ""),
		BlobBasePath:  envOr("BLOB_BASE_PATH", "./data"),
		AuthSecret:    envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassHash: envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		CORSOrigins:   csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
