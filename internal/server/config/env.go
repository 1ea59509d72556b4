package config

import (
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/timex"
)

// parseEnv overlays values from the process environment. Only variables that
// are set and non-empty are applied. Expiry values accept Go durations plus a
// "d" suffix ("10d"); an unparsable expiry panics.
//
//	PORT                  HTTP port (bound on all interfaces)
//	GRPC_ADDRESS          gRPC health endpoint address
//	DATABASE_URL          PostgreSQL DSN
//	CORS_ORIGIN           allowed browser origin
//	ACCESS_TOKEN_SECRET   / ACCESS_TOKEN_EXPIRY
//	REFRESH_TOKEN_SECRET  / REFRESH_TOKEN_EXPIRY
//	S3_ACCESS_KEY, S3_SECRET_KEY, S3_BUCKET, S3_REGION, S3_ENDPOINT
//	UPLOAD_TEMP_DIR       multipart staging directory
//	TRUSTED_PROXIES       comma-separated proxy IPs allowed to set X-Forwarded-For
func parseEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		config.EndpointAddrHTTP = ":" + port
	}
	envString(&config.EndpointAddrGRPC, "GRPC_ADDRESS")
	envString(&config.DatabaseDSN, "DATABASE_URL")
	envString(&config.CORSOrigin, "CORS_ORIGIN")
	envString(&config.AccessTokenSecret, "ACCESS_TOKEN_SECRET")
	envString(&config.RefreshTokenSecret, "REFRESH_TOKEN_SECRET")
	envDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_EXPIRY")
	envDuration(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_EXPIRY")
	envString(&config.S3RootUser, "S3_ACCESS_KEY")
	envString(&config.S3RootPassword, "S3_SECRET_KEY")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_ENDPOINT")
	envString(&config.UploadTempDir, "UPLOAD_TEMP_DIR")
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		config.TrustedProxies = splitList(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := timex.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
