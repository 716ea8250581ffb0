package app

import (
	"strings"
	"time"

	"github.com/gracepointe/growthtrack-backend/internal/platform/envutil"
)

type Config struct {
	Port            string
	LogMode         string
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	AttendanceGoal  int
	CatalogCacheTTL time.Duration
	AllowOrigins    []string
	EnableRedis     bool
	EnableSMS       bool
}

func LoadConfig() Config {
	cfg := Config{
		Port:            envutil.String("PORT", "8080"),
		LogMode:         envutil.String("LOG_MODE", "development"),
		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL:  envutil.DurationSeconds("ACCESS_TOKEN_TTL", 24*time.Hour),
		AttendanceGoal:  envutil.Int("ATTENDANCE_GOAL", 20),
		CatalogCacheTTL: envutil.DurationSeconds("CATALOG_CACHE_TTL", 5*time.Minute),
		EnableRedis:     envutil.Bool("ENABLE_REDIS", false),
		EnableSMS:       envutil.Bool("ENABLE_SMS", false),
	}
	if raw := envutil.String("CORS_ORIGINS", ""); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
			}
		}
	}
	return cfg
}
