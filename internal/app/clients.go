package app

import (
	"github.com/gracepointe/growthtrack-backend/internal/clients/redis"
	"github.com/gracepointe/growthtrack-backend/internal/clients/twilio"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
)

type Clients struct {
	CatalogCache redis.CatalogCache
	SMS          twilio.Client
}

// wireClients builds the optional outbound clients. Either one failing to
// come up is logged and left nil; the services degrade rather than refuse to
// boot.
func wireClients(log *logger.Logger, cfg Config) Clients {
	log.Info("Wiring clients...")
	var c Clients

	if cfg.EnableRedis {
		cache, err := redis.NewCatalogCache(log, cfg.CatalogCacheTTL)
		if err != nil {
			log.Warn("Catalog cache unavailable, serving catalog from store", "error", err)
		} else {
			c.CatalogCache = cache
		}
	}

	if cfg.EnableSMS {
		sms, err := twilio.NewFromEnv(log)
		if err != nil {
			log.Warn("SMS gateway unavailable, notifications disabled", "error", err)
		} else {
			c.SMS = sms
		}
	}
	return c
}
