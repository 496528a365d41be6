package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/waxal-backend/internal/clients/redis"
	"github.com/yungbote/waxal-backend/internal/clients/twilio"
	"github.com/yungbote/waxal-backend/internal/config"
	"github.com/yungbote/waxal-backend/internal/platform/gcp"
	"github.com/yungbote/waxal-backend/internal/platform/localmedia"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
	"github.com/yungbote/waxal-backend/internal/platform/vars"
)

type Clients struct {
	Twilio    twilio.Client
	Messenger *twilio.Messenger
	Bucket    gcp.BucketService
	Audio     localmedia.Inspector
	Dedupe    redis.Deduper
}

func wireClients(ctx context.Context, log *logger.Logger, cfg *config.Config, v vars.Store) (Clients, error) {
	log.Info("Wiring clients...")

	// Twilio
	tw, err := twilio.New(log, twilio.Config{
		AccountSID:                 cfg.Twilio.AccountSID,
		AuthToken:                  cfg.Twilio.AuthToken,
		APIKey:                     cfg.Twilio.APIKey,
		APIKeySecret:               cfg.Twilio.APIKeySecret,
		BaseURL:                    cfg.Twilio.BaseURL,
		DefaultMessagingServiceSID: cfg.Twilio.MessagingServiceSID,
		DefaultStatusCallbackURL:   cfg.Twilio.StatusCallbackURL,
		Timeout:                    cfg.Twilio.Timeout,
		MaxRetries:                 cfg.Twilio.MaxRetries,
		MaxMediaBytes:              cfg.Twilio.MaxMediaBytes,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init twilio client: %w", err)
	}

	// Gcs
	bucket, err := resolveBucketService(ctx, log, cfg.Storage, optionalVar(v, CredentialsVar))
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}

	// ffprobe
	audio := localmedia.New(log, localmedia.Options{
		FFprobePath: cfg.Media.FFprobePath,
		WorkRoot:    cfg.Media.WorkRoot,
		Timeout:     cfg.Media.Timeout,
		MaxBytes:    cfg.Media.MaxBytes,
	})

	// Redis
	var dedupe redis.Deduper
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		d, err := redis.NewDeduper(log, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.DedupeTTL,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis deduper: %w", err)
		}
		dedupe = d
	} else {
		log.Info("REDIS_ADDR not set; deduplicating deliveries in memory")
		dedupe = redis.NewMemoryDeduper(cfg.Redis.DedupeTTL)
	}

	return Clients{
		Twilio:    tw,
		Messenger: twilio.NewMessenger(tw, v, log),
		Bucket:    bucket,
		Audio:     audio,
		Dedupe:    dedupe,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Dedupe != nil {
		_ = c.Dedupe.Close()
	}
}
