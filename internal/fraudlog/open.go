package fraudlog

import (
	"fmt"

	"github.com/mgoltzsche/voicetrust/pkg/config"
)

// Open creates the store selected by the configuration.
func Open(cfg config.FraudLog) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.MaxEntries), nil
	case "badger":
		return NewBadger(BadgerOptions{Dir: cfg.BadgerDir})
	case "redis":
		return NewRedis(RedisOptions{
			Address:    cfg.RedisAddress,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			Key:        cfg.RedisKey,
			MaxEntries: cfg.MaxEntries,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported fraud log backend %q, supported backends are memory, badger, redis", cfg.Backend)
	}
}
