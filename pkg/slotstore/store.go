package slotstore

import (
	"context"
	"fmt"

	"github.com/hatcher/taskchat/pkg/ormx"
	"github.com/hatcher/taskchat/pkg/redisx"
	"github.com/hatcher/taskchat/pkg/util"
)

// Store 持久槽位存储
//
// Each slot holds a single plain string with no versioning or schema;
// Get returns an empty string for an absent slot.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Config struct {
	Type   string                 `json:"type" yaml:"type" mapstructure:"type"`
	Option map[string]interface{} `json:"option" yaml:"option" mapstructure:"option"`
}

// NewSlotStore 创建槽位存储
func NewSlotStore(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		opt, err := util.Convert[FileOption](cfg.Option)
		if err != nil {
			return nil, err
		}
		return NewFileStore(opt.Dir)
	case "redis":
		redisConfig, err := util.Convert[redisx.RedisConfig](cfg.Option)
		if err != nil {
			return nil, err
		}
		cli, err := redisx.NewRedis(*redisConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to initial redis slot store client: %s", err)
		}
		return NewRedisStore(cli, defaultKeyPrefix), nil
	case "db":
		dbConfig, err := util.Convert[ormx.DBConfig](cfg.Option)
		if err != nil {
			return nil, err
		}
		db, err := ormx.NewDBClient(*dbConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to initial mysql slot store client: %s", err)
		}
		return NewDBStore(db)
	default:
		return nil, fmt.Errorf("failed to initial slot store client: %s", cfg.Type)
	}
}
