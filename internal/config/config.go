package config

import (
	"context"
	"fmt"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	TelegramAPIToken string  `env:"TOKEN,required"`
	OwnerID          int64   `env:"OWNER_ID,required"`
	DefaultLanguage  string  `env:"LANG,default=en"`
	LogLevel         int     `env:"LOG_LEVEL,default=4"`
	DotPath          string  `env:"DOT_PATH,default=~/.antispambot"`
	StateFile        string  `env:"STATE_FILE,default=bot_state.json"`
	AuditDBFile      string  `env:"AUDIT_DB_FILE,default=moderation.db"`
	MetricsAddr      string  `env:"METRICS_ADDR,default=:2112"`
	SeedAdminIDs     []int64 `env:"ADMIN_IDS"`
}

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("ASB_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		expanded, err := homedir.Expand(cfg.DotPath)
		if err != nil {
			globalErr = fmt.Errorf("expand dot path: %w", err)
			return
		}
		cfg.DotPath = expanded
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
