package cmd

import (
	"context"
	"fmt"

	"tasktree/backend"
	"tasktree/backend/file"
	"tasktree/backend/memory"
	"tasktree/backend/postgres"
	"tasktree/backend/redis"
	"tasktree/backend/sqlite"
	"tasktree/internal/config"
	"tasktree/internal/utils"
)

// openStore opens the configured backend. With auto-detection enabled the
// CSV data directory is probed first, so data left by an earlier version
// keeps being used.
func openStore(ctx context.Context, conf *config.Config, cfg *Config) (backend.Store, string, error) {
	if conf.IsAutoDetectEnabled() {
		if st, name := backend.SelectDetectedStore(conf.GetFileDir()); st != nil {
			if name == config.BackendFile {
				utils.Debugf("auto-detected %s store at %s", name, st.DetectionInfo())
				return st, name, nil
			}
			_ = st.Close()
		}
	}

	name := conf.DefaultBackend
	switch name {
	case config.BackendSQLite:
		path := conf.GetDatabasePath()
		if cfg.DBPath != "" {
			path = cfg.DBPath
		}
		st, err := sqlite.New(path)
		if err != nil {
			return nil, name, err
		}
		return st, name, nil

	case config.BackendFile:
		st, err := file.New(file.Config{Dir: conf.GetFileDir()})
		if err != nil {
			return nil, name, err
		}
		return st, name, nil

	case config.BackendPostgres:
		if conf.Backends.Postgres.DSN == "" {
			return nil, name, utils.ErrBackendNotConfigured(name)
		}
		st, err := postgres.New(ctx, conf.Backends.Postgres.DSN, conf.Backends.Postgres.MaxConns)
		if err != nil {
			return nil, name, utils.ErrBackendOffline(name, err.Error())
		}
		return st, name, nil

	case config.BackendRedis:
		rc := conf.Backends.Redis
		if rc.Addr == "" {
			return nil, name, utils.ErrBackendNotConfigured(name)
		}
		st, err := redis.New(ctx, rc.Addr, rc.Password, rc.DB, rc.Prefix)
		if err != nil {
			return nil, name, utils.ErrBackendOffline(name, err.Error())
		}
		return st, name, nil

	case config.BackendMemory:
		return memory.New(nil), name, nil
	}
	return nil, name, fmt.Errorf("unknown backend: %s", name)
}
