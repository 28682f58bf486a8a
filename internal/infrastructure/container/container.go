package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/config"
	"fundarb/internal/infrastructure/storage/composite"
	"fundarb/internal/infrastructure/storage/memory"
	pgrepo "fundarb/internal/infrastructure/storage/postgres"
	redisrepo "fundarb/internal/infrastructure/storage/redis"
	sqliterepo "fundarb/internal/infrastructure/storage/sqlite"
)

// Container 包含所有存储依赖
type Container struct {
	cfg          *config.Config
	repo         port.Repository
	redisClient  *redis.Client
	sqliteRepo   *sqliterepo.Repo
	redisRepo    *redisrepo.Repo
	postgresRepo *pgrepo.Repo
	archive      *composite.Archive
	cache        *composite.Cache
	closeOnce    sync.Once
	closerChain  []func() error
}

// New 创建新的容器实例，失败时清理已初始化的资源
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}
	if err := c.initStorage(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// initStorage 初始化存储层（SQLite、Redis、Postgres）
func (c *Container) initStorage() error {
	if c.cfg.Storage.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
	}
	if c.cfg.Storage.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
	}
	if c.cfg.Storage.Postgres.Enabled {
		if err := c.initPostgres(); err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
	}

	var archives []port.SnapshotArchive
	var caches []port.PriceCache
	if c.sqliteRepo != nil {
		c.repo = c.sqliteRepo
		archives = append(archives, c.sqliteRepo)
	} else {
		mem := memory.New(0)
		c.repo = mem
		archives = append(archives, mem)
		log.Warn().Msg("sqlite disabled, using in-memory repository")
	}
	// redis 优先作为价格缓存（读取以第一个为准）
	if c.redisRepo != nil {
		caches = append(caches, c.redisRepo)
		archives = append(archives, c.redisRepo)
	}
	if c.sqliteRepo != nil {
		caches = append(caches, c.sqliteRepo)
	}
	if c.postgresRepo != nil {
		archives = append(archives, c.postgresRepo)
	}
	c.archive = composite.New(archives...)
	c.cache = composite.NewCache(caches...)
	return nil
}

// initRedis 初始化 Redis 连接
func (c *Container) initRedis() error {
	rcfg := c.cfg.Storage.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rcfg.Addr,
		Password: rcfg.Password,
		DB:       rcfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	c.redisRepo = redisrepo.New(rdb, rcfg.Prefix, time.Duration(rcfg.TTLSeconds)*time.Second, rcfg.SnapshotStream, rcfg.SnapshotChannel)

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", rcfg.Addr).
		Int("db", rcfg.DB).
		Msg("redis initialized")
	return nil
}

// initSQLite 初始化 SQLite 数据库
func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}
	c.sqliteRepo = repo

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", c.cfg.Storage.SQLite.Path).
		Msg("sqlite initialized")
	return nil
}

// initPostgres 初始化 Postgres 快照归档
func (c *Container) initPostgres() error {
	repo, err := pgrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}
	c.postgresRepo = repo

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("postgres initialized")
	return nil
}

func (c *Container) Config() *config.Config {
	return c.cfg
}

// Repository 账户/交易仓储（sqlite 或内存）
func (c *Container) Repository() port.Repository {
	return c.repo
}

// Archive 快照归档（所有启用的存储）
func (c *Container) Archive() port.SnapshotArchive {
	return c.archive
}

// PriceCache 价格缓存；没有可用缓存时返回 nil
func (c *Container) PriceCache() port.PriceCache {
	if c.cache == nil || c.cache.Len() == 0 {
		return nil
	}
	return c.cache
}

func (c *Container) RedisClient() *redis.Client {
	return c.redisClient
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
