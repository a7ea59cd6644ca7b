package db

import (
	"time"

	"github.com/smallbiznis/geoatlas/internal/config"
)

// PoolConfig bounds the connection pool of the shared *gorm.DB.
type PoolConfig struct {
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func poolConfig(cfg config.Config) PoolConfig {
	pool := PoolConfig{
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTime) * time.Second,
	}
	if pool.MaxIdleConn <= 0 {
		pool.MaxIdleConn = 5
	}
	if pool.MaxOpenConn <= 0 {
		pool.MaxOpenConn = 20
	}
	return pool
}
