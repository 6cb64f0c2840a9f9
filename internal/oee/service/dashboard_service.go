package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/config"
	"github.com/bitfantasy/nimo-oee/internal/oee/analytics"
	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DashboardCache 看板结果缓存，键中包含存储修订号
type DashboardCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// RedisDashboardCache Redis 实现
type RedisDashboardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDashboardCache(rdb *redis.Client, ttl time.Duration) *RedisDashboardCache {
	return &RedisDashboardCache{rdb: rdb, ttl: ttl}
}

func (c *RedisDashboardCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisDashboardCache) Set(ctx context.Context, key string, value []byte) error {
	return c.rdb.Set(ctx, key, value, c.ttl).Err()
}

// dashboardCacheKey 修订号变化即失效
func dashboardCacheKey(revision int64, q entity.DashboardQuery) string {
	return fmt.Sprintf("oee:dashboard:%d:%s:%s:%s:%s:%s", revision, q.StartDate, q.EndDate, q.Area, q.Shift, q.Status)
}

// FilterOptions 筛选栏初始数据
type FilterOptions struct {
	DefaultDate    string   `json:"default_date"`
	DefaultArea    string   `json:"default_area"`
	AvailableAreas []string `json:"available_areas"`
}

// DashboardService 看板查询
type DashboardService struct {
	*core
	cache       DashboardCache
	latency     time.Duration
	hours       float64
	defaultDate string
}

func NewDashboardService(c *core, cache DashboardCache, cfg config.DashboardConfig) *DashboardService {
	return &DashboardService{
		core:        c,
		cache:       cache,
		latency:     cfg.SimulatedLatency,
		hours:       cfg.AssumedOperatingHours,
		defaultDate: cfg.DefaultDate,
	}
}

// Query 按筛选条件聚合看板数据
func (s *DashboardService) Query(ctx context.Context, q entity.DashboardQuery) (*entity.DashboardData, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	q = q.Normalize()

	if s.cache != nil {
		if rev, err := s.store.Revision(ctx); err == nil {
			if data, ok := s.cached(ctx, dashboardCacheKey(rev, q)); ok {
				return data, nil
			}
		}
	}

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载数据失败: %w", err)
	}
	data, err := analytics.BuildDashboard(snap, q, analytics.Params{Today: s.today, AssumedOperatingHours: s.hours})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.remember(ctx, dashboardCacheKey(snap.Revision, q), data)
	}
	return data, nil
}

// cached 缓存读取失败按未命中处理
func (s *DashboardService) cached(ctx context.Context, key string) (*entity.DashboardData, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("dashboard cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var data entity.DashboardData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("dashboard cache decode failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &data, true
}

func (s *DashboardService) remember(ctx context.Context, key string, data *entity.DashboardData) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn("dashboard cache encode failed", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		s.logger.Warn("dashboard cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Filters 默认日期与可选区域
func (s *DashboardService) Filters(ctx context.Context) (*FilterOptions, error) {
	master, err := s.master(ctx)
	if err != nil {
		return nil, err
	}
	return &FilterOptions{
		DefaultDate:    s.defaultDate,
		DefaultArea:    entity.FilterAll,
		AvailableAreas: master.Areas(),
	}, nil
}

// MasterData 主数据
func (s *DashboardService) MasterData(ctx context.Context) (*entity.MasterData, error) {
	return s.master(ctx)
}
