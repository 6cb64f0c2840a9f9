package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/bitfantasy/nimo-oee/internal/config"
	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/generator"
	"github.com/bitfantasy/nimo-oee/internal/oee/repository"
	"github.com/bitfantasy/nimo-oee/internal/oee/sse"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrValidation 请求参数不合法
	ErrValidation = errors.New("validation failed")
	// ErrConflict 与现有数据冲突
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition 状态流转不允许
	ErrInvalidTransition = errors.New("invalid status transition")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// EventPublisher 数据变更通知
type EventPublisher interface {
	Publish(update sse.DataUpdate)
}

// core 各服务共享的依赖
type core struct {
	store  repository.Store
	events EventPublisher
	logger *zap.Logger
	// today 看板与PM计划使用的参考日期
	today time.Time
	now   func() time.Time
}

func (c *core) todayString() string {
	return c.today.Format(entity.DateLayout)
}

// publish 写入成功后广播，修订号读取失败只记录日志
func (c *core) publish(ctx context.Context, kind, action string, id int) {
	if c.events == nil {
		return
	}
	rev, err := c.store.Revision(ctx)
	if err != nil {
		c.logger.Warn("read store revision failed", zap.Error(err))
	}
	c.events.Publish(sse.DataUpdate{Kind: kind, Action: action, ID: id, Revision: rev})
}

// master 当前主数据副本
func (c *core) master(ctx context.Context) (*entity.MasterData, error) {
	snap, err := c.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载主数据失败: %w", err)
	}
	return &snap.Master, nil
}

// Services 服务集合
type Services struct {
	Dashboard   *DashboardService
	Machine     *MachineService
	ErrorReport *ErrorReportService
	Maintenance *MaintenanceService
	SparePart   *SparePartService
	Defect      *DefectService
	Purchasing  *PurchasingService
	Generation  *GenerationService
	Export      *ExportService
}

// NewServices 创建服务集合。rdb、images、events 均可为 nil
func NewServices(store repository.Store, rdb *redis.Client, images ImageStorage, events EventPublisher, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	today, err := time.Parse(entity.DateLayout, cfg.Dashboard.ReferenceDate)
	if err != nil {
		return nil, fmt.Errorf("解析参考日期失败: %w", err)
	}

	c := &core{
		store:  store,
		events: events,
		logger: logger,
		today:  today,
		now:    time.Now,
	}

	var cache DashboardCache
	if rdb != nil {
		cache = NewRedisDashboardCache(rdb, cfg.Redis.CacheTTL)
	}

	seed := cfg.Store.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	dashboard := NewDashboardService(c, cache, cfg.Dashboard)
	return &Services{
		Dashboard:   dashboard,
		Machine:     &MachineService{core: c},
		ErrorReport: &ErrorReportService{core: c, images: images},
		Maintenance: &MaintenanceService{core: c},
		SparePart:   &SparePartService{core: c},
		Defect:      &DefectService{core: c},
		Purchasing:  &PurchasingService{core: c},
		Generation:  &GenerationService{core: c, gen: generator.New(rand.New(rand.NewSource(seed)))},
		Export:      &ExportService{dashboard: dashboard},
	}, nil
}
