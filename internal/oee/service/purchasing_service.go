package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
)

// PurchasingService 备件与耗材采购申请
type PurchasingService struct {
	*core
}

// CreatePurchaseRequestInput 采购申请
type CreatePurchaseRequestInput struct {
	ItemCode string `json:"item_code" binding:"required"`
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// AddMcPartRequest 新申请为 Pending，申请日期为参考日期
func (s *PurchasingService) AddMcPartRequest(ctx context.Context, input *CreatePurchaseRequestInput) (*entity.McPartPurchaseRequest, error) {
	if input.Quantity <= 0 {
		return nil, validationf("数量必须大于0")
	}
	r := &entity.McPartPurchaseRequest{
		ItemCode:    input.ItemCode,
		ItemName:    input.ItemName,
		Quantity:    input.Quantity,
		Reason:      input.Reason,
		Status:      entity.PurchasePending,
		RequestDate: s.todayString(),
	}
	if err := s.store.CreatePurchaseRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("创建采购申请失败: %w", err)
	}
	s.publish(ctx, "purchase_request", "created", r.ID)
	return r, nil
}

// CreateConsumableRequestInput 耗材申请
type CreateConsumableRequestInput struct {
	ItemName string `json:"item_name" binding:"required"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
	Area     string `json:"area"`
	Reason   string `json:"reason"`
}

// AddConsumableRequest 新耗材申请为 Pending
func (s *PurchasingService) AddConsumableRequest(ctx context.Context, input *CreateConsumableRequestInput) (*entity.ConsumablePurchaseRequest, error) {
	if input.Quantity <= 0 {
		return nil, validationf("数量必须大于0")
	}
	if input.Area != "" {
		master, err := s.master(ctx)
		if err != nil {
			return nil, err
		}
		if !master.HasArea(input.Area) {
			return nil, validationf("区域不存在: %s", input.Area)
		}
	}
	r := &entity.ConsumablePurchaseRequest{
		ItemName:    input.ItemName,
		Quantity:    input.Quantity,
		Unit:        input.Unit,
		Area:        input.Area,
		Reason:      input.Reason,
		Status:      entity.PurchasePending,
		RequestDate: s.todayString(),
	}
	if err := s.store.CreateConsumableRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("创建耗材申请失败: %w", err)
	}
	s.publish(ctx, "consumable_request", "created", r.ID)
	return r, nil
}
