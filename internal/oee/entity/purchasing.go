package entity

// 采购申请状态
const (
	PurchasePending  = "Pending"
	PurchaseApproved = "Approved"
	PurchaseOrdered  = "Ordered"
	PurchaseReceived = "Received"
)

// McPartOrder 备件采购订单
type McPartOrder struct {
	ID           int    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrderNo      string `json:"order_id" gorm:"size:32;not null"`
	ItemCode     string `json:"item_code" gorm:"size:32;not null;index"`
	ItemName     string `json:"item_name" gorm:"size:128"`
	QtyOrder     int    `json:"qty_order"`
	OrderDate    string `json:"order_date" gorm:"size:10"`
	ExpectedDate string `json:"expected_date" gorm:"size:10"`
	Supplier     string `json:"supplier" gorm:"size:128"`
	Status       string `json:"status" gorm:"size:16"` // In Transit / Delayed / Received
	Area         string `json:"area" gorm:"size:16"`
}

func (McPartOrder) TableName() string {
	return "oee_mc_part_orders"
}

// McPartPurchaseRequest 备件采购申请
type McPartPurchaseRequest struct {
	ID          int    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ItemCode    string `json:"item_code" gorm:"size:32;not null"`
	ItemName    string `json:"item_name" gorm:"size:128"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason"`
	Status      string `json:"status" gorm:"size:16"`
	RequestDate string `json:"request_date" gorm:"size:10"`
}

func (McPartPurchaseRequest) TableName() string {
	return "oee_mc_part_requests"
}

// ConsumablePurchaseRequest 耗材采购申请（手套、清洁剂等非备件物料）
type ConsumablePurchaseRequest struct {
	ID          int    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ItemName    string `json:"item_name" gorm:"size:128;not null"`
	Quantity    int    `json:"quantity"`
	Unit        string `json:"unit" gorm:"size:16"`
	Area        string `json:"area" gorm:"size:64"`
	Reason      string `json:"reason"`
	Status      string `json:"status" gorm:"size:16"`
	RequestDate string `json:"request_date" gorm:"size:10"`
}

func (ConsumablePurchaseRequest) TableName() string {
	return "oee_consumable_requests"
}

// OeeTarget OEE 对标目标
type OeeTarget struct {
	ID               int     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Level            string  `json:"level" gorm:"size:16"` // Plant / Area / Line / Machine
	LineID           *string `json:"line_id" gorm:"size:16"`
	TargetOee        float64 `json:"target_oee"`
	TargetOutput     float64 `json:"target_output"`
	TargetDefectRate float64 `json:"target_defect_rate"`
	EffectiveFrom    string  `json:"effective_from" gorm:"size:10"`
	EffectiveTo      *string `json:"effective_to" gorm:"size:10"`
}

func (OeeTarget) TableName() string {
	return "oee_targets"
}
