package entity

import (
	"errors"
	"fmt"
	"strings"
)

// DateLayout 业务日期格式
const DateLayout = "2006-01-02"

// ShiftMinutes 每班计划时长（分钟）
const ShiftMinutes = 480

// 用户角色
const (
	RoleAdmin       = "Admin"
	RoleSupervisor  = "Supervisor"
	RoleOperator    = "Operator"
	RoleQA          = "QA"
	RoleMaintenance = "Maintenance"
)

// 设备状态
const (
	MachineActive   = "active"
	MachineInactive = "inactive"
)

// ErrReferenceNotFound 引用的主数据不存在
var ErrReferenceNotFound = errors.New("referenced entity not found")

// ReferenceError 悬空外键，携带实体名与ID
type ReferenceError struct {
	Entity string
	ID     string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is 使 errors.Is(err, ErrReferenceNotFound) 成立
func (e *ReferenceError) Is(target error) bool {
	return target == ErrReferenceNotFound
}

func refErr(entity string, id interface{}) error {
	return &ReferenceError{Entity: entity, ID: fmt.Sprint(id)}
}

// User 用户
type User struct {
	ID       int    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Username string `json:"username" gorm:"size:64;not null"`
	FullName string `json:"full_name" gorm:"size:128;not null"`
	Role     string `json:"role" gorm:"size:16;not null"`
}

func (User) TableName() string {
	return "oee_users"
}

// Shift 班次
type Shift struct {
	ID   int    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Code string `json:"code" gorm:"size:1;not null"` // A / B / C
	Name string `json:"name" gorm:"size:64"`
}

func (Shift) TableName() string {
	return "oee_shifts"
}

// StartTime 班次开始时间 HH:MM
func (s Shift) StartTime() string {
	switch s.Code {
	case "B":
		return "14:00"
	case "C":
		return "22:00"
	default:
		return "06:00"
	}
}

// Machine 设备
type Machine struct {
	ID             int      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Code           string   `json:"machine_id" gorm:"size:32;not null;uniqueIndex"`
	Name           string   `json:"machine_name" gorm:"size:128;not null"`
	LineID         string   `json:"line_id" gorm:"size:16;not null;index"`
	IdealCycleTime float64  `json:"ideal_cycle_time"` // 分钟/件
	DesignSpeed    float64  `json:"design_speed"`     // 件/分钟
	Status         string   `json:"status" gorm:"size:16;not null;default:active"`
	X              *float64 `json:"x,omitempty"`
	Y              *float64 `json:"y,omitempty"`
}

func (Machine) TableName() string {
	return "oee_machines"
}

// DefectType 缺陷类型
type DefectType struct {
	ID   int    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Code string `json:"code" gorm:"size:32;not null"`
	Name string `json:"name" gorm:"size:64;not null"`
}

func (DefectType) TableName() string {
	return "oee_defect_types"
}

// DefectCause 缺陷原因（4M1E）
type DefectCause struct {
	ID       int    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Category string `json:"category" gorm:"size:16;not null"` // Man / Machine / Material / Method / Environment
	Detail   string `json:"detail,omitempty" gorm:"size:256"`
}

func (DefectCause) TableName() string {
	return "oee_defect_causes"
}

// LineArea 产线所属区域
type LineArea struct {
	LineID string `json:"line_id" gorm:"primaryKey;size:16"`
	Area   string `json:"area" gorm:"size:64;not null"`
}

func (LineArea) TableName() string {
	return "oee_line_areas"
}

// MasterData 主数据，聚合与关联查询只读使用
type MasterData struct {
	Users            []User            `json:"users"`
	Shifts           []Shift           `json:"shifts"`
	DefectTypes      []DefectType      `json:"defect_types"`
	DefectCauses     []DefectCause     `json:"defect_causes"`
	Machines         []Machine         `json:"machines"`
	SpareParts       []SparePart       `json:"spare_parts"`
	PmPartsTemplates []PmPartsTemplate `json:"pm_parts_templates"`
	LineAreas        []LineArea        `json:"line_areas"`
}

// User 按ID查找用户
func (m *MasterData) User(id int) (*User, error) {
	for i := range m.Users {
		if m.Users[i].ID == id {
			return &m.Users[i], nil
		}
	}
	return nil, refErr("user", id)
}

// UserName 用户姓名，0 表示系统操作
func (m *MasterData) UserName(id int) (string, error) {
	if id == 0 {
		return "System", nil
	}
	u, err := m.User(id)
	if err != nil {
		return "", err
	}
	return u.FullName, nil
}

// OptionalUserName 可选用户引用：未设置返回 nil，设置但不存在返回错误
func (m *MasterData) OptionalUserName(id *int) (*string, error) {
	if id == nil {
		return nil, nil
	}
	u, err := m.User(*id)
	if err != nil {
		return nil, err
	}
	name := u.FullName
	return &name, nil
}

// FirstUserWithRole 第一个指定角色的用户
func (m *MasterData) FirstUserWithRole(role string) (*User, error) {
	for i := range m.Users {
		if m.Users[i].Role == role {
			return &m.Users[i], nil
		}
	}
	return nil, refErr("user with role", role)
}

// Shift 按ID查找班次
func (m *MasterData) Shift(id int) (*Shift, error) {
	for i := range m.Shifts {
		if m.Shifts[i].ID == id {
			return &m.Shifts[i], nil
		}
	}
	return nil, refErr("shift", id)
}

// Machine 按ID查找设备
func (m *MasterData) Machine(id int) (*Machine, error) {
	for i := range m.Machines {
		if m.Machines[i].ID == id {
			return &m.Machines[i], nil
		}
	}
	return nil, refErr("machine", id)
}

// MachineByCode 按设备编码查找
func (m *MasterData) MachineByCode(code string) (*Machine, error) {
	for i := range m.Machines {
		if m.Machines[i].Code == code {
			return &m.Machines[i], nil
		}
	}
	return nil, refErr("machine", code)
}

// DefectType 按ID查找缺陷类型
func (m *MasterData) DefectType(id int) (*DefectType, error) {
	for i := range m.DefectTypes {
		if m.DefectTypes[i].ID == id {
			return &m.DefectTypes[i], nil
		}
	}
	return nil, refErr("defect type", id)
}

// DefectCause 按ID查找缺陷原因
func (m *MasterData) DefectCause(id int) (*DefectCause, error) {
	for i := range m.DefectCauses {
		if m.DefectCauses[i].ID == id {
			return &m.DefectCauses[i], nil
		}
	}
	return nil, refErr("defect cause", id)
}

// SparePart 按ID查找备件
func (m *MasterData) SparePart(id int) (*SparePart, error) {
	for i := range m.SpareParts {
		if m.SpareParts[i].ID == id {
			return &m.SpareParts[i], nil
		}
	}
	return nil, refErr("spare part", id)
}

// AreaOf 产线所属区域
func (m *MasterData) AreaOf(lineID string) (string, bool) {
	for _, la := range m.LineAreas {
		if la.LineID == lineID {
			return la.Area, true
		}
	}
	return "", false
}

// Areas 去重后的区域列表，保持首次出现顺序
func (m *MasterData) Areas() []string {
	seen := make(map[string]bool)
	areas := make([]string, 0, len(m.LineAreas))
	for _, la := range m.LineAreas {
		if !seen[la.Area] {
			seen[la.Area] = true
			areas = append(areas, la.Area)
		}
	}
	return areas
}

// HasArea 区域是否存在（大小写不敏感）
func (m *MasterData) HasArea(area string) bool {
	for _, la := range m.LineAreas {
		if strings.EqualFold(la.Area, area) {
			return true
		}
	}
	return false
}

// LinesInArea 区域下的产线
func (m *MasterData) LinesInArea(area string) []string {
	lines := make([]string, 0)
	for _, la := range m.LineAreas {
		if la.Area == area {
			lines = append(lines, la.LineID)
		}
	}
	return lines
}

// Lines 设备所在产线去重列表，保持设备顺序
func (m *MasterData) Lines() []string {
	seen := make(map[string]bool)
	lines := make([]string, 0)
	for _, mc := range m.Machines {
		if !seen[mc.LineID] {
			seen[mc.LineID] = true
			lines = append(lines, mc.LineID)
		}
	}
	return lines
}

// MachineCodes 所有设备编码
func (m *MasterData) MachineCodes() []string {
	codes := make([]string, 0, len(m.Machines))
	for _, mc := range m.Machines {
		codes = append(codes, mc.Code)
	}
	return codes
}
