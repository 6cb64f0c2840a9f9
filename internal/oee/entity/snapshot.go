package entity

// Snapshot 某一修订版本下全部数据的只读副本
type Snapshot struct {
	Revision           int64
	Master             MasterData
	Production         []ProductionRecord
	Downtime           []DowntimeRecord
	Defects            []DefectRecord
	ErrorReports       []ErrorReport
	ErrorImages        []ErrorImage
	ErrorHistory       []ErrorHistory
	MaintenanceOrders  []MaintenanceOrder
	PartUsages         []MaintenancePartUsage
	Schedules          []MaintenanceSchedule
	McPartOrders       []McPartOrder
	PurchaseRequests   []McPartPurchaseRequest
	ConsumableRequests []ConsumablePurchaseRequest
	OeeTargets         []OeeTarget
}

// Clone 深拷贝。指针字段写入时总是整体替换，因此只复制切片
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Revision: s.Revision,
		Master: MasterData{
			Users:            cloneSlice(s.Master.Users),
			Shifts:           cloneSlice(s.Master.Shifts),
			DefectTypes:      cloneSlice(s.Master.DefectTypes),
			DefectCauses:     cloneSlice(s.Master.DefectCauses),
			Machines:         cloneSlice(s.Master.Machines),
			SpareParts:       cloneSlice(s.Master.SpareParts),
			PmPartsTemplates: cloneSlice(s.Master.PmPartsTemplates),
			LineAreas:        cloneSlice(s.Master.LineAreas),
		},
		Production:         cloneSlice(s.Production),
		Downtime:           cloneSlice(s.Downtime),
		Defects:            cloneSlice(s.Defects),
		ErrorReports:       cloneSlice(s.ErrorReports),
		ErrorImages:        cloneSlice(s.ErrorImages),
		ErrorHistory:       cloneSlice(s.ErrorHistory),
		MaintenanceOrders:  cloneSlice(s.MaintenanceOrders),
		PartUsages:         cloneSlice(s.PartUsages),
		Schedules:          cloneSlice(s.Schedules),
		McPartOrders:       cloneSlice(s.McPartOrders),
		PurchaseRequests:   cloneSlice(s.PurchaseRequests),
		ConsumableRequests: cloneSlice(s.ConsumableRequests),
		OeeTargets:         cloneSlice(s.OeeTargets),
	}
	for i := range out.Defects {
		out.Defects[i].ImageURLs = cloneSlice(out.Defects[i].ImageURLs)
	}
	for i := range out.Master.PmPartsTemplates {
		out.Master.PmPartsTemplates[i].Parts = cloneSlice(out.Master.PmPartsTemplates[i].Parts)
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
