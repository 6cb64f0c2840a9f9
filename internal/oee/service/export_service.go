package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/xuri/excelize/v2"
)

// ExportService 看板数据导出
type ExportService struct {
	dashboard *DashboardService
}

// 导出工作表
const (
	sheetSummary     = "Summary"
	sheetLines       = "Lines"
	sheetDefects     = "Top Defect Lines"
	sheetMachines    = "Machine Maintenance"
	sheetDowntime    = "Downtime Causes"
	sheetLowStock    = "Low Stock"
	sheetProduction  = "Production Log"
	exportColWidth   = 24
)

// ExportDashboard 按相同查询条件导出 xlsx
func (s *ExportService) ExportDashboard(ctx context.Context, q entity.DashboardQuery) (*excelize.File, string, error) {
	data, err := s.dashboard.Query(ctx, q)
	if err != nil {
		return nil, "", err
	}
	q = q.Normalize()

	f := excelize.NewFile()
	// 表头样式: 加粗
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("create style: %w", err)
	}

	sm := data.Summary
	summary := [][]interface{}{
		{"Start Date", q.StartDate},
		{"End Date", q.EndDate},
		{"Area", q.Area},
		{"Shift", q.Shift},
		{"Machine Status", q.Status},
		{"Total Production", sm.TotalProduction},
		{"Total Defects", sm.TotalDefects},
		{"Total Downtime (min)", sm.TotalDowntime},
		{"Machine Utilization", sm.MachineUtilization},
		{"Avg OEE", sm.AvgOee},
		{"Avg Availability", sm.AvgAvailability},
		{"Avg Performance", sm.AvgPerformance},
		{"Avg Quality", sm.AvgQuality},
		{"Defect Rate", sm.DefectRate},
		{"Open Error Reports", sm.OpenErrorCount},
		{"Fleet MTBF (h)", data.Maintenance.Kpis.Mtbf},
		{"Fleet MTTR (min)", data.Maintenance.Kpis.Mttr},
	}
	f.SetSheetName("Sheet1", sheetSummary)
	if err := writeSheet(f, sheetSummary, []string{"Metric", "Value"}, summary, headerStyle); err != nil {
		return nil, "", err
	}

	oee := make(map[string]float64, len(sm.OeeByLine))
	for _, p := range sm.OeeByLine {
		oee[p.Name] = p.Value
	}
	lines := make([][]interface{}, 0, len(sm.ProductionByLine))
	for _, p := range sm.ProductionByLine {
		lines = append(lines, []interface{}{p.Name, p.Value, oee[p.Name]})
	}

	defects := make([][]interface{}, 0, len(data.Quality.Top5DefectLines))
	for _, l := range data.Quality.Top5DefectLines {
		defects = append(defects, []interface{}{l.LineID, l.TotalProduction, l.TotalDefects, l.DefectRate})
	}

	machines := make([][]interface{}, 0, len(data.Maintenance.MachineStats))
	for _, m := range data.Maintenance.MachineStats {
		machines = append(machines, []interface{}{m.MachineCode, m.BreakdownCount, m.TotalDowntime, m.Mtbf, m.Mttr, m.Status})
	}

	causes := make([][]interface{}, 0, len(data.Maintenance.DowntimeAnalysis))
	for _, c := range data.Maintenance.DowntimeAnalysis {
		causes = append(causes, []interface{}{c.Reason, c.Count, c.TotalMinutes, c.MainMachineImpact})
	}

	lowStock := make([][]interface{}, 0, len(data.Maintenance.LowStockParts))
	for _, p := range data.Maintenance.LowStockParts {
		lowStock = append(lowStock, []interface{}{p.PartCode, p.Name, p.Location, p.Available, p.InTransit, p.ReorderPoint, p.FlaggedForOrder})
	}

	production := make([][]interface{}, 0, len(data.ProductionLog))
	for _, p := range data.ProductionLog {
		production = append(production, []interface{}{p.Day, p.Shift, p.LineID, p.MachineCode, p.ItemCode, p.ActualQty, p.DefectQty, p.RunTimeMin, p.DowntimeMin, p.OEE})
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]interface{}
	}{
		{sheetLines, []string{"Line", "Production", "Avg OEE"}, lines},
		{sheetDefects, []string{"Line", "Production", "Defects", "Defect Rate"}, defects},
		{sheetMachines, []string{"Machine", "Breakdowns", "Downtime (min)", "MTBF (h)", "MTTR (min)", "Status"}, machines},
		{sheetDowntime, []string{"Reason", "Count", "Minutes", "Main Machine"}, causes},
		{sheetLowStock, []string{"Part Code", "Name", "Location", "Available", "In Transit", "Reorder Point", "Flagged"}, lowStock},
		{sheetProduction, []string{"Date", "Shift", "Line", "Machine", "Item", "Actual Qty", "Defect Qty", "Run Time", "Downtime", "OEE"}, production},
	}
	for _, sh := range sheets {
		if _, err := f.NewSheet(sh.name); err != nil {
			return nil, "", fmt.Errorf("create sheet %s: %w", sh.name, err)
		}
		if err := writeSheet(f, sh.name, sh.headers, sh.rows, headerStyle); err != nil {
			return nil, "", err
		}
	}

	filename := fmt.Sprintf("OEE_%s_%s.xlsx", q.StartDate, q.EndDate)
	return f, filename, nil
}

// writeSheet 表头加样式，数据从第二行开始
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, exportColWidth)
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
