package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func testMaster() *MasterData {
	return &MasterData{
		Users: []User{
			{ID: 1, Username: "admin", FullName: "Admin", Role: RoleAdmin},
			{ID: 201, Username: "operatorA", FullName: "Operator Ca A", Role: RoleOperator},
		},
		Shifts:       []Shift{{ID: 1, Code: "A"}, {ID: 2, Code: "B"}},
		DefectTypes:  []DefectType{{ID: 1, Code: "SCRATCH", Name: "Scratch"}},
		DefectCauses: []DefectCause{{ID: 2, Category: "Machine"}},
		Machines: []Machine{
			{ID: 1, Code: "M01", LineID: "32", Status: MachineActive},
			{ID: 3, Code: "M03", LineID: "31", Status: MachineActive},
		},
		SpareParts: []SparePart{{ID: 1, PartCode: "FIL-001", Name: "Air Filter"}},
		LineAreas: []LineArea{
			{LineID: "31", Area: "Area Stamping"},
			{LineID: "41", Area: "Area Painting"},
			{LineID: "42", Area: "Area Painting"},
		},
	}
}

func TestReferenceError_IsSentinel(t *testing.T) {
	m := testMaster()

	_, err := m.Machine(99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReferenceNotFound))

	var refErr *ReferenceError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, "machine", refErr.Entity)
	assert.Equal(t, "99", refErr.ID)
}

func TestUserName_SystemAndMissing(t *testing.T) {
	m := testMaster()

	name, err := m.UserName(0)
	require.NoError(t, err)
	assert.Equal(t, "System", name)

	_, err = m.UserName(404)
	assert.ErrorIs(t, err, ErrReferenceNotFound)

	opt, err := m.OptionalUserName(nil)
	require.NoError(t, err)
	assert.Nil(t, opt)

	_, err = m.OptionalUserName(intPtr(404))
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestAreas_Lookup(t *testing.T) {
	m := testMaster()

	assert.Equal(t, []string{"Area Stamping", "Area Painting"}, m.Areas())
	assert.Equal(t, []string{"41", "42"}, m.LinesInArea("Area Painting"))
	assert.True(t, m.HasArea("area painting"))
	assert.False(t, m.HasArea("Area Unknown"))
	assert.Equal(t, []string{"32", "31"}, m.Lines())

	area, ok := m.AreaOf("31")
	assert.True(t, ok)
	assert.Equal(t, "Area Stamping", area)
}

func TestEnrichDefect(t *testing.T) {
	m := testMaster()
	rec := DefectRecord{ID: 1, WorkDate: "2025-10-26", MachineID: 3, ShiftID: 2, DefectTypeID: 1, CauseID: intPtr(2), Quantity: 4, ReporterID: 201}

	out, err := m.EnrichDefect(rec)
	require.NoError(t, err)
	assert.Equal(t, "M03", out.MachineCode)
	assert.Equal(t, "B", out.ShiftCode)
	assert.Equal(t, "Scratch", out.DefectTypeName)
	require.NotNil(t, out.CauseCategory)
	assert.Equal(t, "Machine", *out.CauseCategory)
	assert.Equal(t, "Operator Ca A", out.ReporterName)
	assert.NotNil(t, out.ImageURLs)

	rec.CauseID = nil
	out, err = m.EnrichDefect(rec)
	require.NoError(t, err)
	assert.Nil(t, out.CauseCategory)

	rec.DefectTypeID = 42
	_, err = m.EnrichDefect(rec)
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestEnrichErrorReport_HistoryNewestFirst(t *testing.T) {
	m := testMaster()
	base := time.Date(2025, 10, 26, 8, 0, 0, 0, time.UTC)
	report := ErrorReport{ID: 7, MachineID: 1, ShiftID: 1, OperatorID: 201, Status: ErrorInProgress}
	history := []ErrorHistory{
		{ID: 1, ErrorID: 7, ChangedBy: 0, NewStatus: ErrorReported, ChangedAt: base},
		{ID: 2, ErrorID: 7, ChangedBy: 1, OldStatus: ErrorReported, NewStatus: ErrorInProgress, ChangedAt: base.Add(time.Hour)},
		{ID: 3, ErrorID: 8, ChangedBy: 1, NewStatus: ErrorReported, ChangedAt: base},
	}

	out, err := m.EnrichErrorReport(report, nil, history)
	require.NoError(t, err)
	require.Len(t, out.History, 2)
	assert.Equal(t, 2, out.History[0].ID)
	assert.Equal(t, "Admin", out.History[0].ChangedByName)
	assert.Equal(t, "System", out.History[1].ChangedByName)
	assert.Equal(t, "32", out.LineID)
	assert.Nil(t, out.TechnicianName)
	assert.Empty(t, out.Images)

	report.TechnicianID = intPtr(999)
	_, err = m.EnrichErrorReport(report, nil, history)
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestSparePart_NeedsReorder(t *testing.T) {
	assert.True(t, SparePart{Available: 1, InTransit: 1, ReorderPoint: 6}.NeedsReorder())
	assert.False(t, SparePart{Available: 3, InTransit: 2, ReorderPoint: 5}.NeedsReorder())
}

func TestSnapshotClone_Independent(t *testing.T) {
	s := &Snapshot{
		Master:  *testMaster(),
		Defects: []DefectRecord{{ID: 1, ImageURLs: []string{"a"}}},
	}
	c := s.Clone()
	c.Master.Machines[0].Name = "changed"
	c.Defects[0].ImageURLs[0] = "b"

	assert.Equal(t, "", s.Master.Machines[0].Name)
	assert.Equal(t, "a", s.Defects[0].ImageURLs[0])
}
