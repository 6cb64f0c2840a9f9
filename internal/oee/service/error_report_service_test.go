package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/bitfantasy/nimo-oee/internal/oee/entity"
	"github.com/bitfantasy/nimo-oee/internal/oee/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newReport(t *testing.T, env *testEnv) *entity.EnrichedErrorReport {
	t.Helper()
	r, err := env.svc.ErrorReport.AddErrorReport(context.Background(), &CreateErrorReportInput{
		MachineID:         2,
		ShiftID:           1,
		OperatorID:        201,
		DefectType:        "Jam",
		DefectDescription: "Conveyor stops intermittently",
	})
	require.NoError(t, err)
	return r
}

func TestErrorReportService_AddErrorReport(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	r := newReport(t, env)

	assert.Equal(t, 3, r.ID)
	assert.Equal(t, "ERR-003", r.ReportNo)
	assert.Equal(t, entity.ErrorReported, r.Status)
	assert.Equal(t, entity.SeverityMedium, r.Severity)
	assert.Equal(t, "M02", r.MachineCode)
	assert.Equal(t, fixedNow, r.ReportTime)
	require.Len(t, r.History, 1)
	assert.Equal(t, "Report created.", r.History[0].Note)
	assert.Equal(t, 201, r.History[0].ChangedBy)

	u := env.events.last()
	assert.Equal(t, "error_report", u.Kind)
	assert.Equal(t, "created", u.Action)
	assert.Equal(t, 3, u.ID)
}

func TestErrorReportService_AddErrorReportValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	_, err := env.svc.ErrorReport.AddErrorReport(ctx, &CreateErrorReportInput{
		MachineID: 1, ShiftID: 1, OperatorID: 201, DefectDescription: "x", Severity: "Critical",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.ErrorReport.AddErrorReport(ctx, &CreateErrorReportInput{
		MachineID: 99, ShiftID: 1, OperatorID: 201, DefectDescription: "x",
	})
	assert.ErrorIs(t, err, entity.ErrReferenceNotFound)
}

func TestErrorReportService_StatusFlow(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	r := newReport(t, env)
	rev, err := env.store.Revision(ctx)
	require.NoError(t, err)

	// Reported 不能直接到 Fixed
	_, err = env.svc.ErrorReport.UpdateErrorReport(ctx, r.ID, &UpdateErrorReportInput{
		Status: entity.ErrorFixed, RootCause: strPtr("belt"), ActionTaken: strPtr("replaced"),
	}, 101)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	after, _ := env.store.Revision(ctx)
	assert.Equal(t, rev, after)

	tech := 101
	r, err = env.svc.ErrorReport.UpdateErrorReport(ctx, r.ID, &UpdateErrorReportInput{
		Status: entity.ErrorInProgress, TechnicianID: &tech,
	}, 101)
	require.NoError(t, err)
	assert.Equal(t, entity.ErrorInProgress, r.Status)
	require.NotNil(t, r.TechnicianName)
	assert.Len(t, r.History, 2)

	// 缺少处理措施
	_, err = env.svc.ErrorReport.UpdateErrorReport(ctx, r.ID, &UpdateErrorReportInput{
		Status: entity.ErrorFixed, RootCause: strPtr("worn belt"),
	}, 101)
	assert.ErrorIs(t, err, ErrValidation)

	r, err = env.svc.ErrorReport.UpdateErrorReport(ctx, r.ID, &UpdateErrorReportInput{
		Status: entity.ErrorFixed, RootCause: strPtr("worn belt"), ActionTaken: strPtr("replaced belt"),
	}, 101)
	require.NoError(t, err)
	require.NotNil(t, r.FixTime)
	assert.Nil(t, r.VerifyBy)

	r, err = env.svc.ErrorReport.UpdateErrorReport(ctx, r.ID, &UpdateErrorReportInput{Status: entity.ErrorClosed}, 203)
	require.NoError(t, err)
	assert.Equal(t, entity.ErrorClosed, r.Status)
	require.NotNil(t, r.VerifyBy)
	assert.Equal(t, 203, *r.VerifyBy)
	require.NotNil(t, r.VerifyTime)
	assert.Len(t, r.History, 4)
	assert.Equal(t, "worn belt", r.RootCause)
}

func TestErrorReportService_SameStatusAddsNoHistory(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	r := newReport(t, env)

	r, err := env.svc.ErrorReport.UpdateErrorReport(ctx, r.ID, &UpdateErrorReportInput{
		Status: entity.ErrorReported, Note: strPtr("waiting for parts"),
	}, 201)
	require.NoError(t, err)
	assert.Equal(t, "waiting for parts", r.Note)
	assert.Len(t, r.History, 1)
}

func TestErrorReportService_UpdateMissing(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	_, err := env.svc.ErrorReport.UpdateErrorReport(context.Background(), 404, &UpdateErrorReportInput{Status: entity.ErrorInProgress}, 101)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = env.svc.ErrorReport.GetErrorReport(context.Background(), 404)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestErrorReportService_AddErrorImage(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	r := newReport(t, env)

	img, err := env.svc.ErrorReport.AddErrorImage(ctx, r.ID, &AddErrorImageInput{ImageURL: "http://img/1.jpg"}, 201)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleOperator, img.Role)

	_, err = env.svc.ErrorReport.AddErrorImage(ctx, r.ID, &AddErrorImageInput{ImageURL: "http://img/2.jpg", Role: "QA"}, 202)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.ErrorReport.AddErrorImage(ctx, 404, &AddErrorImageInput{ImageURL: "http://img/3.jpg"}, 201)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := env.svc.ErrorReport.GetErrorReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Images, 1)
}

type fakeImageStorage struct {
	prefix string
	body   string
	err    error
}

func (f *fakeImageStorage) Put(_ context.Context, prefix, fileName string, reader io.Reader, _ int64, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.prefix = prefix
	f.body = string(b)
	return fmt.Sprintf("http://files/%s/%s", prefix, fileName), nil
}

func TestErrorReportService_UploadErrorImage(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	r := newReport(t, env)

	_, err := env.svc.ErrorReport.UploadErrorImage(ctx, r.ID, 101, "", "", "a.jpg", strings.NewReader("x"), 1, "image/jpeg")
	assert.ErrorIs(t, err, ErrValidation)

	storage := &fakeImageStorage{}
	env.svc.ErrorReport.images = storage
	img, err := env.svc.ErrorReport.UploadErrorImage(ctx, r.ID, 101, entity.RoleMaintenance, "after fix", "a.jpg", strings.NewReader("jpeg"), 4, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "error-reports/3", storage.prefix)
	assert.Equal(t, "jpeg", storage.body)
	assert.Equal(t, "http://files/error-reports/3/a.jpg", img.ImageURL)
	assert.Equal(t, entity.RoleMaintenance, img.Role)

	_, err = env.svc.ErrorReport.UploadErrorImage(ctx, 404, 101, "", "", "a.jpg", strings.NewReader("x"), 1, "image/jpeg")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	storage.err = errors.New("bucket gone")
	_, err = env.svc.ErrorReport.UploadErrorImage(ctx, r.ID, 101, "", "", "a.jpg", strings.NewReader("x"), 1, "image/jpeg")
	assert.Error(t, err)
}
