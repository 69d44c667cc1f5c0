package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/me/wfkit/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun(i int) *model.Run {
	created := time.Date(2020, 3, 1, 12, 0, i, 0, time.UTC)
	return &model.Run{
		WorkflowName: "diamond",
		DocumentPath: "/work/diamond.yml",
		SubmitDir:    fmt.Sprintf("/submit/diamond/run%04d", i),
		RootWfUUID:   "2c2c2a9e-8a67-4c1c-8d9a-0a8c6c3ff001",
		WfUUID:       "2c2c2a9e-8a67-4c1c-8d9a-0a8c6c3ff001",
		User:         "alice",
		CreatedAt:    created,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	st := testStore(t)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestCreateAndGetRun(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)

	run := sampleRun(1)
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if !strings.HasPrefix(run.ID, "run_") {
		t.Errorf("ID = %q, want run_ prefix", run.ID)
	}
	if run.State != model.RunStatePlanned {
		t.Errorf("State = %q, want PLANNED", run.State)
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got == nil {
		t.Fatal("GetRun returned nil")
	}
	if got.SubmitDir != run.SubmitDir || got.WorkflowName != "diamond" || got.User != "alice" {
		t.Errorf("GetRun = %+v, want %+v", got, run)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
	}

	missing, err := st.GetRun(ctx, "run_missing")
	if err != nil || missing != nil {
		t.Errorf("GetRun(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestCreateRun_DuplicateSubmitDir(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	if err := st.CreateRun(ctx, sampleRun(1)); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateRun(ctx, sampleRun(1)); err == nil {
		t.Error("second run with the same submit dir: no error")
	}
}

func TestUpdateRun(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	run := sampleRun(1)
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	run.State = model.RunStateRunning
	run.PercentDone = 42.5
	run.PlannerVersion = "5.0.6"
	if err := st.UpdateRun(ctx, run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}
	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != model.RunStateRunning || got.PercentDone != 42.5 || got.PlannerVersion != "5.0.6" {
		t.Errorf("after update = %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("UpdatedAt %v not after CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}

	err = st.UpdateRun(ctx, &model.Run{ID: "run_missing", State: model.RunStateFailed})
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("UpdateRun(missing) error = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	for i := 1; i <= 5; i++ {
		run := sampleRun(i)
		if i > 3 {
			run.WorkflowName = "pipeline"
			run.State = model.RunStateSuccess
		}
		if err := st.CreateRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	runs, total, err := st.ListRuns(ctx, model.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if total != 5 || len(runs) != 2 {
		t.Fatalf("ListRuns = %d runs, total %d; want 2, 5", len(runs), total)
	}
	if runs[0].SubmitDir != "/submit/diamond/run0005" {
		t.Errorf("first run = %s, want newest first", runs[0].SubmitDir)
	}

	tests := []struct {
		name  string
		opts  model.ListOptions
		total int
	}{
		{"by state", model.ListOptions{State: "SUCCESS"}, 2},
		{"by workflow", model.ListOptions{WorkflowName: "diamond"}, 3},
		{"both", model.ListOptions{State: "PLANNED", WorkflowName: "pipeline"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, total, err := st.ListRuns(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListRuns: %v", err)
			}
			if total != tt.total || len(runs) != tt.total {
				t.Errorf("got %d runs, total %d; want %d", len(runs), total, tt.total)
			}
		})
	}
}
