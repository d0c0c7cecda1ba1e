package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"orderline/internal/config"
	"orderline/internal/db"
	"orderline/internal/domain"
	"orderline/internal/engine"
	"orderline/internal/migrate"
	"orderline/internal/repo"
	"orderline/internal/timesheet"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2024, 11, 8, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if err := eng.Repo.UpsertWorker(ctx, domain.Worker{ID: "anna", Name: "Anna Smit"}); err != nil {
		t.Fatalf("seed worker: %v", err)
	}
	if err := eng.Repo.UpsertWorker(ctx, domain.Worker{ID: "bram", Name: "Bram de Vries"}); err != nil {
		t.Fatalf("seed worker: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func createOrder(t *testing.T, env testEnv, title string) domain.WorkOrder {
	t.Helper()
	w, err := env.Engine.CreateWorkOrder(env.Ctx, engine.WorkOrderCreateOptions{Title: title, ActorID: "anna"})
	if err != nil {
		t.Fatalf("create work order: %v", err)
	}
	return w
}

func register(t *testing.T, env testEnv, opts engine.RegisterTimeOptions) domain.TimeEntry {
	t.Helper()
	entry, err := env.Engine.RegisterTime(env.Ctx, opts)
	if err != nil {
		t.Fatalf("register time: %v", err)
	}
	return entry
}

func TestCreateWorkOrderDefaultsAndValidation(t *testing.T) {
	env := newTestEnv(t)
	w := createOrder(t, env, "Boiler replacement")
	if w.Status != "open" {
		t.Fatalf("expected default status open, got %q", w.Status)
	}
	if w.ID == "" {
		t.Fatalf("expected generated id")
	}
	if _, err := env.Engine.CreateWorkOrder(env.Ctx, engine.WorkOrderCreateOptions{ActorID: "anna"}); err == nil {
		t.Fatalf("expected title required error")
	}
	_, err := env.Engine.CreateWorkOrder(env.Ctx, engine.WorkOrderCreateOptions{Title: "x", Status: "bogus", ActorID: "anna"})
	var verr domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "status" {
		t.Fatalf("expected status validation error, got %v", err)
	}
}

func TestRegisterTimeAppliesDefaults(t *testing.T) {
	env := newTestEnv(t)
	w := createOrder(t, env, "defaults")
	entry := register(t, env, engine.RegisterTimeOptions{
		WorkOrderID: w.ID,
		WorkerID:    "anna",
		Date:        "2024-11-06",
		End:         "17:00",
	})
	if entry.Start != "08:00" {
		t.Fatalf("expected default start 08:00, got %q", entry.Start)
	}
	if entry.BreakMinutes != 60 {
		t.Fatalf("expected default break 60, got %d", entry.BreakMinutes)
	}
	if entry.TravelMinutes != 0 {
		t.Fatalf("expected default travel 0, got %d", entry.TravelMinutes)
	}
	worked, err := timesheet.EntryMinutes(entry)
	if err != nil || worked.Open || worked.Minutes != 480 {
		t.Fatalf("expected 480 worked minutes, got %+v %v", worked, err)
	}
}

func TestRegisterTimeNormalizesClocks(t *testing.T) {
	env := newTestEnv(t)
	w := createOrder(t, env, "padding")
	entry := register(t, env, engine.RegisterTimeOptions{
		WorkOrderID: w.ID,
		WorkerID:    "anna",
		Date:        "2024-11-06",
		Start:       "8:00",
		End:         "9:30",
		Break:       "0",
	})
	if entry.Start != "08:00" || *entry.End != "09:30" {
		t.Fatalf("expected zero-padded clocks, got %q %q", entry.Start, *entry.End)
	}
}

func TestRegisterTimeValidation(t *testing.T) {
	env := newTestEnv(t)
	w := createOrder(t, env, "rejects")

	cases := []struct {
		name  string
		opts  engine.RegisterTimeOptions
		field string
	}{
		{"missing worker", engine.RegisterTimeOptions{WorkOrderID: w.ID, Date: "2024-11-06"}, "worker_id"},
		{"missing date", engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "anna"}, "date"},
		{"bad date", engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "anna", Date: "06-11-2024"}, "date"},
		{"bad start", engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-06", Start: "25:00"}, "start"},
		{"end before start", engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-06", Start: "10:00", End: "09:00"}, "end"},
		{"negative break", engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-06", Break: "-30"}, "break"},
	}
	for _, tc := range cases {
		_, err := env.Engine.RegisterTime(env.Ctx, tc.opts)
		var verr domain.ValidationError
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Fatalf("%s: expected %s validation error, got %v", tc.name, tc.field, err)
		}
	}

	_, err := env.Engine.RegisterTime(env.Ctx, engine.RegisterTimeOptions{
		WorkOrderID: "no-such-order", WorkerID: "anna", Date: "2024-11-06",
	})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for unknown work order, got %v", err)
	}
}

func TestUpdateTimeEntryClearEnd(t *testing.T) {
	env := newTestEnv(t)
	w := createOrder(t, env, "reopen")
	entry := register(t, env, engine.RegisterTimeOptions{
		WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-06", Start: "08:00", End: "17:00",
	})
	updated, err := env.Engine.UpdateTimeEntry(env.Ctx, entry.ID, engine.TimeEntryUpdateOptions{ClearEnd: true, ActorID: "anna"})
	if err != nil {
		t.Fatalf("clear end: %v", err)
	}
	if updated.End != nil {
		t.Fatalf("expected open entry after clearing end")
	}
	// an end before the kept start is refused
	late := "18:00"
	if _, err := env.Engine.UpdateTimeEntry(env.Ctx, entry.ID, engine.TimeEntryUpdateOptions{End: &late, ActorID: "anna"}); err != nil {
		t.Fatalf("set end: %v", err)
	}
	early := "07:00"
	_, err = env.Engine.UpdateTimeEntry(env.Ctx, entry.ID, engine.TimeEntryUpdateOptions{End: &early, ActorID: "anna"})
	var verr domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "end" {
		t.Fatalf("expected end-before-start error, got %v", err)
	}
}

func TestTimesheetPeriodScoping(t *testing.T) {
	env := newTestEnv(t)
	w := createOrder(t, env, "scoped")
	register(t, env, engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-06", Start: "08:00", End: "17:00", Break: "60"})
	register(t, env, engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "bram", Date: "2024-11-05", Start: "08:00", End: "12:00", Break: "0"})
	// outside the week
	register(t, env, engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-12", Start: "08:00", End: "10:00", Break: "0"})
	// open entry inside the week
	register(t, env, engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-04", Start: "13:00", Break: "0"})

	res, err := env.Engine.Timesheet(env.Ctx, w.ID, timesheet.Selector{Kind: timesheet.KindWeek, Date: "2024-11-06"})
	if err != nil {
		t.Fatalf("timesheet: %v", err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 rows in week, got %d", len(res.Rows))
	}
	if res.PeriodTotal != 480+240 {
		t.Fatalf("expected open entry excluded from total, got %d", res.PeriodTotal)
	}
	if res.Grouped["anna"] != 480 || res.Grouped["bram"] != 240 {
		t.Fatalf("unexpected grouped totals: %v", res.Grouped)
	}
	// rows newest first
	if res.Rows[0].Entry.Date != "2024-11-06" || res.Rows[2].Entry.Date != "2024-11-04" {
		t.Fatalf("expected date-descending rows")
	}

	all, err := env.Engine.Timesheet(env.Ctx, w.ID, timesheet.None)
	if err != nil {
		t.Fatalf("all-time: %v", err)
	}
	if len(all.Rows) != 4 || all.Filtered() {
		t.Fatalf("expected unfiltered all-time listing")
	}

	if _, err := env.Engine.Timesheet(env.Ctx, "missing", timesheet.None); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPushdownMatchesInMemory(t *testing.T) {
	env := newTestEnv(t)
	w := createOrder(t, env, "pushdown")
	seed := []engine.RegisterTimeOptions{
		{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-04", Start: "08:00", End: "17:00", Break: "60"},
		{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-05", Start: "7:30", End: "16:15", Break: "45", Travel: "30"},
		{WorkOrderID: w.ID, WorkerID: "bram", Date: "2024-11-05", Start: "09:00", End: "09:30", Break: "45"}, // negative total
		{WorkOrderID: w.ID, WorkerID: "bram", Date: "2024-11-06", Start: "08:00", Break: "0"},                // open
		{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-12", Start: "08:00", End: "12:00", Break: "0"},  // next week
	}
	for _, opts := range seed {
		register(t, env, opts)
	}

	selectors := []timesheet.Selector{
		{Kind: timesheet.KindDay, Date: "2024-11-05"},
		{Kind: timesheet.KindWeek, Date: "2024-11-06"},
		{Kind: timesheet.KindMonth, Date: "2024-11"},
	}
	for _, sel := range selectors {
		env.Engine.Config.Aggregation.Pushdown = false
		inMem, err := env.Engine.Timesheet(env.Ctx, w.ID, sel)
		if err != nil {
			t.Fatalf("%s in-memory: %v", sel.Kind, err)
		}
		env.Engine.Config.Aggregation.Pushdown = true
		pushed, err := env.Engine.Timesheet(env.Ctx, w.ID, sel)
		if err != nil {
			t.Fatalf("%s pushdown: %v", sel.Kind, err)
		}
		if pushed.PeriodTotal != inMem.PeriodTotal {
			t.Fatalf("%s: totals differ, in-memory %d, pushdown %d", sel.Kind, inMem.PeriodTotal, pushed.PeriodTotal)
		}
		if len(pushed.Grouped) != len(inMem.Grouped) {
			t.Fatalf("%s: grouped keys differ: %v vs %v", sel.Kind, inMem.Grouped, pushed.Grouped)
		}
		for worker, minutes := range inMem.Grouped {
			if pushed.Grouped[worker] != minutes {
				t.Fatalf("%s: worker %s differs, in-memory %d, pushdown %d", sel.Kind, worker, minutes, pushed.Grouped[worker])
			}
		}
	}
}

func TestExportTimesheetFilename(t *testing.T) {
	env := newTestEnv(t)
	w := createOrder(t, env, "export")
	register(t, env, engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-06", Start: "08:00", End: "17:00", Break: "60"})

	data, name, err := env.Engine.ExportTimesheet(env.Ctx, w.ID, timesheet.None, "xlsx")
	if err != nil {
		t.Fatalf("export xlsx: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected workbook bytes")
	}
	if name != "workorder-"+w.ID+"-timesheet.xlsx" {
		t.Fatalf("unexpected filename %q", name)
	}

	html, name, err := env.Engine.ExportTimesheet(env.Ctx, w.ID, timesheet.None, "html")
	if err != nil {
		t.Fatalf("export html: %v", err)
	}
	if name != "workorder-"+w.ID+"-timesheet.html" {
		t.Fatalf("unexpected filename %q", name)
	}
	if !strings.Contains(string(html), "Anna Smit") {
		t.Fatalf("expected worker name in document")
	}

	_, _, err = env.Engine.ExportTimesheet(env.Ctx, w.ID, timesheet.None, "pdf")
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected format validation error, got %v", err)
	}
}

func TestDeleteWorkOrderCascades(t *testing.T) {
	env := newTestEnv(t)
	w := createOrder(t, env, "cascade")
	entry := register(t, env, engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-06", Start: "08:00", End: "17:00"})
	if err := env.Engine.DeleteWorkOrder(env.Ctx, w.ID, "anna"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.Repo.GetTimeEntry(env.Ctx, entry.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected entries gone with the order, got %v", err)
	}
}

func TestEventAppendOnStateChanges(t *testing.T) {
	env := newTestEnv(t)
	w := createOrder(t, env, "evented")
	entry := register(t, env, engine.RegisterTimeOptions{WorkOrderID: w.ID, WorkerID: "anna", Date: "2024-11-06", Start: "08:00"})
	end := "17:00"
	if _, err := env.Engine.UpdateTimeEntry(env.Ctx, entry.ID, engine.TimeEntryUpdateOptions{End: &end, ActorID: "anna"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := env.Engine.DeleteTimeEntry(env.Ctx, entry.ID, "anna"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, err := env.Engine.DB.QueryContext(env.Ctx, `SELECT type FROM events WHERE entity_id=?`, entry.ID)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count != 3 {
		t.Fatalf("expected created/updated/deleted events, got %d", count)
	}
}
