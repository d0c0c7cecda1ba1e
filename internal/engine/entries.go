package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"orderline/internal/domain"
	"orderline/internal/events"
	"orderline/internal/timesheet"
)

// RegisterTimeOptions carry the raw registration form input. Clock fields
// are HH:MM strings; Break and Travel also accept bare minute counts.
// Empty Start/Break/Travel fall back to the configured defaults.
type RegisterTimeOptions struct {
	WorkOrderID string
	WorkerID    string
	Date        string
	Start       string
	End         string
	Break       string
	Travel      string
	Description string
}

// RegisterTime validates and persists a new time entry. Validation happens
// here, at the write boundary: the calculator itself never rejects data.
// An end before start is refused outright; a break longer than the interval
// is accepted and will simply surface as a negative total downstream.
func (e Engine) RegisterTime(ctx context.Context, opts RegisterTimeOptions) (domain.TimeEntry, error) {
	if opts.WorkOrderID == "" {
		return domain.TimeEntry{}, domain.ValidationError{Field: "work_order_id", Reason: "required"}
	}
	if opts.WorkerID == "" {
		return domain.TimeEntry{}, domain.ValidationError{Field: "worker_id", Reason: "required"}
	}
	if _, err := e.Repo.GetWorkOrder(ctx, opts.WorkOrderID); err != nil {
		return domain.TimeEntry{}, err
	}

	if opts.Date == "" {
		return domain.TimeEntry{}, domain.ValidationError{Field: "date", Reason: "required"}
	}
	if _, err := time.Parse(time.DateOnly, opts.Date); err != nil {
		return domain.TimeEntry{}, domain.ValidationError{Field: "date", Reason: "not a date: " + opts.Date}
	}

	defaults := e.registrationDefaults()
	if opts.Start == "" {
		opts.Start = defaults.start
	}
	start, err := normalizeClock("start", opts.Start)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	var end *string
	if opts.End != "" {
		v, err := normalizeClock("end", opts.End)
		if err != nil {
			return domain.TimeEntry{}, err
		}
		if v < start {
			return domain.TimeEntry{}, domain.ValidationError{Field: "end", Reason: "before start"}
		}
		end = &v
	}
	breakMin, err := offsetOrDefault("break", opts.Break, defaults.breakMinutes)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	travelMin, err := offsetOrDefault("travel", opts.Travel, defaults.travelMinutes)
	if err != nil {
		return domain.TimeEntry{}, err
	}

	now := e.now().UTC().Format(time.RFC3339)
	entry := domain.TimeEntry{
		ID:            uuid.NewString(),
		WorkOrderID:   opts.WorkOrderID,
		WorkerID:      opts.WorkerID,
		Date:          opts.Date,
		Start:         start,
		End:           end,
		BreakMinutes:  breakMin,
		TravelMinutes: travelMin,
		Description:   opts.Description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTimeEntry(ctx, tx, entry); err != nil {
		return domain.TimeEntry{}, err
	}
	if err := e.Events.Append(ctx, tx, "entry.created", "entry", entry.ID, opts.WorkerID, events.EventPayload{
		"work_order_id": entry.WorkOrderID,
		"date":          entry.Date,
	}); err != nil {
		return domain.TimeEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.TimeEntry{}, err
	}
	return entry, nil
}

// TimeEntryUpdateOptions encapsulates a partial entry update. Nil means
// unchanged; ClearEnd reopens the entry. The owning work order is immutable.
type TimeEntryUpdateOptions struct {
	Date        *string
	Start       *string
	End         *string
	ClearEnd    bool
	Break       *string
	Travel      *string
	Description *string
	ActorID     string
}

func (e Engine) UpdateTimeEntry(ctx context.Context, id string, opts TimeEntryUpdateOptions) (domain.TimeEntry, error) {
	entry, err := e.Repo.GetTimeEntry(ctx, id)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	if opts.Date != nil {
		if _, err := time.Parse(time.DateOnly, *opts.Date); err != nil {
			return domain.TimeEntry{}, domain.ValidationError{Field: "date", Reason: "not a date: " + *opts.Date}
		}
		entry.Date = *opts.Date
	}
	if opts.Start != nil {
		v, err := normalizeClock("start", *opts.Start)
		if err != nil {
			return domain.TimeEntry{}, err
		}
		entry.Start = v
	}
	if opts.ClearEnd {
		entry.End = nil
	} else if opts.End != nil {
		v, err := normalizeClock("end", *opts.End)
		if err != nil {
			return domain.TimeEntry{}, err
		}
		entry.End = &v
	}
	if entry.End != nil && *entry.End < entry.Start {
		return domain.TimeEntry{}, domain.ValidationError{Field: "end", Reason: "before start"}
	}
	if opts.Break != nil {
		v, err := offsetOrDefault("break", *opts.Break, 0)
		if err != nil {
			return domain.TimeEntry{}, err
		}
		entry.BreakMinutes = v
	}
	if opts.Travel != nil {
		v, err := offsetOrDefault("travel", *opts.Travel, 0)
		if err != nil {
			return domain.TimeEntry{}, err
		}
		entry.TravelMinutes = v
	}
	if opts.Description != nil {
		entry.Description = *opts.Description
	}
	entry.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TimeEntry{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTimeEntry(ctx, tx, entry); err != nil {
		return domain.TimeEntry{}, err
	}
	if err := e.Events.Append(ctx, tx, "entry.updated", "entry", entry.ID, opts.ActorID, events.EventPayload{
		"work_order_id": entry.WorkOrderID,
	}); err != nil {
		return domain.TimeEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.TimeEntry{}, err
	}
	return entry, nil
}

func (e Engine) DeleteTimeEntry(ctx context.Context, id, actorID string) error {
	entry, err := e.Repo.GetTimeEntry(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteTimeEntry(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "entry.deleted", "entry", id, actorID, events.EventPayload{
		"work_order_id": entry.WorkOrderID,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

type registrationDefaults struct {
	start         string
	breakMinutes  int
	travelMinutes int
}

func (e Engine) registrationDefaults() registrationDefaults {
	d := registrationDefaults{start: "08:00", breakMinutes: 60}
	if e.Config == nil {
		return d
	}
	if e.Config.Registration.DefaultStart != "" {
		d.start = e.Config.Registration.DefaultStart
	}
	d.breakMinutes = e.Config.Registration.DefaultBreakMinutes
	d.travelMinutes = e.Config.Registration.DefaultTravelMinutes
	return d
}

// normalizeClock parses a clock field and re-renders it zero-padded so the
// stored form is canonical (the grouped-sum pushdown relies on it).
func normalizeClock(field, value string) (string, error) {
	min, err := timesheet.ParseClock(value)
	if err != nil {
		return "", domain.ValidationError{Field: field, Reason: err.Error()}
	}
	return timesheet.FormatHHMM(min), nil
}

func offsetOrDefault(field, value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	min, err := timesheet.ParseOffset(value)
	if err != nil {
		return 0, domain.ValidationError{Field: field, Reason: err.Error()}
	}
	if min < 0 {
		return 0, domain.ValidationError{Field: field, Reason: fmt.Sprintf("must be >= 0, got %d", min)}
	}
	return min, nil
}
