package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"orderline/internal/config"
	"orderline/internal/domain"
	"orderline/internal/events"
	"orderline/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// WorkOrderCreateOptions are parameters for creating a work order.
type WorkOrderCreateOptions struct {
	ID          string
	Title       string
	Status      string
	Description string
	StartDate   string
	DueDate     string
	ActorID     string
}

func (e Engine) CreateWorkOrder(ctx context.Context, opts WorkOrderCreateOptions) (domain.WorkOrder, error) {
	if opts.Title == "" {
		return domain.WorkOrder{}, domain.ValidationError{Field: "title", Reason: "required"}
	}
	if opts.Status == "" {
		opts.Status = domain.StatusOpen
	}
	if !domain.ValidStatus(opts.Status) {
		return domain.WorkOrder{}, domain.ValidationError{Field: "status", Reason: "unknown status " + opts.Status}
	}
	for _, d := range []struct{ field, value string }{
		{"start_date", opts.StartDate},
		{"due_date", opts.DueDate},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d.value); err != nil {
			return domain.WorkOrder{}, domain.ValidationError{Field: d.field, Reason: "not a date: " + d.value}
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	w := domain.WorkOrder{
		ID:          id,
		Title:       opts.Title,
		Status:      opts.Status,
		Description: opts.Description,
		CreatedBy:   opts.ActorID,
		StartDate:   opts.StartDate,
		DueDate:     opts.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertWorkOrder(ctx, tx, w); err != nil {
		return domain.WorkOrder{}, err
	}
	if err := e.Events.Append(ctx, tx, "workorder.created", "workorder", w.ID, opts.ActorID, events.EventPayload{"title": w.Title, "status": w.Status}); err != nil {
		return domain.WorkOrder{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkOrder{}, err
	}
	return w, nil
}

// WorkOrderUpdateOptions encapsulates allowed work order updates. Nil fields
// are left untouched.
type WorkOrderUpdateOptions struct {
	Title       *string
	Status      *string
	Description *string
	StartDate   *string
	DueDate     *string
	ActorID     string
}

func (e Engine) UpdateWorkOrder(ctx context.Context, id string, opts WorkOrderUpdateOptions) (domain.WorkOrder, error) {
	if opts.Status != nil && !domain.ValidStatus(*opts.Status) {
		return domain.WorkOrder{}, domain.ValidationError{Field: "status", Reason: "unknown status " + *opts.Status}
	}
	if opts.Title != nil && *opts.Title == "" {
		return domain.WorkOrder{}, domain.ValidationError{Field: "title", Reason: "required"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	defer tx.Rollback()
	u := repo.WorkOrderUpdate{
		Title:       opts.Title,
		Status:      opts.Status,
		Description: opts.Description,
		StartDate:   opts.StartDate,
		DueDate:     opts.DueDate,
		UpdatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.UpdateWorkOrder(ctx, tx, id, u); err != nil {
		return domain.WorkOrder{}, err
	}
	payload := events.EventPayload{}
	if opts.Status != nil {
		payload["status"] = *opts.Status
	}
	if err := e.Events.Append(ctx, tx, "workorder.updated", "workorder", id, opts.ActorID, payload); err != nil {
		return domain.WorkOrder{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkOrder{}, err
	}
	return e.Repo.GetWorkOrder(ctx, id)
}

func (e Engine) DeleteWorkOrder(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteWorkOrder(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "workorder.deleted", "workorder", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}
