package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"orderline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func (r Repo) InsertWorkOrder(ctx context.Context, tx *sql.Tx, w domain.WorkOrder) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO work_orders(id,title,status,description,created_by,start_date,due_date,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		w.ID, w.Title, w.Status, nullable(w.Description), w.CreatedBy, nullable(w.StartDate), nullable(w.DueDate), w.CreatedAt, w.UpdatedAt)
	return err
}

func (r Repo) GetWorkOrder(ctx context.Context, id string) (domain.WorkOrder, error) {
	var w domain.WorkOrder
	var desc, startDate, dueDate sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,title,status,description,created_by,start_date,due_date,created_at,updated_at FROM work_orders WHERE id=?`, id).
		Scan(&w.ID, &w.Title, &w.Status, &desc, &w.CreatedBy, &startDate, &dueDate, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	if err != nil {
		return w, err
	}
	if desc.Valid {
		w.Description = desc.String
	}
	if startDate.Valid {
		w.StartDate = startDate.String
	}
	if dueDate.Valid {
		w.DueDate = dueDate.String
	}
	return w, nil
}

type WorkOrderFilters struct {
	Status    string
	CreatedBy string
	Limit     int
}

func (r Repo) ListWorkOrders(ctx context.Context, f WorkOrderFilters) ([]domain.WorkOrder, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.CreatedBy != "" {
		clauses = append(clauses, "created_by=?")
		args = append(args, f.CreatedBy)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT id,title,status,description,created_by,start_date,due_date,created_at,updated_at FROM work_orders ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkOrder
	for rows.Next() {
		var w domain.WorkOrder
		var desc, startDate, dueDate sql.NullString
		if err := rows.Scan(&w.ID, &w.Title, &w.Status, &desc, &w.CreatedBy, &startDate, &dueDate, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			w.Description = desc.String
		}
		if startDate.Valid {
			w.StartDate = startDate.String
		}
		if dueDate.Valid {
			w.DueDate = dueDate.String
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

type WorkOrderUpdate struct {
	Title       *string
	Status      *string
	Description *string
	StartDate   *string
	DueDate     *string
	UpdatedAt   string
}

func (r Repo) UpdateWorkOrder(ctx context.Context, tx *sql.Tx, id string, u WorkOrderUpdate) error {
	var (
		fields []string
		args   []any
	)
	if u.Title != nil {
		fields = append(fields, "title=?")
		args = append(args, *u.Title)
	}
	if u.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *u.Status)
	}
	if u.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*u.Description))
	}
	if u.StartDate != nil {
		fields = append(fields, "start_date=?")
		args = append(args, nullable(*u.StartDate))
	}
	if u.DueDate != nil {
		fields = append(fields, "due_date=?")
		args = append(args, nullable(*u.DueDate))
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, u.UpdatedAt, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE work_orders SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteWorkOrder(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM work_orders WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpsertWorker(ctx context.Context, w domain.Worker) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO workers(id,name,created_at) VALUES (?,?,?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name`, w.ID, w.Name, w.CreatedAt)
	return err
}

func (r Repo) GetWorker(ctx context.Context, id string) (domain.Worker, error) {
	var w domain.Worker
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,created_at FROM workers WHERE id=?`, id).
		Scan(&w.ID, &w.Name, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	return w, err
}

func (r Repo) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_at FROM workers ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Worker
	for rows.Next() {
		var w domain.Worker
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

// WorkerNames returns id -> display name for every known worker. Renderers
// fall back to the raw id for unknown workers.
func (r Repo) WorkerNames(ctx context.Context) (map[string]string, error) {
	workers, err := r.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(workers))
	for _, w := range workers {
		names[w.ID] = w.Name
	}
	return names, nil
}

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,worker_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entity sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entity, &e.WorkerID, &e.Payload); err != nil {
			return nil, err
		}
		if entity.Valid {
			e.EntityID = entity.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
