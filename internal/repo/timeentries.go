package repo

import (
	"context"
	"database/sql"

	"orderline/internal/domain"
)

// DateRange is an inclusive calendar-date range. Dates are 2006-01-02
// strings, matching how time_entries.date is stored.
type DateRange struct {
	Start string
	End   string
}

func (r Repo) InsertTimeEntry(ctx context.Context, tx *sql.Tx, e domain.TimeEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO time_entries(id,work_order_id,worker_id,date,start_time,end_time,break_minutes,travel_minutes,description,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.WorkOrderID, e.WorkerID, e.Date, e.Start, nullableStringPtr(e.End), e.BreakMinutes, e.TravelMinutes, nullable(e.Description), e.CreatedAt, e.UpdatedAt)
	return err
}

func (r Repo) UpdateTimeEntry(ctx context.Context, tx *sql.Tx, e domain.TimeEntry) error {
	res, err := tx.ExecContext(ctx, `UPDATE time_entries SET date=?, start_time=?, end_time=?, break_minutes=?, travel_minutes=?, description=?, updated_at=? WHERE id=?`,
		e.Date, e.Start, nullableStringPtr(e.End), e.BreakMinutes, e.TravelMinutes, nullable(e.Description), e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTimeEntry(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM time_entries WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTimeEntry(ctx context.Context, id string) (domain.TimeEntry, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,work_order_id,worker_id,date,start_time,end_time,break_minutes,travel_minutes,description,created_at,updated_at FROM time_entries WHERE id=?`, id)
	e, err := scanTimeEntry(row.Scan)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	return e, err
}

// FetchTimeEntries returns the entries of one work order, optionally
// restricted to an inclusive date range, newest date first.
func (r Repo) FetchTimeEntries(ctx context.Context, workOrderID string, rng *DateRange) ([]domain.TimeEntry, error) {
	query := `SELECT id,work_order_id,worker_id,date,start_time,end_time,break_minutes,travel_minutes,description,created_at,updated_at FROM time_entries WHERE work_order_id=?`
	args := []any{workOrderID}
	if rng != nil {
		query += ` AND date BETWEEN ? AND ?`
		args = append(args, rng.Start, rng.End)
	}
	query += ` ORDER BY date DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// GroupedTotals pushes the per-worker sum into the store: worked minutes as
// (end - start) - break, open entries skipped. Clock times are stored
// zero-padded HH:MM, so substr arithmetic is safe. This is a performance
// path only; it must match the in-memory aggregation exactly and that
// equivalence is pinned by tests.
func (r Repo) GroupedTotals(ctx context.Context, workOrderID string, rng DateRange) (map[string]int, error) {
	query := `SELECT worker_id,
SUM((CAST(substr(end_time,1,2) AS INTEGER)*60 + CAST(substr(end_time,4,2) AS INTEGER))
  - (CAST(substr(start_time,1,2) AS INTEGER)*60 + CAST(substr(start_time,4,2) AS INTEGER))
  - break_minutes)
FROM time_entries
WHERE work_order_id=? AND end_time IS NOT NULL AND date BETWEEN ? AND ?
GROUP BY worker_id`
	rows, err := r.DB.QueryContext(ctx, query, workOrderID, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := map[string]int{}
	for rows.Next() {
		var worker string
		var sum int
		if err := rows.Scan(&worker, &sum); err != nil {
			return nil, err
		}
		totals[worker] = sum
	}
	return totals, rows.Err()
}

func scanTimeEntry(scan func(...any) error) (domain.TimeEntry, error) {
	var e domain.TimeEntry
	var end, desc sql.NullString
	err := scan(&e.ID, &e.WorkOrderID, &e.WorkerID, &e.Date, &e.Start, &end, &e.BreakMinutes, &e.TravelMinutes, &desc, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return e, err
	}
	if end.Valid {
		e.End = &end.String
	}
	if desc.Valid {
		e.Description = desc.String
	}
	return e, nil
}
