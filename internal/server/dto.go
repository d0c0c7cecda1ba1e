package server

import (
	"sort"

	"orderline/internal/domain"
	"orderline/internal/timesheet"
)

// Request payloads

type CreateWorkOrderRequest struct {
	ID          *string `json:"id,omitempty"`
	Title       string  `json:"title"`
	Status      *string `json:"status,omitempty" enum:"open,in_progress,completed,on_hold"`
	Description *string `json:"description,omitempty"`
	StartDate   *string `json:"start_date,omitempty" format:"date"`
	DueDate     *string `json:"due_date,omitempty" format:"date"`
}

type UpdateWorkOrderRequest struct {
	Title       *string `json:"title,omitempty"`
	Status      *string `json:"status,omitempty" enum:"open,in_progress,completed,on_hold"`
	Description *string `json:"description,omitempty"`
	StartDate   *string `json:"start_date,omitempty" format:"date"`
	DueDate     *string `json:"due_date,omitempty" format:"date"`
}

type RegisterTimeRequest struct {
	WorkerID    *string `json:"worker_id,omitempty"`
	Date        string  `json:"date" format:"date"`
	Start       *string `json:"start,omitempty"`
	End         *string `json:"end,omitempty"`
	Break       *string `json:"break,omitempty"`
	Travel      *string `json:"travel,omitempty"`
	Description *string `json:"description,omitempty"`
}

type UpdateTimeEntryRequest struct {
	Date        *string `json:"date,omitempty" format:"date"`
	Start       *string `json:"start,omitempty"`
	End         *string `json:"end,omitempty"`
	ClearEnd    bool    `json:"clear_end,omitempty"`
	Break       *string `json:"break,omitempty"`
	Travel      *string `json:"travel,omitempty"`
	Description *string `json:"description,omitempty"`
}

type UpsertWorkerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

// Response payloads

type WorkOrderResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status" enum:"open,in_progress,completed,on_hold"`
	StatusLabel string `json:"status_label"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by"`
	StartDate   string `json:"start_date,omitempty" format:"date"`
	DueDate     string `json:"due_date,omitempty" format:"date"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type TimeEntryResponse struct {
	ID            string  `json:"id"`
	WorkOrderID   string  `json:"work_order_id"`
	WorkerID      string  `json:"worker_id"`
	Date          string  `json:"date" format:"date"`
	Start         string  `json:"start"`
	End           *string `json:"end,omitempty"`
	BreakMinutes  int     `json:"break_minutes"`
	TravelMinutes int     `json:"travel_minutes"`
	Description   string  `json:"description,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

// TimesheetRowResponse is one entry with its computed worked time. Minutes
// and Hours are omitted while the entry is still open.
type TimesheetRowResponse struct {
	Entry   TimeEntryResponse `json:"entry"`
	Open    bool              `json:"open"`
	Minutes *int              `json:"minutes,omitempty"`
	Hours   string            `json:"hours,omitempty"`
}

type WorkerTotalResponse struct {
	WorkerID string `json:"worker_id"`
	Name     string `json:"name"`
	Minutes  int    `json:"minutes"`
	Hours    string `json:"hours"`
}

// TimesheetResponse carries the rows and, for period-scoped queries, the
// per-worker and overall totals. All-time queries list rows only.
type TimesheetResponse struct {
	WorkOrderID        string                 `json:"work_order_id"`
	Period             string                 `json:"period,omitempty"`
	Rows               []TimesheetRowResponse `json:"rows"`
	WorkerTotals       []WorkerTotalResponse  `json:"worker_totals,omitempty"`
	PeriodTotalMinutes *int                   `json:"period_total_minutes,omitempty"`
	PeriodTotalHours   string                 `json:"period_total_hours,omitempty"`
}

type WorkerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	WorkerID  string `json:"worker_id"`
	Name      string `json:"name,omitempty"`
	Key       string `json:"key,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	WorkerID   string `json:"worker_id"`
	Payload    string `json:"payload_json,omitempty"`
}

func workOrderResponse(w domain.WorkOrder) WorkOrderResponse {
	return WorkOrderResponse{
		ID:          w.ID,
		Title:       w.Title,
		Status:      w.Status,
		StatusLabel: domain.StatusLabel(w.Status),
		Description: w.Description,
		CreatedBy:   w.CreatedBy,
		StartDate:   w.StartDate,
		DueDate:     w.DueDate,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func mapWorkOrders(items []domain.WorkOrder) []WorkOrderResponse {
	res := make([]WorkOrderResponse, 0, len(items))
	for _, w := range items {
		res = append(res, workOrderResponse(w))
	}
	return res
}

func timeEntryResponse(e domain.TimeEntry) TimeEntryResponse {
	return TimeEntryResponse{
		ID:            e.ID,
		WorkOrderID:   e.WorkOrderID,
		WorkerID:      e.WorkerID,
		Date:          e.Date,
		Start:         e.Start,
		End:           e.End,
		BreakMinutes:  e.BreakMinutes,
		TravelMinutes: e.TravelMinutes,
		Description:   e.Description,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func timesheetResponse(workOrderID string, res timesheet.Result, names map[string]string) TimesheetResponse {
	out := TimesheetResponse{
		WorkOrderID: workOrderID,
		Period:      res.Period.Label(),
		Rows:        []TimesheetRowResponse{},
	}
	for _, row := range res.Rows {
		r := TimesheetRowResponse{Entry: timeEntryResponse(row.Entry), Open: row.Open}
		if !row.Open {
			minutes := row.Minutes
			r.Minutes = &minutes
			r.Hours = timesheet.FormatHHMM(minutes)
		}
		out.Rows = append(out.Rows, r)
	}
	if res.Filtered() {
		total := res.PeriodTotal
		out.PeriodTotalMinutes = &total
		out.PeriodTotalHours = timesheet.FormatHHMM(total)
		for workerID, minutes := range res.Grouped {
			name := names[workerID]
			if name == "" {
				name = workerID
			}
			out.WorkerTotals = append(out.WorkerTotals, WorkerTotalResponse{
				WorkerID: workerID,
				Name:     name,
				Minutes:  minutes,
				Hours:    timesheet.FormatHHMM(minutes),
			})
		}
		sort.Slice(out.WorkerTotals, func(i, j int) bool {
			a, b := out.WorkerTotals[i], out.WorkerTotals[j]
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.WorkerID < b.WorkerID
		})
	}
	return out
}

func workerResponse(w domain.Worker) WorkerResponse {
	return WorkerResponse{ID: w.ID, Name: w.Name, CreatedAt: w.CreatedAt}
}

func apiKeyResponse(k domain.APIKey) APIKeyResponse {
	return APIKeyResponse{ID: k.ID, WorkerID: k.WorkerID, Name: k.Name, CreatedAt: k.CreatedAt}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		WorkerID:   e.WorkerID,
		Payload:    e.Payload,
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
