package domain

// Work order statuses. The set mirrors the dispatch workflow: an order is
// opened, worked on, and either completed or parked.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusOnHold     = "on_hold"
)

var statusLabels = map[string]string{
	StatusOpen:       "Open",
	StatusInProgress: "In Progress",
	StatusCompleted:  "Completed",
	StatusOnHold:     "On Hold",
}

// ValidStatus reports whether s is a known work order status.
func ValidStatus(s string) bool {
	_, ok := statusLabels[s]
	return ok
}

// StatusLabel returns the display label for a status, or the raw value when
// the status is unknown.
func StatusLabel(s string) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return s
}

type WorkOrder struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status" enum:"open,in_progress,completed,on_hold"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by"`
	StartDate   string `json:"start_date,omitempty" format:"date"`
	DueDate     string `json:"due_date,omitempty" format:"date"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

// TimeEntry is one logged interval of work against a work order.
//
// Date is a calendar date (2006-01-02); Start and End are wall-clock times of
// day (HH:MM). End is nil while the entry is still running. Break and travel
// are plain durations in minutes: break time is subtracted from the worked
// total, travel time is tracked but never subtracted.
type TimeEntry struct {
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

type Worker struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	WorkerID  string `json:"worker_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	WorkerID   string `json:"worker_id"`
	Payload    string `json:"payload_json"`
}
