package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"orderline/internal/domain"
	"orderline/internal/engine"
	"orderline/internal/repo"
	"orderline/internal/report"
	"orderline/internal/timesheet"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"bad_request"`
	Message string         `json:"message" example:"invalid end: before start"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"field\":\"end\"}"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Orderline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Orderline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerWorkOrders(group, cfg.Engine)
	registerTimeEntries(group, cfg.Engine)
	registerTimesheets(group, cfg.Engine)
	registerWorkers(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var verr domain.ValidationError
	if errors.As(err, &verr) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": verr.Field, "reason": verr.Reason})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	var rerr report.RenderError
	if errors.As(err, &rerr) {
		return newAPIError(http.StatusInternalServerError, "export_failed", err.Error(), map[string]any{"format": rerr.Format})
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Orderline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerWorkOrders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-work-order",
		Method:        http.MethodPost,
		Path:          "/workorders",
		Summary:       "Create work order",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkOrderRequest `json:"body"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		workerID, authErr := workerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.CreateWorkOrder(ctx, engine.WorkOrderCreateOptions{
			ID:          stringOrEmpty(input.Body.ID),
			Title:       input.Body.Title,
			Status:      stringOrEmpty(input.Body.Status),
			Description: stringOrEmpty(input.Body.Description),
			StartDate:   stringOrEmpty(input.Body.StartDate),
			DueDate:     stringOrEmpty(input.Body.DueDate),
			ActorID:     workerID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: workOrderResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-work-orders",
		Method:      http.MethodGet,
		Path:        "/workorders",
		Summary:     "List work orders",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Status    string `query:"status"`
		CreatedBy string `query:"created_by"`
		Limit     int    `query:"limit" default:"50"`
	}) (*struct {
		Body []WorkOrderResponse `json:"body"`
	}, error) {
		if input.Status != "" && !domain.ValidStatus(input.Status) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "unknown status "+input.Status, map[string]any{"field": "status"})
		}
		items, err := e.Repo.ListWorkOrders(ctx, repo.WorkOrderFilters{
			Status:    input.Status,
			CreatedBy: input.CreatedBy,
			Limit:     input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []WorkOrderResponse `json:"body"`
		}{Body: mapWorkOrders(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-work-order",
		Method:      http.MethodGet,
		Path:        "/workorders/{id}",
		Summary:     "Get work order",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		w, err := e.Repo.GetWorkOrder(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: workOrderResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-work-order",
		Method:      http.MethodPatch,
		Path:        "/workorders/{id}",
		Summary:     "Update work order",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body UpdateWorkOrderRequest `json:"body"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		workerID, authErr := workerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.UpdateWorkOrder(ctx, input.ID, engine.WorkOrderUpdateOptions{
			Title:       input.Body.Title,
			Status:      input.Body.Status,
			Description: input.Body.Description,
			StartDate:   input.Body.StartDate,
			DueDate:     input.Body.DueDate,
			ActorID:     workerID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: workOrderResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-work-order",
		Method:      http.MethodDelete,
		Path:        "/workorders/{id}",
		Summary:     "Delete work order and its entries",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		workerID, authErr := workerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteWorkOrder(ctx, input.ID, workerID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTimeEntries(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-time",
		Method:        http.MethodPost,
		Path:          "/workorders/{id}/entries",
		Summary:       "Register time against a work order",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body RegisterTimeRequest `json:"body"`
	}) (*struct {
		Body TimeEntryResponse `json:"body"`
	}, error) {
		workerID, authErr := workerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		// Registering on someone else's behalf is allowed; default to the
		// authenticated worker.
		if input.Body.WorkerID != nil && *input.Body.WorkerID != "" {
			workerID = *input.Body.WorkerID
		}
		entry, err := e.RegisterTime(ctx, engine.RegisterTimeOptions{
			WorkOrderID: input.ID,
			WorkerID:    workerID,
			Date:        input.Body.Date,
			Start:       stringOrEmpty(input.Body.Start),
			End:         stringOrEmpty(input.Body.End),
			Break:       stringOrEmpty(input.Body.Break),
			Travel:      stringOrEmpty(input.Body.Travel),
			Description: stringOrEmpty(input.Body.Description),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TimeEntryResponse `json:"body"`
		}{Body: timeEntryResponse(entry)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-time-entry",
		Method:      http.MethodGet,
		Path:        "/entries/{id}",
		Summary:     "Get time entry",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body TimeEntryResponse `json:"body"`
	}, error) {
		entry, err := e.Repo.GetTimeEntry(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TimeEntryResponse `json:"body"`
		}{Body: timeEntryResponse(entry)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-time-entries",
		Method:      http.MethodGet,
		Path:        "/workorders/{id}/entries",
		Summary:     "List a work order's time entries",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
		PeriodQuery
	}) (*struct {
		Body []TimeEntryResponse `json:"body"`
	}, error) {
		sel, err := input.selector()
		if err != nil {
			return nil, handleError(err)
		}
		if _, err := e.Repo.GetWorkOrder(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		var fetchRange *repo.DateRange
		if sel.Kind != timesheet.KindNone && sel.Kind != "" {
			rng, err := sel.Resolve()
			if err != nil {
				return nil, handleError(err)
			}
			fetchRange = &repo.DateRange{Start: rng.Start, End: rng.End}
		}
		entries, err := e.Repo.FetchTimeEntries(ctx, input.ID, fetchRange)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]TimeEntryResponse, 0, len(entries))
		for _, entry := range entries {
			res = append(res, timeEntryResponse(entry))
		}
		return &struct {
			Body []TimeEntryResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-time-entry",
		Method:      http.MethodPatch,
		Path:        "/entries/{id}",
		Summary:     "Update time entry",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body UpdateTimeEntryRequest `json:"body"`
	}) (*struct {
		Body TimeEntryResponse `json:"body"`
	}, error) {
		workerID, authErr := workerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		entry, err := e.UpdateTimeEntry(ctx, input.ID, engine.TimeEntryUpdateOptions{
			Date:        input.Body.Date,
			Start:       input.Body.Start,
			End:         input.Body.End,
			ClearEnd:    input.Body.ClearEnd,
			Break:       input.Body.Break,
			Travel:      input.Body.Travel,
			Description: input.Body.Description,
			ActorID:     workerID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TimeEntryResponse `json:"body"`
		}{Body: timeEntryResponse(entry)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-time-entry",
		Method:      http.MethodDelete,
		Path:        "/entries/{id}",
		Summary:     "Delete time entry",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		workerID, authErr := workerIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTimeEntry(ctx, input.ID, workerID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

type PeriodQuery struct {
	Day   string `query:"day" doc:"Scope to one calendar day (2006-01-02)"`
	Week  string `query:"week" doc:"Scope to the Monday-started week containing this date"`
	Month string `query:"month" doc:"Scope to one calendar month (2006-01)"`
}

func (q PeriodQuery) selector() (timesheet.Selector, error) {
	return timesheet.ParseSelector(q.Day, q.Week, q.Month)
}

func registerTimesheets(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "work-order-timesheet",
		Method:      http.MethodGet,
		Path:        "/workorders/{id}/timesheet",
		Summary:     "Timesheet for a work order",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
		PeriodQuery
	}) (*struct {
		Body TimesheetResponse `json:"body"`
	}, error) {
		sel, err := input.selector()
		if err != nil {
			return nil, handleError(err)
		}
		res, err := e.Timesheet(ctx, input.ID, sel)
		if err != nil {
			return nil, handleError(err)
		}
		names, err := e.Repo.WorkerNames(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TimesheetResponse `json:"body"`
		}{Body: timesheetResponse(input.ID, res, names)}, nil
	})

	type exportOutput struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}
	huma.Register(api, huma.Operation{
		OperationID: "export-work-order-timesheet",
		Method:      http.MethodGet,
		Path:        "/workorders/{id}/timesheet/export",
		Summary:     "Export timesheet as spreadsheet or document",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID     string `path:"id"`
		Format string `query:"format" default:"xlsx" enum:"xlsx,html"`
		PeriodQuery
	}) (*exportOutput, error) {
		sel, err := input.selector()
		if err != nil {
			return nil, handleError(err)
		}
		data, filename, err := e.ExportTimesheet(ctx, input.ID, sel, input.Format)
		if err != nil {
			return nil, handleError(err)
		}
		return &exportOutput{
			ContentType:        report.ContentType(input.Format),
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", filename),
			Body:               data,
		}, nil
	})
}

func registerWorkers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "upsert-worker",
		Method:        http.MethodPost,
		Path:          "/workers",
		Summary:       "Create or rename worker",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body UpsertWorkerRequest `json:"body"`
	}) (*struct {
		Body WorkerResponse `json:"body"`
	}, error) {
		if _, authErr := workerIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if input.Body.ID == "" || input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "id and name are required", nil)
		}
		w := domain.Worker{
			ID:        input.Body.ID,
			Name:      input.Body.Name,
			CreatedAt: e.Now().UTC().Format(time.RFC3339),
		}
		if err := e.Repo.UpsertWorker(ctx, w); err != nil {
			return nil, handleError(err)
		}
		stored, err := e.Repo.GetWorker(ctx, w.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkerResponse `json:"body"`
		}{Body: workerResponse(stored)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workers",
		Method:      http.MethodGet,
		Path:        "/workers",
		Summary:     "List workers",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []WorkerResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListWorkers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]WorkerResponse, 0, len(items))
		for _, w := range items {
			res = append(res, workerResponse(w))
		}
		return &struct {
			Body []WorkerResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/workers/{id}/api-keys",
		Summary:       "Issue an API key for a worker",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body APIKeyResponse `json:"body"`
	}, error) {
		if _, authErr := workerIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if _, err := e.Repo.GetWorker(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		// The raw key is returned exactly once; only its hash is stored.
		raw := uuid.NewString() + uuid.NewString()
		key := domain.APIKey{
			ID:        uuid.NewString(),
			WorkerID:  input.ID,
			Name:      input.Body.Name,
			KeyHash:   repo.HashAPIKey(raw),
			CreatedAt: e.Now().UTC().Format(time.RFC3339),
		}
		if err := e.Repo.InsertAPIKey(ctx, key); err != nil {
			return nil, handleError(err)
		}
		resp := apiKeyResponse(key)
		resp.Key = raw
		return &struct {
			Body APIKeyResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/workers/{id}/api-keys",
		Summary:     "List a worker's API keys",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body []APIKeyResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetWorker(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		keys, err := e.Repo.ListAPIKeys(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]APIKeyResponse, 0, len(keys))
		for _, k := range keys {
			res = append(res, apiKeyResponse(k))
		}
		return &struct {
			Body []APIKeyResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/api-keys/{id}",
		Summary:     "Revoke an API key",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if _, authErr := workerIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteAPIKey(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Latest audit events",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit      int    `query:"limit" default:"50"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 || limit > 500 {
			limit = 50
		}
		items, err := e.Repo.LatestEvents(ctx, limit, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]EventResponse, 0, len(items))
		for _, ev := range items {
			res = append(res, eventResponse(ev))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: res}, nil
	})
}
