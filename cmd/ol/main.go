package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"orderline/internal/app"
	"orderline/internal/config"
	"orderline/internal/db"
	"orderline/internal/domain"
	"orderline/internal/engine"
	"orderline/internal/repo"
	"orderline/internal/report"
	"orderline/internal/server"
	"orderline/internal/timesheet"
)

var rootCmd = &cobra.Command{
	Use:   "ol",
	Short: "Orderline CLI",
	Long: `Orderline tracks time against work orders and reports it per period.
- Workspace: your .orderline directory with the database; orderline.yml holds settings.
- Work orders: the jobs being executed (open -> in_progress -> completed, or on_hold).
- Time entries: one worked interval per worker per day; worked time is (end - start) - break. Travel time is recorded but never subtracted. An entry without an end is still running.
- Timesheets: filter a work order's entries by day, week (Monday start), or month and get per-worker totals plus a period total; export as spreadsheet or print document.
- Event log: diary of changes, view with 'ol log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ORDERLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("worker-id", "local-user", "acting worker identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("worker-id", rootCmd.PersistentFlags().Lookup("worker-id"))
}

func registerCommands() {
	rootCmd.AddCommand(workOrderCmd())
	rootCmd.AddCommand(timeCmd())
	rootCmd.AddCommand(timesheetCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func workOrderCmd() *cobra.Command {
	wo := &cobra.Command{Use: "workorder", Short: "Manage work orders"}
	wo.AddCommand(workOrderCreateCmd())
	wo.AddCommand(workOrderListCmd())
	wo.AddCommand(workOrderShowCmd())
	wo.AddCommand(workOrderUpdateCmd())
	wo.AddCommand(workOrderDeleteCmd())
	return wo
}

func workOrderCreateCmd() *cobra.Command {
	var opts engine.WorkOrderCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a work order",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("worker-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.CreateWorkOrder(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "work order id (optional, UUID if omitted)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status (open, in_progress, completed, on_hold)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.StartDate, "start-date", "", "start date (2006-01-02)")
	cmd.Flags().StringVar(&opts.DueDate, "due-date", "", "due date (2006-01-02)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func workOrderListCmd() *cobra.Command {
	var f repo.WorkOrderFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListWorkOrders(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Due", "Created By"})
				for _, w := range items {
					tw.AppendRow(table.Row{w.ID, w.Title, domain.StatusLabel(w.Status), w.DueDate, w.CreatedBy})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.CreatedBy, "created-by", "", "creator filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max results")
	return cmd
}

func workOrderShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a work order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.Repo.GetWorkOrder(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	return cmd
}

func workOrderUpdateCmd() *cobra.Command {
	var title, status, description, startDate, dueDate string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a work order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.WorkOrderUpdateOptions{ActorID: viper.GetString("worker-id")}
			if cmd.Flags().Changed("title") {
				opts.Title = &title
			}
			if cmd.Flags().Changed("status") {
				opts.Status = &status
			}
			if cmd.Flags().Changed("description") {
				opts.Description = &description
			}
			if cmd.Flags().Changed("start-date") {
				opts.StartDate = &startDate
			}
			if cmd.Flags().Changed("due-date") {
				opts.DueDate = &dueDate
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.UpdateWorkOrder(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&startDate, "start-date", "", "start date")
	cmd.Flags().StringVar(&dueDate, "due-date", "", "due date")
	return cmd
}

func workOrderDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a work order and its time entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteWorkOrder(ctx, args[0], viper.GetString("worker-id"))
			})
		},
	}
	return cmd
}

func timeCmd() *cobra.Command {
	t := &cobra.Command{
		Use:   "time",
		Short: "Register and maintain time entries",
		Long:  "Time entries record who worked when on a work order. Leaving --end off keeps the entry running; break defaults come from orderline.yml.",
	}
	t.AddCommand(timeRegisterCmd())
	t.AddCommand(timeUpdateCmd())
	t.AddCommand(timeDeleteCmd())
	return t
}

func timeRegisterCmd() *cobra.Command {
	var opts engine.RegisterTimeOptions
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register time against a work order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.WorkerID == "" {
				opts.WorkerID = viper.GetString("worker-id")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entry, err := e.RegisterTime(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(entry)
			})
		},
	}
	cmd.Flags().StringVar(&opts.WorkOrderID, "workorder", "", "work order id")
	cmd.Flags().StringVar(&opts.WorkerID, "worker", "", "worker id (defaults to --worker-id)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "date (2006-01-02)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "start time HH:MM (default from config)")
	cmd.Flags().StringVar(&opts.End, "end", "", "end time HH:MM (omit while still working)")
	cmd.Flags().StringVar(&opts.Break, "break", "", "break as HH:MM or minutes (default from config)")
	cmd.Flags().StringVar(&opts.Travel, "travel", "", "travel time as HH:MM or minutes")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	_ = cmd.MarkFlagRequired("workorder")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func timeUpdateCmd() *cobra.Command {
	var date, start, end, brk, travel, description string
	var clearEnd bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a time entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TimeEntryUpdateOptions{
				ClearEnd: clearEnd,
				ActorID:  viper.GetString("worker-id"),
			}
			if cmd.Flags().Changed("date") {
				opts.Date = &date
			}
			if cmd.Flags().Changed("start") {
				opts.Start = &start
			}
			if cmd.Flags().Changed("end") {
				opts.End = &end
			}
			if cmd.Flags().Changed("break") {
				opts.Break = &brk
			}
			if cmd.Flags().Changed("travel") {
				opts.Travel = &travel
			}
			if cmd.Flags().Changed("description") {
				opts.Description = &description
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entry, err := e.UpdateTimeEntry(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(entry)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date")
	cmd.Flags().StringVar(&start, "start", "", "start time")
	cmd.Flags().StringVar(&end, "end", "", "end time")
	cmd.Flags().BoolVar(&clearEnd, "clear-end", false, "reopen the entry (remove end time)")
	cmd.Flags().StringVar(&brk, "break", "", "break")
	cmd.Flags().StringVar(&travel, "travel", "", "travel time")
	cmd.Flags().StringVar(&description, "description", "", "description")
	return cmd
}

func timeDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a time entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTimeEntry(ctx, args[0], viper.GetString("worker-id"))
			})
		},
	}
	return cmd
}

func periodFlags(cmd *cobra.Command, day, week, month *string) {
	cmd.Flags().StringVar(day, "day", "", "scope to one day (2006-01-02)")
	cmd.Flags().StringVar(week, "week", "", "scope to the Monday-started week containing this date")
	cmd.Flags().StringVar(month, "month", "", "scope to one month (2006-01)")
}

func timesheetCmd() *cobra.Command {
	var day, week, month string
	cmd := &cobra.Command{
		Use:   "timesheet <workorder-id>",
		Short: "Show the timesheet for a work order",
		Long:  "Lists entries newest first. With --day, --week, or --month the per-worker totals and a period total are shown; open entries are listed but not counted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := timesheet.ParseSelector(day, week, month)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Timesheet(ctx, args[0], sel)
				if err != nil {
					return err
				}
				names, err := e.Repo.WorkerNames(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				renderTimesheet(res, names)
				return nil
			})
		},
	}
	periodFlags(cmd, &day, &week, &month)
	return cmd
}

func renderTimesheet(res timesheet.Result, names map[string]string) {
	if label := res.Period.Label(); label != "" {
		fmt.Println(label)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Date", "Worker", "Start", "End", "Break", "Travel", "Total", "Description"})
	for _, row := range res.Rows {
		e := row.Entry
		name := names[e.WorkerID]
		if name == "" {
			name = e.WorkerID
		}
		end, total := "", report.OpenMarker
		if !row.Open {
			end = *e.End
			total = timesheet.FormatHHMM(row.Minutes)
		}
		tw.AppendRow(table.Row{
			e.Date, name, e.Start, end,
			timesheet.FormatHHMM(e.BreakMinutes), timesheet.FormatHHMM(e.TravelMinutes),
			total, e.Description,
		})
	}
	if res.Filtered() {
		tw.AppendFooter(table.Row{"", "", "", "", "", "Total", timesheet.FormatHHMM(res.PeriodTotal), ""})
	}
	tw.Render()
	if len(res.Rows) == 0 {
		fmt.Println("No time entries registered.")
		return
	}
	if res.Filtered() {
		fmt.Println("Per worker:")
		for _, workerID := range sortedWorkerIDs(res.Grouped) {
			name := names[workerID]
			if name == "" {
				name = workerID
			}
			minutes := res.Grouped[workerID]
			fmt.Printf("  %s: %s (%s)\n", name, timesheet.FormatHHMM(minutes), timesheet.FormatHours(minutes))
		}
	}
}

func sortedWorkerIDs(grouped map[string]int) []string {
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func exportCmd() *cobra.Command {
	var day, week, month, format, out string
	cmd := &cobra.Command{
		Use:   "export <workorder-id>",
		Short: "Export a timesheet as spreadsheet or print document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := timesheet.ParseSelector(day, week, month)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				data, filename, err := e.ExportTimesheet(ctx, args[0], sel, format)
				if err != nil {
					return err
				}
				target := out
				if target == "" {
					target = filename
				}
				if err := os.WriteFile(target, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s (%d bytes)\n", target, len(data))
				return nil
			})
		},
	}
	periodFlags(cmd, &day, &week, &month)
	cmd.Flags().StringVar(&format, "format", report.FormatSpreadsheet, "xlsx or html")
	cmd.Flags().StringVar(&out, "out", "", "output path (default: workorder-<id>-timesheet.<ext>)")
	return cmd
}

func workerCmd() *cobra.Command {
	w := &cobra.Command{Use: "worker", Short: "Manage workers and API keys"}
	w.AddCommand(workerAddCmd())
	w.AddCommand(workerListCmd())
	w.AddCommand(workerKeyCmd())
	return w
}

func workerAddCmd() *cobra.Command {
	var id, name string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or rename a worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w := domain.Worker{
					ID:        id,
					Name:      name,
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := e.Repo.UpsertWorker(ctx, w); err != nil {
					return err
				}
				stored, err := e.Repo.GetWorker(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(stored)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "worker id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func workerListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListWorkers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Created"})
				for _, w := range items {
					tw.AppendRow(table.Row{w.ID, w.Name, w.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func workerKeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "key", Short: "Manage a worker's API keys"}
	k.AddCommand(workerKeyNewCmd())
	k.AddCommand(workerKeyListCmd())
	k.AddCommand(workerKeyRevokeCmd())
	return k
}

func workerKeyNewCmd() *cobra.Command {
	var workerID, name string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Issue an API key (printed once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if _, err := e.Repo.GetWorker(ctx, workerID); err != nil {
					return err
				}
				raw := uuid.NewString() + uuid.NewString()
				key := domain.APIKey{
					ID:        uuid.NewString(),
					WorkerID:  workerID,
					Name:      name,
					KeyHash:   repo.HashAPIKey(raw),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := e.Repo.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": key.ID, "worker_id": workerID, "key": raw})
				}
				fmt.Printf("API key for %s (store it now, it is not shown again):\n%s\n", workerID, raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&workerID, "worker", "", "worker id")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}

func workerKeyListCmd() *cobra.Command {
	var workerID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a worker's API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.Repo.ListAPIKeys(ctx, workerID)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	cmd.Flags().StringVar(&workerID, "worker", "", "worker id")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}

func workerKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "orderline.yml holds registration defaults (start time, break), the aggregation pushdown switch, and server settings.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default orderline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("Wrote", path)
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Config.Validate()
			})
			if viper.GetBool("json") {
				out := map[string]any{"ok": err == nil}
				if err != nil {
					out["error"] = err.Error()
				}
				return printJSON(out)
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: work order changes, registrations, deletions.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowWorkerHeader bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			e, conn, err := app.OpenEngine(workspace)
			if err != nil {
				return err
			}
			defer conn.Close()
			if !cmd.Flags().Changed("addr") && e.Config.Server.Addr != "" {
				addr = e.Config.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") && e.Config.Server.BasePath != "" {
				basePath = e.Config.Server.BasePath
			}
			authCfg := server.AuthConfig{
				JWTSecret:         os.Getenv("ORDERLINE_JWT_SECRET"),
				AllowWorkerHeader: allowWorkerHeader,
			}
			if authCfg.JWTSecret == "" && !allowWorkerHeader {
				return fmt.Errorf("ORDERLINE_JWT_SECRET is required for bearer auth (or pass --allow-worker-header for local use)")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Orderline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowWorkerHeader, "allow-worker-header", false, "accept X-Worker-Id without auth (local development)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	e, conn, err := app.OpenEngine(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, e)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
