package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/studylog/internal/analytics"
	"github.com/sadopc/studylog/internal/api"
	"github.com/sadopc/studylog/internal/client"
	"github.com/sadopc/studylog/internal/config"
	"github.com/sadopc/studylog/internal/export"
	"github.com/sadopc/studylog/internal/store"
	"github.com/sadopc/studylog/internal/tui"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal UI (default)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTUI(opts)
		},
	}
}

func runTUI(opts *rootOptions) error {
	env, err := openRuntime(opts, true)
	if err != nil {
		return err
	}
	defer env.Close()

	app := tui.NewApp(env.repo, tui.Options{
		Logger: env.log,
		Policy: env.cfg.Policy,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API over the local database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.remote != "" {
				return errors.New("serve needs a local database; drop --remote")
			}
			env, err := openRuntime(opts, false)
			if err != nil {
				return err
			}
			defer env.Close()
			if _, ok := env.repo.(*client.Client); ok {
				return errors.New("serve needs a local database; unset api_url")
			}

			if addr == "" {
				addr = env.cfg.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := api.NewServer(env.repo, api.WithLogger(env.log))
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :5001)")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var days, top int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print study analytics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(opts, false)
			if err != nil {
				return err
			}
			defer env.Close()

			report, err := loadReport(cmd.Context(), env.repo, days, top)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "days in the daily breakdown")
	cmd.Flags().IntVar(&top, "top", 5, "number of topics to rank")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// loadReport asks the server when talking to one, otherwise computes locally.
func loadReport(ctx context.Context, repo store.Repository, days, top int) (*analytics.Report, error) {
	if c, ok := repo.(*client.Client); ok {
		return c.Analytics(ctx, days, top)
	}
	sessions, err := repo.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	subjects, err := repo.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	report := analytics.BuildReport(sessions, subjects, days, top, time.Now(), time.Local)
	return &report, nil
}

func printReport(w io.Writer, r *analytics.Report) {
	_, _ = fmt.Fprintf(w, "sessions: %d\ttotal: %.1fh\tavg rating: %.1f\n", r.Summary.TotalSessions, r.Summary.TotalHours, r.Summary.AvgProductivity)
	_, _ = fmt.Fprintf(w, "today: %d sessions, %.1fh\n", r.Today.TotalSessions, r.Today.TotalHours)
	_, _ = fmt.Fprintf(w, "streak: %d days (longest %d)\n", r.CurrentStreak, r.LongestStreak)

	_, _ = fmt.Fprintln(w, "\ndaily:")
	for _, b := range r.Daily {
		_, _ = fmt.Fprintf(w, "  %s\t%.1fh\t%d sessions\tavg %.1f\n", b.Date, b.TotalHours, b.Sessions, b.AvgProductivity)
	}
	if len(r.Topics) > 0 {
		_, _ = fmt.Fprintln(w, "\ntop topics:")
		for i, t := range r.Topics {
			_, _ = fmt.Fprintf(w, "  %d. %s\t%.1fh\t%d sessions\n", i+1, t.Topic, t.TotalHours, t.SessionCount)
		}
	}
	if len(r.Subjects) > 0 {
		_, _ = fmt.Fprintln(w, "\nsubjects:")
		for _, s := range r.Subjects {
			_, _ = fmt.Fprintf(w, "  %s\t%.1fh\t%d sessions\n", s.Name, s.TotalHours, s.Sessions)
		}
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export sessions as CSV or JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q: want csv or json", format)
			}
			env, err := openRuntime(opts, false)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			sessions, err := env.repo.ListSessions(ctx)
			if err != nil {
				return err
			}
			subjects, err := env.repo.ListSubjects(ctx)
			if err != nil {
				return err
			}
			index := export.SubjectIndex(subjects)

			if out == "-" {
				if format == "csv" {
					return export.WriteCSV(cmd.OutOrStdout(), sessions, index)
				}
				return export.WriteJSON(cmd.OutOrStdout(), sessions, index, time.Now())
			}
			if out == "" {
				out = fmt.Sprintf("studylog-export-%s.%s", time.Now().Format("2006-01-02"), format)
			}
			if format == "csv" {
				err = export.ToCSV(sessions, index, out)
			} else {
				err = export.ToJSON(sessions, index, out)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d sessions to %s\n", len(sessions), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv|json")
	cmd.Flags().StringVar(&out, "out", "", "output file, - for stdout (default studylog-export-DATE.FORMAT)")
	return cmd
}

func newSubjectCmd(opts *rootOptions) *cobra.Command {
	subject := &cobra.Command{Use: "subject", Short: "Manage subjects"}

	subject.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List subjects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(opts, false)
			if err != nil {
				return err
			}
			defer env.Close()
			subjects, err := env.repo.ListSubjects(cmd.Context())
			if err != nil {
				return err
			}
			if len(subjects) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no subjects")
				return nil
			}
			for _, s := range subjects {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", s.ID, s.Color, s.Name)
			}
			return nil
		},
	})

	var color string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openRuntime(opts, false)
			if err != nil {
				return err
			}
			defer env.Close()
			s, err := env.repo.CreateSubject(cmd.Context(), args[0], color)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", s.Name, s.ID)
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", store.DefaultSubjectColor, "hex color #RRGGBB")

	subject.AddCommand(add, &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a subject; its sessions are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openRuntime(opts, false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.repo.DeleteSubject(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		},
	})
	return subject
}

func newTodoCmd(opts *rootOptions) *cobra.Command {
	todo := &cobra.Command{Use: "todo", Short: "Manage todos"}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List open todos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openRuntime(opts, false)
			if err != nil {
				return err
			}
			defer env.Close()
			var f store.TodoFilter
			if !all {
				open := false
				f.Completed = &open
			}
			todos, err := env.repo.ListTodos(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(todos) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no todos")
				return nil
			}
			for _, t := range todos {
				box := "[ ]"
				if t.Completed {
					box = "[x]"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s %s\n", t.ID, box, t.Text)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include completed todos")

	var subjectID string
	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Create a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openRuntime(opts, false)
			if err != nil {
				return err
			}
			defer env.Close()
			var sid *string
			if subjectID != "" {
				sid = &subjectID
			}
			t, err := env.repo.CreateTodo(cmd.Context(), args[0], sid)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", t.ID)
			return nil
		},
	}
	add.Flags().StringVar(&subjectID, "subject", "", "subject id")

	done := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a todo completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openRuntime(opts, false)
			if err != nil {
				return err
			}
			defer env.Close()
			completed := true
			if _, err := env.repo.UpdateTodo(cmd.Context(), args[0], store.TodoPatch{Completed: &completed}); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "completed", args[0])
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openRuntime(opts, false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.repo.DeleteTodo(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		},
	}

	todo.AddCommand(list, add, done, rm)
	return todo
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Inspect or create the config file"}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "db_path: %s\naddr: %s\napi_url: %s\nlog_level: %s\nlog_file: %s\ncompletion_policy: %s\n",
				cfg.DBPath, cfg.Addr, cfg.APIURL, cfg.LogLevel, cfg.LogFile, cfg.Policy)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "wrote", filepath.Clean(path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)
	return cfgCmd
}
