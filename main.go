package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/sadopc/studylog/internal/client"
	"github.com/sadopc/studylog/internal/config"
	"github.com/sadopc/studylog/internal/logging"
	"github.com/sadopc/studylog/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	dbPath     string
	remote     string
	memory     bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "studylog",
		Short:         "Pomodoro study timer with session history and analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTUI(opts)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default: user config dir)/studylog/config.yaml")
	pf.StringVar(&opts.dbPath, "db", "", "SQLite database path")
	pf.StringVar(&opts.remote, "remote", "", "studylog API base URL to use instead of the local database")
	pf.BoolVar(&opts.memory, "memory", false, "keep everything in memory (nothing is saved)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: trace|debug|info|warn|error")

	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newSubjectCmd(opts))
	root.AddCommand(newTodoCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	return root
}

// appEnv is everything a command needs once flags, config and environment are resolved.
type appEnv struct {
	cfg     config.Config
	log     hclog.Logger
	repo    store.Repository
	closers []io.Closer
}

func (r *appEnv) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i].Close()
	}
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if opts.remote != "" {
		cfg.APIURL = opts.remote
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, nil
}

// openRuntime resolves configuration, builds the logger and opens the repository.
// logToFile sends logs to the configured log file, which the TUI needs because it
// owns the terminal.
func openRuntime(opts *rootOptions, logToFile bool) (*appEnv, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	rt := &appEnv{cfg: cfg}

	logOpts := logging.Options{Level: cfg.LogLevel}
	if logToFile && cfg.LogFile != "" {
		logger, closer, err := logging.NewFile(cfg.LogFile, logOpts)
		if err != nil {
			return nil, err
		}
		rt.log = logger
		rt.closers = append(rt.closers, closer)
	} else {
		rt.log = logging.New(logOpts)
	}

	repo, err := openRepo(cfg, opts.memory, rt.log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.repo = repo
	rt.closers = append(rt.closers, repo)
	return rt, nil
}

func openRepo(cfg config.Config, memory bool, log hclog.Logger) (store.Repository, error) {
	switch {
	case memory:
		log.Debug("using in-memory repository")
		return store.NewMemoryRepository(), nil
	case strings.TrimSpace(cfg.APIURL) != "":
		log.Debug("using remote repository", "url", cfg.APIURL)
		return client.New(cfg.APIURL, client.WithLogger(log))
	}

	path := cfg.DBPath
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	log.Debug("opening database", "path", path)
	s, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
