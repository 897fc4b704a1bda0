package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"eva/internal/actions"
	"eva/internal/config"
	"eva/internal/generate"
	"eva/internal/monitor"
	"eva/internal/router"
	"eva/internal/search"
	"eva/internal/state"
	"eva/internal/store"
	"eva/internal/stream"
	"eva/internal/tasks"
)

var (
	// Global flags
	verbose      bool
	dataDir      string
	commandsPath string
	provider     string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "eva",
	Short: "EVA - natural-language desktop assistant",
	Long: `EVA routes free-text commands to desktop actions.

An utterance is classified into an instantaneous action (time, sites,
volume, music, calculation), a long-running background task (program
search, deletion, reorganization, reminders, alarms, grayscaling), or
plain conversation, and the response streams back token by token.

Run without arguments to start the interactive prompt.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssistant(cmd.Context())
	},
}

// askCmd answers a single utterance and exits.
var askCmd = &cobra.Command{
	Use:   "ask [utterance]",
	Short: "Process one utterance and print the streamed response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.close()
		app.answer(cmd.Context(), strings.Join(args, " "))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "settings and database directory (default ~/.eva)")
	rootCmd.PersistentFlags().StringVar(&commandsPath, "commands", "", "YAML file overriding the built-in command table")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "deepseek", "chat provider: deepseek or gemini")
	rootCmd.AddCommand(askCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds the wired assistant.
type app struct {
	st         *state.Shared
	router     *router.Router
	controller *stream.Controller
	settings   *config.Manager
	db         *store.Store
	stops      []func()
}

func buildApp(ctx context.Context) (*app, error) {
	dir := dataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		dir = filepath.Join(home, ".eva")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	settings, err := config.Load(dir, logger)
	if err != nil {
		return nil, err
	}
	if err := settings.Watch(); err != nil {
		logger.Warn("settings hot-reload unavailable", zap.Error(err))
	}

	db, err := store.Open(filepath.Join(dir, "eva.db"))
	if err != nil {
		return nil, err
	}

	st := state.New()
	st.SetSink(&consoleSink{})

	acts := actions.New(logger, actions.Options{
		State:    st,
		Store:    db,
		Settings: settings,
	})

	var table *router.Table
	if commandsPath != "" {
		table, err = router.LoadTable(commandsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load command table: %w", err)
		}
	}
	rt := router.New(logger, st, acts, db, table)

	engine := search.New(logger, search.Options{
		State:   st,
		Objects: db,
	})

	formatter, chat := buildGenerators(ctx, settings)

	registry := tasks.Registry(logger, tasks.Options{
		State:  st,
		Store:  db,
		Search: engine,
	})

	controller := stream.NewController(logger, stream.Options{
		State:     st,
		Formatter: formatter,
		Chat:      chat,
		Tasks:     registry,
	})

	a := &app{
		st:         st,
		router:     rt,
		controller: controller,
		settings:   settings,
		db:         db,
	}
	a.stops = append(a.stops,
		monitor.NewAlarm(logger, st).Start(ctx),
		monitor.NewGrayscale(logger, st).Start(ctx),
	)
	return a, nil
}

// buildGenerators picks providers from the environment. With no key
// configured the assistant answers with unformatted passthrough text
// instead of refusing to start.
func buildGenerators(ctx context.Context, settings *config.Manager) (formatter, chat generate.TokenGenerator) {
	formatter = generate.Passthrough{}
	chat = generate.Passthrough{}

	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
		client := generate.NewClient(logger, generate.DefaultClientConfig(key))
		formatter = generate.NewFormatter(client, settings.Language)
		chat = generate.NewChat(client)
	}

	if provider == "gemini" {
		gemini, err := generate.NewGemini(ctx, os.Getenv("GEMINI_API_KEY"), "")
		if err != nil {
			logger.Warn("Gemini unavailable, falling back", zap.Error(err))
		} else {
			chat = gemini
		}
	}
	return formatter, chat
}

func (a *app) answer(ctx context.Context, utterance string) {
	decision := a.router.Process(utterance)
	a.controller.Run(ctx, decision)
}

func (a *app) close() {
	for _, stop := range a.stops {
		stop()
	}
	a.st.StopSearch()
	if err := a.db.Close(); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
	if err := a.settings.Close(); err != nil {
		logger.Warn("failed to close settings watcher", zap.Error(err))
	}
}

func runAssistant(ctx context.Context) error {
	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	fmt.Println("EVA is listening. Type a command, or \"exit\" to leave.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if ctx.Err() != nil {
			break
		}
		app.answer(ctx, line)
	}
	return scanner.Err()
}

// consoleSink renders the stream on stdout. Monitor notifications print
// as their own lines so they never merge into an in-flight response.
type consoleSink struct{}

func (consoleSink) StreamStarted()          { fmt.Print("eva> ") }
func (consoleSink) ChunkReady(token string) { fmt.Print(token) }
func (consoleSink) StreamFinished()         { fmt.Println() }
func (consoleSink) Notify(message string)   { fmt.Printf("\n[eva] %s\n", message) }
