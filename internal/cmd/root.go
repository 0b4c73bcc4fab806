// Package cmd provides the wsmongo command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wsdb/wsmongo/internal/config"
	"github.com/wsdb/wsmongo/internal/docker"
	"github.com/wsdb/wsmongo/internal/mongodb"
	"github.com/wsdb/wsmongo/internal/prompt"
	"github.com/wsdb/wsmongo/internal/proxy"
	"github.com/wsdb/wsmongo/internal/registry"
	"github.com/wsdb/wsmongo/internal/style"
)

// Command groups shown in help.
const (
	GroupDatabases = "databases"
	GroupBackups   = "backups"
	GroupDiag      = "diag"
)

var (
	homeFlag    string
	verboseFlag bool
	noInputFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "wsmongo",
	Short: "Manage MongoDB databases running in docker",
	Long: `wsmongo runs named MongoDB databases as docker containers on the
workspace network, keeps a mongo-express console pointed at the first running
one, and streams backups in and out of them.

State lives in ~/.wsmongo (override with --home or WSMONGO_HOME).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          requireSubcommand,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupDatabases, Title: "Databases:"},
		&cobra.Group{ID: GroupBackups, Title: "Backups:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "State directory (default $WSMONGO_HOME or ~/.wsmongo)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log docker operations")
	rootCmd.PersistentFlags().BoolVar(&noInputFlag, "no-input", false, "Never prompt; fail when input is missing")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", style.ErrorPrefix, err)
		return 1
	}
	return 0
}

// requireSubcommand shows help when a parent command is run on its own.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
}

// Swapped out in tests.
var (
	newEngine = func(settings *config.Settings, logger *zap.Logger) docker.Engine {
		return docker.NewCLI(settings.DockerBinary, logger)
	}
	newPrompter = func(cmd *cobra.Command) prompt.Prompter {
		if noInputFlag {
			return prompt.NonInteractive{}
		}
		return prompt.ForTerminal(os.Stdin, cmd.ErrOrStderr())
	}
)

// app is what a command needs to talk to the registry and the engine.
type app struct {
	settings *config.Settings
	logger   *zap.Logger
	service  *mongodb.Service
}

func loadSettings() (*config.Settings, error) {
	home, err := config.ResolveHome(homeFlag)
	if err != nil {
		return nil, err
	}
	return config.Load(home)
}

func newApp(cmd *cobra.Command) (*app, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	logger := newLogger(verboseFlag)

	reg, err := registry.Load(registry.NewFileStore(settings.RegistryPath()))
	if err != nil {
		return nil, err
	}

	engine := newEngine(settings, logger)
	notifier := proxy.Multi{proxy.NewContainerNotifier(engine, settings.Proxy.Container, logger)}
	if settings.Proxy.WebhookURL != "" {
		notifier = append(notifier, proxy.NewWebhookNotifier(settings.Proxy.WebhookURL, settings.Proxy.WebhookRetries, logger))
	}

	return &app{
		settings: settings,
		logger:   logger,
		service:  mongodb.NewService(settings, reg, engine, newPrompter(cmd), notifier, logger),
	}, nil
}

// newLogger logs to stderr in console format: warnings by default,
// everything with --verbose.
func newLogger(verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core)
}

// argAt returns args[i], or "" when it was not given.
func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
