package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tianpeijun/email-mcp/internal/config"
	"github.com/tianpeijun/email-mcp/internal/factory"
	"github.com/tianpeijun/email-mcp/internal/logger"
	"github.com/tianpeijun/email-mcp/internal/toolserver"
)

var version = "dev"

// buildFunc wires the operation caller from a loaded config.
type buildFunc func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (toolserver.Caller, error)

func buildService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (toolserver.Caller, error) {
	return factory.Service(ctx, cfg, log)
}

type app struct {
	configPath string
	logLevel   string
	logFormat  string
	logOutput  io.Writer

	build  buildFunc
	caller toolserver.Caller
	logger zerolog.Logger
	stdin  io.Reader
}

// NewRootCmd returns the email-mcp command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{build: buildService, stdin: os.Stdin})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "email-mcp",
		Short:   "Multi-account email tools over MCP",
		Long:    `email-mcp exposes sending, reading, searching, deleting and replying to email as MCP tools over stdio, backed by SMTP+IMAP accounts or the Gmail API.`,
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runServe,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/email-mcp/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: json or console")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the email tools over stdio (default)",
			Args:  cobra.NoArgs,
			RunE:  a.runServe,
		},
		a.accountsCmd(),
		a.sendCmd(),
		a.readCmd(),
		a.searchCmd(),
		a.deleteCmd(),
		a.replyCmd(),
		a.callCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	format := cfg.Log.Format
	if a.logFormat != "" {
		format = a.logFormat
	}
	var writers []io.Writer
	if a.logOutput != nil {
		writers = append(writers, a.logOutput)
	}
	log, err := logger.New(level, format, writers...)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	a.logger = *log
	if cfg.Path != "" {
		a.logger.Debug().Str("path", cfg.Path).Msg("config loaded")
	}

	caller, err := a.build(cmd.Context(), cfg, a.logger)
	if err != nil {
		return err
	}
	a.caller = caller
	return nil
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	s := toolserver.New(a.caller, version, a.logger)
	return toolserver.Serve(cmd.Context(), s, a.stdin, cmd.OutOrStdout(), a.logger)
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
