package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/toolflow"
	"github.com/aretw0/toolflow/internal/config"
	"github.com/aretw0/toolflow/internal/logging"
	"github.com/aretw0/toolflow/pkg/domain"
	"github.com/aretw0/toolflow/pkg/flow"
	"github.com/aretw0/toolflow/pkg/observability"
	"github.com/aretw0/toolflow/pkg/ports"
)

// Exit codes of the run command.
const (
	ExitOK           = 0
	ExitFault        = 1
	ExitDecodeFailed = 2
)

// Options carries command line overrides on top of the config file.
type Options struct {
	ConfigPath  string
	Servers     []string
	Provider    string
	Model       string
	AnswerFile  string
	NoConsole   bool
	MetricsAddr string
	Debug       bool

	Stdout io.Writer
	Stderr io.Writer

	// Completer replaces the configured provider. Used by tests and embedders.
	Completer ports.Completer
}

func (o Options) withDefaults() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

// Env is everything a command needs, resolved from config and flags.
type Env struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Sinks   *Sinks

	completer ports.Completer
	closers   []func() error
}

// Close releases the model client and sink connections.
func (e *Env) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Setup loads the config, applies overrides and builds the collaborators.
// The completer is built only when needModel is set.
func Setup(ctx context.Context, opts Options, needModel bool) (*Env, error) {
	opts = opts.withDefaults()
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(&cfg, opts); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		level = slog.LevelDebug
	}

	env := &Env{
		Config:  cfg,
		Logger:  logging.NewWithWriter(opts.Stderr, level),
		Metrics: observability.NewMetrics(),
	}

	if needModel {
		env.completer = opts.Completer
		if env.completer == nil {
			c, closeFn, err := NewCompleter(ctx, cfg)
			if err != nil {
				return nil, err
			}
			env.completer = c
			env.closers = append(env.closers, closeFn)
		}
	}

	env.Sinks = NewSinks(cfg.Answer, opts.Stdout, opts.Stderr)
	env.closers = append(env.closers, env.Sinks.Close)
	return env, nil
}

func applyOverrides(cfg *config.Config, opts Options) error {
	if len(opts.Servers) > 0 {
		cfg.Servers = nil
		for _, line := range opts.Servers {
			spec, err := domain.ParseLaunchSpec(line)
			if err != nil {
				return fmt.Errorf("invalid --server %q: %w", line, err)
			}
			cfg.Servers = append(cfg.Servers, config.Server{Command: spec.Command, Args: spec.Args})
		}
	}
	if opts.Provider != "" {
		cfg.Provider = opts.Provider
	}
	if opts.Model != "" {
		cfg.Model = opts.Model
	}
	if opts.AnswerFile != "" {
		cfg.Answer.File = opts.AnswerFile
	}
	if opts.NoConsole {
		cfg.Answer.Console = false
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	if len(cfg.Servers) == 0 {
		return errors.New("no tool servers configured (use --server or the config file)")
	}
	return cfg.Validate()
}

// Agent builds the agent for env.
func (e *Env) Agent() (*toolflow.Agent, error) {
	completer := e.completer
	if completer == nil {
		// Discovery never asks the model.
		completer = ports.CompleterFunc(func(context.Context, string) (string, error) {
			return "", errors.New("no language model configured")
		})
	}
	return toolflow.New(
		toolflow.WithCompleter(completer),
		toolflow.WithConnector(NewLauncher(e.Config.Timeouts, e.Logger)),
		toolflow.WithServers(e.Config.LaunchSpecs()...),
		toolflow.WithAnswerSink(e.Sinks.Answers),
		toolflow.WithErrorSink(e.Sinks.Errors),
		toolflow.WithLogger(e.Logger),
		toolflow.WithRetry(e.Config.Retry.Attempts, e.Config.Retry.Wait),
		toolflow.WithLifecycleHooks(flow.ChainHooks(observability.LogHooks(e.Logger), e.Metrics.Hooks())),
	)
}

// Run answers question and maps the result to an exit code.
func Run(ctx context.Context, opts Options, question string) (int, error) {
	opts = opts.withDefaults()
	env, err := Setup(ctx, opts, true)
	if err != nil {
		return ExitFault, err
	}
	defer env.Close()

	if env.Config.MetricsAddr != "" {
		metricsCtx, stop := context.WithCancel(ctx)
		defer stop()
		ServeMetrics(metricsCtx, env.Config.MetricsAddr, NewMetricsHandler(env.Metrics.Registry()), env.Logger)
	}

	a, err := env.Agent()
	if err != nil {
		return ExitFault, err
	}

	res, err := a.Run(ctx, question)
	if err != nil {
		if Interrupted(err) {
			env.Logger.Info("run interrupted")
		}
		return ExitFault, err
	}

	env.Logger.Info("run finished",
		"run_id", res.RunID,
		"path", res.Report.Path,
		"outcome", res.Report.Outcome,
	)
	if res.DecodeFailed() {
		return ExitDecodeFailed, fmt.Errorf("no answer: %w", res.Shared.DecodeErr)
	}
	return ExitOK, nil
}

// ListTools prints the tool catalog of the configured servers.
func ListTools(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()
	env, err := Setup(ctx, opts, false)
	if err != nil {
		return err
	}
	defer env.Close()

	a, err := env.Agent()
	if err != nil {
		return err
	}
	catalog, err := a.Discover(ctx)
	if err != nil {
		return err
	}
	if len(catalog) == 0 {
		fmt.Fprintln(opts.Stdout, "No tools found.")
		return nil
	}
	_, err = fmt.Fprintln(opts.Stdout, catalog.Summary())
	return err
}
