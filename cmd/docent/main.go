// Command docent drives a chat model through a codebase with file tools and
// asks it to document what it reads.
//
// Usage:
//
//	docent [flags] run [config.json] [codebase]
//	docent [flags] chat [config.json]
//
// The config file carries url, token, model and sampling settings; TOKEN in
// the environment (or in .env) overrides the token.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/universal-tool-calling-protocol/go-utcp"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/Protocol-Lattice/docent/pkg/agent"
	"github.com/Protocol-Lattice/docent/pkg/config"
	"github.com/Protocol-Lattice/docent/pkg/logging"
	"github.com/Protocol-Lattice/docent/pkg/models"
	"github.com/Protocol-Lattice/docent/pkg/runtime"
	"github.com/Protocol-Lattice/docent/pkg/tools"
)

var (
	flagLogLevel  = flag.String("log-level", "info", "Log level: debug|info|warn|error")
	flagNoColor   = flag.Bool("no-color", false, "Disable colored output")
	flagRate      = flag.Float64("rate", 0, "Maximum model turns per second (0 = unlimited)")
	flagUTCPQuery = flag.String("utcp-query", "", "Query used to discover UTCP tools")
	flagUTCPLimit = flag.Int("utcp-limit", 50, "Maximum number of UTCP tools to register")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	level, err := logging.ParseLevel(*flagLogLevel)
	if err != nil {
		fail(err)
	}
	color := !*flagNoColor && term.IsTerminal(int(os.Stdout.Fd()))
	log := logging.New(os.Stderr, level, color).With("run", uuid.NewString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	switch args[0] {
	case "run":
		err = runPipeline(ctx, log, newConsole(os.Stdout, color), arg(args, 1, config.DefaultPath), arg(args, 2, "."))
	case "chat":
		err = runChat(ctx, log, arg(args, 1, config.DefaultPath))
	default:
		usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fail(err)
	}
}

func arg(args []string, i int, def string) string {
	if len(args) > i && args[i] != "" {
		return args[i]
	}
	return def
}

func runPipeline(ctx context.Context, log *slog.Logger, out *console, configPath, codebase string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	root, err := canonical(codebase)
	if err != nil {
		return err
	}

	backend, err := models.NewBackend(ctx, cfg.Backend())
	if err != nil {
		return err
	}

	ts := tools.NewToolSet(tools.WithLogger(log))
	ts.MustRegister(tools.NewTree(tools.WithRoot(root)), tools.NewRead(tools.WithRoot(root)))
	if err := registerUTCP(ctx, log, ts, cfg.UTCPProviders); err != nil {
		return err
	}

	prompt, err := runtime.DocumentationPrompt(root, ts.Help())
	if err != nil {
		return err
	}
	out.section("PROMPT", prompt)

	ag, err := agent.New(backend,
		agent.WithSystemPrompt(prompt),
		agent.WithHistory(cfg.MaxHistory),
		agent.WithGeneration(cfg.Generation()),
		agent.WithProgress(out.w),
		agent.WithLogger(log),
	)
	if err != nil {
		return err
	}

	opts := []runtime.Option{
		runtime.WithMaxTurns(cfg.MaxTurns),
		runtime.WithLogger(log),
		runtime.WithObserver(out.observe),
	}
	if *flagRate > 0 {
		opts = append(opts, runtime.WithRateLimit(rate.Limit(*flagRate), 1))
	}

	res, err := runtime.New(ag, ts, opts...).Run(ctx)
	log.Info("run finished", "reason", res.Reason, "turns", res.Turns, "invocations", res.Invocations, "failures", res.Failures)
	return err
}

func runChat(ctx context.Context, log *slog.Logger, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	backend, err := models.NewBackend(ctx, cfg.Backend())
	if err != nil {
		return err
	}
	ag, err := agent.New(backend,
		agent.WithSystemPrompt(cfg.SystemPrompt),
		agent.WithHistory(cfg.MaxHistory),
		agent.WithGeneration(cfg.Generation()),
		agent.WithProgress(os.Stdout),
		agent.WithLogger(log),
	)
	if err != nil {
		return err
	}
	return runtime.NewChat(ag, os.Stdin, os.Stdout).Run(ctx)
}

// registerUTCP adds the tools offered by the UTCP providers file, if one is
// configured. Tools whose names clash with already registered ones are
// skipped.
func registerUTCP(ctx context.Context, log *slog.Logger, ts *tools.ToolSet, providers string) error {
	if providers == "" {
		return nil
	}
	client, err := utcp.NewUTCPClient(ctx, &utcp.UtcpClientConfig{ProvidersFilePath: providers}, nil, nil)
	if err != nil {
		return fmt.Errorf("utcp client: %w", err)
	}
	discovered, err := tools.LoadUTCP(ctx, client, *flagUTCPQuery, *flagUTCPLimit)
	if err != nil {
		return err
	}
	for _, tool := range discovered {
		if err := ts.Register(tool); err != nil {
			log.Warn("skipping utcp tool", "tool", tool.Schema().Name(), "err", err)
		}
	}
	log.Info("utcp tools loaded", "count", len(discovered))
	return nil
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("codebase: %w", err)
	}
	return resolved, nil
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage:\n  %[1]s [flags] run [config] [codebase]\n  %[1]s [flags] chat [config]\n\nFlags:\n", filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
