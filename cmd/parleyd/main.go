// Parleyd serves a policy-bounded, tool-grounded assistant over HTTP.
//
// It wires together from a YAML config file:
//   - a behavior contract (persona, scope, refusal, fallback)
//   - a reasoning engine (OpenAI or Anthropic)
//   - a file-backed FAQ knowledge store with optional hot reload
//   - the orchestration runner with bounded tool iterations
//
// Run with -repl for an interactive terminal session instead of the HTTP
// server. The REPL understands "reset" and "quit".
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/rs/zerolog"

	"github.com/parley-ai/parley/config"
	"github.com/parley-ai/parley/contract"
	"github.com/parley-ai/parley/engine"
	engineanthropic "github.com/parley-ai/parley/engine/anthropic"
	engineopenai "github.com/parley-ai/parley/engine/openai"
	"github.com/parley-ai/parley/knowledge"
	"github.com/parley-ai/parley/logging"
	"github.com/parley-ai/parley/runner"
	"github.com/parley-ai/parley/server"
	"github.com/parley-ai/parley/session"
	"github.com/parley-ai/parley/tool"
)

func main() {
	configPath := flag.String("config", "parley.yaml", "path to the YAML config file")
	repl := flag.Bool("repl", false, "run an interactive terminal session instead of the HTTP server")
	flag.Parse()

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}
	zlog = zlog.Level(parseLevel(cfg.Logging.Level))

	c, err := contract.LoadFile(cfg.Contract.File)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load behavior contract")
	}

	eng, err := buildEngine(cfg.Engine)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to build reasoning engine")
	}

	logger := logging.NewZerologAdapter(zlog)

	store, err := knowledge.NewStore(cfg.Knowledge.Dir, func(o *knowledge.Options) {
		o.Logger = logger
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load knowledge store")
	}
	zlog.Info().Int("documents", store.Len()).Str("dir", cfg.Knowledge.Dir).Msg("knowledge store loaded")

	registry, err := tool.NewRegistry(store.Tool())
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to build tool registry")
	}

	sessions := session.NewInMemoryStore(func(o *session.Options) {
		o.TTL = cfg.Session.TTL.Std()
		o.SweepInterval = cfg.Session.SweepInterval.Std()
		o.Logger = logger
	})

	run := runner.New(c, eng, registry, sessions, func(o *runner.Options) {
		o.IterationBudget = cfg.Runner.IterationBudget
		o.EngineTimeout = cfg.Runner.EngineTimeout.Std()
		o.ToolTimeout = cfg.Runner.ToolTimeout.Std()
		o.Logger = logger
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Session.TTL.Std() > 0 {
		sessions.StartJanitor(ctx)
	}
	if cfg.Knowledge.Watch {
		go func() {
			if err := store.Watch(ctx); err != nil && ctx.Err() == nil {
				zlog.Warn().Err(err).Msg("knowledge watcher stopped")
			}
		}()
	}

	if *repl {
		runREPL(ctx, run)
		return
	}

	srv := server.New(run, func(o *server.Options) { o.Logger = zlog })
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zlog.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	zlog.Info().Str("addr", cfg.Server.Addr).Str("provider", eng.Info().Provider).Msg("parleyd listening")
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		zlog.Fatal().Err(err).Msg("server failed")
	}
}

func buildEngine(cfg config.EngineConfig) (engine.Engine, error) {
	switch cfg.Provider {
	case "openai":
		return engineopenai.New(func(o *engineopenai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.MaxTokens)
			}
		}), nil
	case "anthropic":
		return engineanthropic.New(func(o *engineanthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.MaxTokens)
			}
			o.APIKey = cfg.APIKey
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine provider %q", cfg.Provider)
	}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func runREPL(ctx context.Context, run *runner.Runner) {
	fmt.Println("parley: ask about release freeze and SEV1 policy. Type 'reset' to clear the session, 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "quit", "exit":
			return
		case "reset":
			run.ResetSession("")
			fmt.Println("session cleared")
			continue
		}

		res, err := run.SubmitTurn(ctx, "", line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(res.Answer)
	}
}
