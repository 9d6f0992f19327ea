package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/interviewer/internal/evaluator"
	"github.com/pavelanni/interviewer/internal/handler"
	appI18n "github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/llm"
	"github.com/pavelanni/interviewer/internal/llm/prompts"
	"github.com/pavelanni/interviewer/internal/model"
	"github.com/pavelanni/interviewer/internal/profile"
	"github.com/pavelanni/interviewer/internal/questions"
	"github.com/pavelanni/interviewer/internal/session"
	"github.com/pavelanni/interviewer/internal/store"
	"github.com/pavelanni/interviewer/internal/telemetry"
)

var version = "dev"

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "interviewer",
		Short:   "Interview practice server with answer scoring and feedback",
		Version: version,
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), userCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `interviewer --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "interviewer.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP interview server",
		RunE:  runServe,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty disables the LLM)")
	f.String("llm-key", "", "API key for LLM")
	f.String("llm-model", "gpt-3.5-turbo", "LLM model name")
	f.Int("llm-retries", 3, "Attempts per LLM call, including the first")
	f.StringP("lang", "l", appI18n.DefaultLang, "Default feedback language (en, ru)")
	f.String("feedback-variant", string(prompts.PromptStandard), "Feedback prompt variant (strict, standard, lenient)")
	f.Int("min-answer-length", model.DefaultMinAnswerLength, "Answers shorter than this many characters get the short-answer score")
	f.Int("eval-workers", 4, "Parallel workers for batch evaluation")
	f.String("question-bank", "", "YAML question bank overriding the built-in one")
	f.String("admin-key", "", "Admin API key; its bcrypt hash is stored on startup")
	f.String("otel-endpoint", "", "OTLP/HTTP endpoint for traces (empty disables tracing)")
	f.Float64("otel-sample-ratio", 1, "Fraction of traces to sample")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all interview sessions as JSON",
		RunE:  runExport,
	}
	addCommonFlags(cmd)
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user profiles",
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user profile",
		RunE:  runUserCreate,
	}
	addCommonFlags(create)
	f := create.Flags()
	f.String("name", "", "Display name (required)")
	f.String("email", "", "Email address")
	f.String("domain", "Software Engineering", "Interview domain ("+strings.Join(model.SupportedDomains, ", ")+")")
	f.String("level", string(model.LevelBeginner), "Experience level (Beginner, Intermediate, Advanced)")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INTERVIEWER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("interviewer")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/interviewer")
	v.AddConfigPath("/etc/interviewer")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "interviewer", version, telemetry.Config{
		Endpoint:    v.GetString("otel-endpoint"),
		SampleRatio: v.GetFloat64("otel-sample-ratio"),
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("flush traces", "error", err)
		}
	}()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdminKey(db, v.GetString("admin-key")); err != nil {
		return fmt.Errorf("seed admin key: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	var sourceOpts []questions.Option
	if path := v.GetString("question-bank"); path != "" {
		bank, err := questions.LoadBank(path)
		if err != nil {
			return fmt.Errorf("load question bank: %w", err)
		}
		sourceOpts = append(sourceOpts, questions.WithBank(bank))
		slog.Info("loaded question bank", "path", path)
	}

	// The interfaces must stay nil when the LLM is disabled so callers
	// take their fallback paths.
	var (
		feedbackGen evaluator.FeedbackGenerator
		questionGen questions.Generator
	)
	if url := v.GetString("llm-url"); url != "" {
		retry := llm.DefaultRetryConfig()
		retry.MaxAttempts = max(1, v.GetInt("llm-retries"))
		client, err := llm.New(llm.Config{
			BaseURL: url,
			APIKey:  v.GetString("llm-key"),
			Model:   v.GetString("llm-model"),
			Variant: prompts.PromptVariant(strings.ToLower(strings.TrimSpace(v.GetString("feedback-variant")))),
			Retry:   retry,
		})
		if err != nil {
			return fmt.Errorf("create LLM client: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := client.Ping(pingCtx); err != nil {
			slog.Warn("LLM health check failed, fallbacks will be used when calls fail", "url", url, "error", err)
		} else {
			slog.Info("LLM endpoint OK", "url", url, "model", v.GetString("llm-model"))
		}
		cancel()
		feedbackGen, questionGen = client, client
	} else {
		slog.Info("no LLM configured, using question bank and rule-based feedback")
	}

	eval := evaluator.New(feedbackGen,
		evaluator.WithMinAnswerLength(v.GetInt("min-answer-length")),
		evaluator.WithWorkers(v.GetInt("eval-workers")),
	)
	sessions := session.New(db, questions.NewSource(questionGen, sourceOpts...), eval)
	h := handler.New(sessions, profile.New(db), eval, db)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(lang),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server",
			"addr", addr,
			"version", version,
			"llm_url", v.GetString("llm-url"),
			"model", v.GetString("llm-model"),
			"lang", lang,
			"feedback_variant", v.GetString("feedback-variant"),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.Export(time.Now())
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	slog.Info("exported sessions", "count", export.NumSessions, "export_id", export.ExportID, "output", outPath)
	return nil
}

func runUserCreate(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	u, err := profile.New(db).Create(cmd.Context(), model.User{
		Name:            v.GetString("name"),
		Email:           v.GetString("email"),
		Domain:          v.GetString("domain"),
		ExperienceLevel: model.ExperienceLevel(v.GetString("level")),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s, %s, %s)\n", u.ID, u.Name, u.Domain, u.ExperienceLevel)
	return nil
}

// seedAdminKey stores the bcrypt hash of key. An empty key leaves any stored
// hash in place.
func seedAdminKey(db *store.Store, key string) error {
	if key == "" {
		hash, err := db.GetAdminKeyHash()
		if err != nil {
			return err
		}
		if hash == "" {
			slog.Warn("no admin key configured, admin API disabled")
		}
		return nil
	}

	hash, err := handler.HashAdminKey(key)
	if err != nil {
		return fmt.Errorf("hash admin key: %w", err)
	}
	if err := db.SetAdminKeyHash(hash); err != nil {
		return err
	}
	slog.Info("stored admin key hash")
	return nil
}
