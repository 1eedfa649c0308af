package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/classquiz/internal/auth"
	"github.com/pavelanni/classquiz/internal/events"
	"github.com/pavelanni/classquiz/internal/handler"
	appI18n "github.com/pavelanni/classquiz/internal/i18n"
	"github.com/pavelanni/classquiz/internal/model"
	"github.com/pavelanni/classquiz/internal/service"
	"github.com/pavelanni/classquiz/internal/store"
	"github.com/pavelanni/classquiz/internal/sweep"
)

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "classquiz",
		Short: "Classroom quiz server with scheduled grading",
	}

	serve := serveCmd()
	root.AddCommand(serve, sweepCmd(), importCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `classquiz --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "classquiz.db", "Database: SQLite path or postgres:// URL")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addSweepFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("sweep-timezone", "America/Toronto", "Timezone deciding when a day starts for the completion sweep")
	f.String("redis-url", "", "Redis URL for the shared sweep lock (optional)")
	f.String("amqp-url", "", "RabbitMQ URL for grade events (optional)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the completion sweep scheduler",
		RunE:  runServe,
	}
	addCommonFlags(cmd)
	addSweepFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("jwt-secret", "", "Secret for signing tokens (or set CLASSQUIZ_JWT_SECRET)")
	f.Duration("token-ttl", auth.DefaultTTL, "Lifetime of issued tokens")
	f.String("sweep-cron", sweep.DefaultCron, "Cron expression of the completion sweep")
	f.Bool("sweep-enabled", true, "Run the completion sweep on schedule")
	f.StringP("lang", "l", "en", "Default language of API messages (en, fr)")
	f.String("instructor-email", "", "Email of the instructor created on an empty database")
	f.String("instructor-password", "", "Password of that instructor (or set CLASSQUIZ_INSTRUCTOR_PASSWORD)")
	return cmd
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the completion sweep once and print its report",
		RunE:  runSweep,
	}
	addCommonFlags(cmd)
	addSweepFlags(cmd)
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import --instructor EMAIL FILE...",
		Short: "Import quizzes from JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	addCommonFlags(cmd)
	cmd.Flags().String("instructor", "", "Email of the instructor owning the quizzes (required)")
	_ = cmd.MarkFlagRequired("instructor")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an instructor's grade views as JSON",
		RunE:  runExport,
	}
	addCommonFlags(cmd)
	f := cmd.Flags()
	f.String("instructor", "", "Email of the instructor (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	_ = cmd.MarkFlagRequired("instructor")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

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

	v.SetEnvPrefix("CLASSQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("classquiz")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/classquiz")
	v.AddConfigPath("/etc/classquiz")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// openPublisher connects to RabbitMQ when a URL is configured.
func openPublisher(url string) (events.Publisher, error) {
	if url == "" {
		return events.Nop{}, nil
	}
	pub, err := events.Dial(url, events.DefaultExchange)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	slog.Info("publishing events", "exchange", events.DefaultExchange)
	return pub, nil
}

// newSweeper builds the completion sweeper from the sweep flags. The
// returned cleanup closes the Redis lock connection, if any.
func newSweeper(ctx context.Context, v *viper.Viper, db *store.Store, pub events.Publisher) (*sweep.Sweeper, *time.Location, func(), error) {
	loc, err := time.LoadLocation(v.GetString("sweep-timezone"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load sweep timezone: %w", err)
	}
	opts := []sweep.Option{sweep.WithLocation(loc), sweep.WithPublisher(pub)}
	cleanup := func() {}
	if url := v.GetString("redis-url"); url != "" {
		locker, err := sweep.NewRedisLocker(ctx, url, 30*time.Minute)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, sweep.WithLocker(locker))
		cleanup = func() { _ = locker.Close() }
		slog.Info("using shared sweep lock", "key", sweep.DefaultLockKey)
	}
	return sweep.New(db, opts...), loc, cleanup, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed an instructor if no users exist.
	if err := seedInstructor(ctx, db, v.GetString("instructor-email"), v.GetString("instructor-password")); err != nil {
		return fmt.Errorf("seed instructor: %w", err)
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	tokens, err := auth.NewTokens(v.GetString("jwt-secret"), v.GetDuration("token-ttl"))
	if err != nil {
		return fmt.Errorf("configure tokens: %w (set --jwt-secret or CLASSQUIZ_JWT_SECRET)", err)
	}

	pub, err := openPublisher(v.GetString("amqp-url"))
	if err != nil {
		return err
	}
	defer pub.Close()

	svc := service.New(db, pub)
	h := handler.New(svc, tokens, db)

	if v.GetBool("sweep-enabled") {
		sweeper, loc, cleanup, err := newSweeper(ctx, v, db, pub)
		if err != nil {
			return err
		}
		defer cleanup()

		scheduler := sweep.NewScheduler(loc)
		if err := scheduler.AddSweep(sweeper, v.GetString("sweep-cron")); err != nil {
			return err
		}
		err = scheduler.Add("revoked-token-cleanup", "17 * * * *", func(ctx context.Context) error {
			n, err := db.CleanupRevokedTokens(ctx, time.Now())
			if n > 0 {
				slog.Info("removed expired revoked tokens", "count", n)
			}
			return err
		})
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	r.Handle("/metrics", promhttp.Handler())
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"lang", lang,
			"dialect", db.Dialect(),
			"sweep_enabled", v.GetBool("sweep-enabled"),
			"sweep_cron", v.GetString("sweep-cron"),
			"sweep_timezone", v.GetString("sweep-timezone"),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	pub, err := openPublisher(v.GetString("amqp-url"))
	if err != nil {
		return err
	}
	defer pub.Close()

	sweeper, _, cleanup, err := newSweeper(ctx, v, db, pub)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := sweeper.Run(ctx)
	if err != nil {
		return fmt.Errorf("completion sweep: %w", err)
	}
	return writeJSONFile("-", report)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := service.New(db, nil).ExportGrades(cmd.Context(), v.GetString("instructor"))
	if err != nil {
		return fmt.Errorf("export grades: %w", err)
	}
	return writeJSONFile(v.GetString("output"), export)
}

func seedInstructor(ctx context.Context, db *store.Store, email, password string) error {
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if email == "" || password == "" {
		slog.Warn("database has no users; set --instructor-email and --instructor-password to create one")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash instructor password: %w", err)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	_, err = db.CreateUser(ctx, model.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "Instructor",
		Role:         model.RoleInstructor,
	})
	if err != nil {
		return fmt.Errorf("create instructor: %w", err)
	}

	slog.Info("seeded instructor", "email", email)
	return nil
}
