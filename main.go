package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/billbatista/acasinha-office/api"
	"github.com/billbatista/acasinha-office/config"
	"github.com/billbatista/acasinha-office/eventlogger"
	"github.com/billbatista/acasinha-office/invoice"
	"github.com/billbatista/acasinha-office/ledger"
	"github.com/billbatista/acasinha-office/notify"
	"github.com/billbatista/acasinha-office/reminder"
	"github.com/billbatista/acasinha-office/session"
	"github.com/billbatista/acasinha-office/store/postgres"
	"github.com/billbatista/acasinha-office/user"
	_ "github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		printErrorAndExit("loading config", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		printErrorAndExit("database connection", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		printErrorAndExit("pinging database", err)
	}

	st := postgres.New(db)
	if err := st.Migrate(ctx); err != nil {
		printErrorAndExit("migrating database", err)
	}

	activity, err := activityLogger(cfg, db)
	if err != nil {
		printErrorAndExit("activity log", err)
	}
	worker := eventlogger.NewWorker(activity, cfg.EventBuffer)
	worker.Start()
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		worker.Shutdown(drainCtx)
	}()
	feed := notify.NewActivity(worker)

	reminders, err := reminderNotifier(cfg, activity)
	if err != nil {
		printErrorAndExit("reminder delivery", err)
	}

	sessions := session.NewRepository(db)
	if n, err := sessions.DeleteExpired(ctx); err != nil {
		slog.Warn("failed to clean up expired sessions", "error", err)
	} else if n > 0 {
		slog.Info("removed expired sessions", "count", n)
	}

	scheduler := &reminder.Scheduler{
		Store:           st,
		Notifier:        reminders,
		Interval:        cfg.ReminderInterval,
		DeliveryTimeout: cfg.DeliveryTimeout,
	}

	handler := &api.Handler{
		Ledger:    ledger.NewService(st, feed),
		Invoices:  invoice.NewService(st, feed),
		Users:     user.NewRepository(db),
		Sessions:  sessions,
		Activity:  activity,
		Notifier:  feed,
		Scheduler: scheduler,
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown", "error", err)
		}
	}()

	slog.Info("starting server", "addr", cfg.HTTPAddr, "activity_sink", cfg.ActivitySink)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server", "error", err)
		stop()
	}
	wg.Wait()
	slog.Info("server stopped")
}

func activityLogger(cfg *config.Config, db *sql.DB) (eventlogger.EventLogger, error) {
	if cfg.ActivitySink == config.SinkSQLite {
		gdb, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		return eventlogger.NewGormEventLogger(gdb)
	}
	return eventlogger.NewSqlEventLogger(db), nil
}

// reminderNotifier posts to Discord when a bot is configured and otherwise
// writes reminders straight to the recipient's activity feed.
func reminderNotifier(cfg *config.Config, activity eventlogger.EventLogger) (notify.Notifier, error) {
	if cfg.DiscordBotToken != "" {
		return notify.NewDiscord(cfg.DiscordBotToken, cfg.DiscordChannelID)
	}
	return notify.NewFeed(activity), nil
}

func printErrorAndExit(context string, err error) {
	slog.Error("fatal error", "context", context, "error", err)
	os.Exit(1)
}
