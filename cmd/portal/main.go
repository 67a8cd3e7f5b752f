package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	auth "github.com/goliatone/go-member-auth"
	"github.com/goliatone/go-member-auth/config"
	"github.com/goliatone/go-member-auth/logging"
	"github.com/goliatone/go-member-auth/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "portal: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("portal", flag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "optional dotenv file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.WithEnvFile(*envFile))
	if err != nil {
		return err
	}

	zl, err := logging.New(logging.Config{Level: cfg.Log.Level, Dev: cfg.Log.Dev})
	if err != nil {
		return err
	}
	logger := logging.NewAdapter(zl)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg.Database, logger.Named("persistence"))
	if err != nil {
		return err
	}
	defer db.Close()

	rest := fs.Args()
	if len(rest) > 0 {
		switch rest[0] {
		case "seed-user":
			return seedUser(ctx, db, logger, rest[1:])
		case "serve":
		default:
			return fmt.Errorf("unknown command %q", rest[0])
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collectorsSet := metrics.New(metrics.DefaultNamespace)
	collectorsSet.MustRegister(reg)

	srv := newApp(cfg, db, logger, collectorsSet, reg)

	errc := make(chan error, 1)
	go func() {
		logger.Info("portal listening", "addr", cfg.Server.Addr, "env", cfg.Server.Environment)
		errc <- srv.Serve(cfg.Server.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return nil
}

func seedUser(ctx context.Context, db *bun.DB, logger *logging.Adapter, args []string) error {
	fs := flag.NewFlagSet("seed-user", flag.ContinueOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "user password")
	name := fs.String("name", "", "display name, defaults to the email local part")
	role := fs.String("role", string(auth.RoleMember), "MEMBER, ADMIN or SUPER_ADMIN")
	useHashid := fs.Bool("hashid", true, "derive the user id from the email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	handler := auth.NewRegisterUserHandler(newRepositoryManager(db)).
		WithLogger(logger.Named("seed"))

	user, err := handler.Execute(ctx, auth.RegisterUserMessage{
		Name:      *name,
		Email:     *email,
		Password:  *password,
		Role:      *role,
		UseHashid: *useHashid,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created user %s (%s) role=%s\n", user.Email, user.ID, user.Role)
	return nil
}
