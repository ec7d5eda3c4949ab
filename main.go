package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"medivault-backend/accounts"
	"medivault-backend/config"
	"medivault-backend/conn"
)

func main() {
	cfg := config.Load()
	if err := rootCommand(&cfg).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func rootCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "medivault",
		Usage: "MediVault AI backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Sources: cli.EnvVars("APP_PORT"),
				Name:    "port",
				Aliases: []string{"p"},
				Value:   cfg.Port,
				Usage:   "HTTP port",
			},
			&cli.StringFlag{
				Sources: cli.EnvVars("DB_BACKEND"),
				Name:    "db-backend",
				Aliases: []string{"db"},
				Value:   cfg.DBBackend,
				Usage:   "persistence backend: mysql or mongo",
			},
			&cli.StringFlag{
				Sources: cli.EnvVars("UPLOAD_DIR"),
				Name:    "upload-dir",
				Value:   cfg.UploadDir,
				Usage:   "directory holding uploaded files",
			},
			&cli.BoolFlag{
				Sources: cli.EnvVars("AUTH_REQUIRED"),
				Name:    "auth-required",
				Value:   cfg.AuthRequired,
				Usage:   "reject requests without a bearer token",
			},
			&cli.BoolFlag{
				Sources: cli.EnvVars("SEED_DEMO_USERS"),
				Name:    "seed-demo",
				Value:   cfg.SeedDemoUsers,
				Usage:   "create the demo doctor and patient accounts on start",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error { return serve(ctx, withFlags(*cfg, c)) },
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server",
				Action: func(ctx context.Context, c *cli.Command) error { return serve(ctx, withFlags(*cfg, c)) },
			},
			{
				Name:  "migrate",
				Usage: "create tables (mysql) or indexes (mongo)",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStores(ctx, withFlags(*cfg, c), func(st *stores) error { return st.migrate(ctx) })
				},
			},
			{
				Name:      "claim-records",
				Usage:     "assign every record without an owner to the given account email",
				ArgsUsage: "<email>",
				Action: func(ctx context.Context, c *cli.Command) error {
					owner := strings.TrimSpace(c.Args().First())
					if owner == "" {
						return errors.New("claim-records needs the owner email")
					}
					return withStores(ctx, withFlags(*cfg, c), func(st *stores) error {
						n, err := st.Records.ClaimUnowned(ctx, owner)
						if err != nil {
							return err
						}
						fmt.Printf("Migrated %d records to %s\n", n, owner)
						return nil
					})
				},
			},
			{
				Name:  "seed",
				Usage: "create the demo doctor and patient accounts",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withStores(ctx, withFlags(*cfg, c), func(st *stores) error {
						n, err := accounts.NewService(st.Accounts, cfg.BcryptCost).SeedDemo(ctx)
						if err != nil {
							return err
						}
						fmt.Printf("Seeded %d demo accounts\n", n)
						return nil
					})
				},
			},
		},
	}
}

// withFlags overlays the command-line flags, which subcommands inherit from
// the root, on the environment configuration.
func withFlags(cfg config.Config, c *cli.Command) config.Config {
	cfg.Port = c.String("port")
	cfg.DBBackend = strings.ToLower(c.String("db-backend"))
	cfg.UploadDir = c.String("upload-dir")
	cfg.AuthRequired = c.Bool("auth-required")
	cfg.SeedDemoUsers = c.Bool("seed-demo")
	return cfg
}

func withStores(ctx context.Context, cfg config.Config, fn func(*stores) error) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func serve(ctx context.Context, cfg config.Config) error {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.LLMAPIKey == "" {
		log.Printf("[BOOT][WARN] no LLM API key configured; analysis and chat will degrade")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.migrate(ctx); err != nil {
		return err
	}
	if cfg.SeedDemoUsers {
		if n, err := accounts.NewService(st.Accounts, cfg.BcryptCost).SeedDemo(ctx); err != nil {
			log.Printf("[BOOT][SEED][ERROR] %v", err)
		} else {
			log.Printf("[BOOT][SEED] %d demo accounts created", n)
		}
	}

	rdb := conn.NewRedis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           buildRouter(cfg, st, rdb),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[BOOT] listening on :%s backend=%s", cfg.Port, cfg.DBBackend)
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
	log.Printf("[BOOT] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
