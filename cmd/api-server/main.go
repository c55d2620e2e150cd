package main

import (
	"Formpay/config"
	"Formpay/pkg/database"
	"Formpay/pkg/log"
	"Formpay/pkg/server"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	path := fmt.Sprintf("configs/config.%s.yaml", env)
	cfg := config.New(path)
	log.Setup(cfg.Log)
	if err := cfg.Validate(); err != nil {
		log.L.Fatal("invalid config", zap.String("path", path), zap.Error(err))
	}
	if _, err := maxprocs.Set(maxprocs.Logger(log.L.Sugar().Infof)); err != nil {
		log.L.Warn("set GOMAXPROCS", zap.Error(err))
	}

	cliApp := &cli.App{
		Name:  "api-server",
		Usage: "form payment gateway",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start http server",
				Action: func(ctx *cli.Context) error {
					app, cleanup, err := InitServer(cfg)
					if err != nil {
						return err
					}
					defer cleanup()
					return server.Run(ctx, app)
				},
			},
			{
				Name:  "reconcile",
				Usage: "query stale pending orders on schedule",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "once", Usage: "run a single sweep and exit"},
				},
				Action: func(ctx *cli.Context) error {
					return reconcile(ctx, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "create or update tables",
				Action: func(ctx *cli.Context) error {
					return database.Migrate(database.NewDB(cfg))
				},
			},
			{
				Name:  "submission",
				Usage: "submission maintenance",
				Subcommands: []*cli.Command{
					{
						Name:  "delete",
						Usage: "delete a submission and its payment logs",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "submission id or hash id", Required: true},
						},
						Action: deleteSubmission(cfg),
					},
					{
						Name:  "logs",
						Usage: "print a submission and its payment logs",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "submission id or hash id", Required: true},
						},
						Action: submissionLogs(cfg),
					},
				},
			},
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		log.L.Fatal("command failed", zap.Error(err))
	}
}

func reconcile(ctx *cli.Context, cfg *config.Config) error {
	r, cleanup, err := InitReconciler(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if ctx.Bool("once") {
		report, err := r.Sweep(ctx.Context)
		if err != nil {
			return err
		}
		log.L.Info("reconcile once", zap.Any("report", report))
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.Reconcile.Spec, func() {
		if _, err := r.Sweep(ctx.Context); err != nil {
			log.L.Error("reconcile sweep", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("reconcile spec %q: %w", cfg.Reconcile.Spec, err)
	}
	c.Start()
	log.L.Info("reconcile scheduled", zap.String("spec", cfg.Reconcile.Spec))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
	select {
	case <-sig:
	case <-ctx.Context.Done():
	}

	// 等待进行中的一轮结束
	<-c.Stop().Done()
	log.L.Info("reconcile stopped")
	return nil
}

func parseSubmissionID(admin *adminApp, raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err == nil {
		return id, nil
	}
	if id, err = admin.HashID.Decode(raw); err != nil {
		return 0, errors.New("id must be a numeric id or a hash id")
	}
	return id, nil
}

func deleteSubmission(cfg *config.Config) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		admin, cleanup, err := InitAdmin(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		id, err := parseSubmissionID(admin, ctx.String("id"))
		if err != nil {
			return err
		}
		return admin.Submissions.Delete(context.WithoutCancel(ctx.Context), id)
	}
}

// submissionLogs 排查回调与对账问题时查看完整流水
func submissionLogs(cfg *config.Config) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		admin, cleanup, err := InitAdmin(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		id, err := parseSubmissionID(admin, ctx.String("id"))
		if err != nil {
			return err
		}
		sub, err := admin.Submissions.GetByID(ctx.Context, id)
		if err != nil {
			return err
		}
		logs, err := admin.Submissions.Logs(ctx.Context, id)
		if err != nil {
			return err
		}

		w := ctx.App.Writer
		fmt.Fprintf(w, "%d %s %s %s %s\n", sub.ID, sub.PaymentID, sub.Status, sub.Amount.StringFixed(2), sub.TradeNo)
		for _, l := range logs {
			fmt.Fprintf(w, "%s\t%-6s\t%s\t%s\n", l.CreatedAt.Format(time.DateTime), l.Type, l.DedupKey, l.Content)
		}
		return nil
	}
}
