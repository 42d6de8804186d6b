package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	natsgo "github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	natsAdapter "github.com/aretw0/parley/pkg/adapters/nats"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run integration functions dispatched over NATS",
	Long: `Subscribes to the integration subjects and runs the commands declared in the
functions file, reporting results through the shared session store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.NATS.URL == "" {
			return errors.New("worker requires PARLEY_NATS_URL")
		}
		if cfg.Store == "memory" {
			return errors.New("worker needs a store shared with the engine (file, redis or postgres)")
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, _, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		functions, err := loadFunctions(cfg, logger)
		if err != nil {
			return err
		}

		nc, err := natsgo.Connect(cfg.NATS.URL, natsgo.Name("parley-worker"))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Close()

		queue, _ := cmd.Flags().GetString("queue")
		worker := natsAdapter.NewWorker(nc, functions, store,
			natsAdapter.WithWorkerLogger(logger),
			natsAdapter.WithSubjectPrefix(cfg.NATS.SubjectPrefix),
			natsAdapter.WithQueueGroup(queue),
		)
		logger.Info("parley worker running", "subjects", cfg.NATS.SubjectPrefix+">", "functions", functions.Names())
		return worker.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().String("queue", natsAdapter.DefaultQueueGroup, "NATS queue group shared by workers")
}
