// Command walletsyncctl is the operator CLI for the wallet sync job queue:
// enqueue a sync, inspect a job or a wallet's job history, cancel a job, or
// print queue depth stats.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synnergy-labs/cardano-wallet-sync/pkg/bootstrap"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/config"
	"github.com/synnergy-labs/cardano-wallet-sync/pkg/logging"
	"github.com/synnergy-labs/cardano-wallet-sync/walletserver/services"
)

func main() {
	root := &cobra.Command{Use: "walletsyncctl", Short: "operator CLI for the wallet sync job queue"}
	root.AddCommand(enqueueCmd(), statusCmd(), listCmd(), cancelCmd(), statsCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func withService(fn func(ctx context.Context, svc *services.JobService)) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.Logging.Level)
	deps, err := bootstrap.Build(cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer deps.Store.Close()

	svc := services.NewJobService(deps.Queue, deps.Store)
	fn(context.Background(), svc)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func enqueueCmd() *cobra.Command {
	var userID string
	var fromBlock uint64
	var priority int
	cmd := &cobra.Command{
		Use:   "enqueue [address]",
		Short: "enqueue a wallet sync job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withService(func(ctx context.Context, svc *services.JobService) {
				result, err := svc.EnqueueWalletSync(ctx, args[0], userID, fromBlock, priority)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				printJSON(result)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owning user id (required)")
	cmd.Flags().Uint64Var(&fromBlock, "from-block", 0, "rewind the wallet cursor to this block before syncing")
	cmd.Flags().IntVar(&priority, "priority", 0, "job priority, higher claims first")
	cmd.MarkFlagRequired("user")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [jobId]",
		Short: "show a job's current status",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withService(func(ctx context.Context, svc *services.JobService) {
				job, err := svc.GetJob(ctx, args[0])
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				if job == nil {
					fmt.Fprintln(os.Stderr, "job not found")
					os.Exit(1)
				}
				printJSON(job)
			})
		},
	}
}

func listCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list [address]",
		Short: "list a wallet's sync jobs",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withService(func(ctx context.Context, svc *services.JobService) {
				jobs, err := svc.GetJobsByWallet(ctx, userID, args[0])
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				printJSON(jobs)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owning user id (required)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [jobId]",
		Short: "cancel a pending or processing job",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withService(func(ctx context.Context, svc *services.JobService) {
				if err := svc.CancelJob(ctx, args[0]); err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				fmt.Println("cancelled")
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "show queue depth by status",
		Run: func(cmd *cobra.Command, args []string) {
			withService(func(ctx context.Context, svc *services.JobService) {
				st, err := svc.Stats(ctx)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				printJSON(st)
			})
		},
	}
}
