// File: cmd/train.go
package cmd

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testweaver-cli/internal/browser"
	"github.com/xkilldash9x/testweaver-cli/internal/codegen"
	"github.com/xkilldash9x/testweaver-cli/internal/config"
	"github.com/xkilldash9x/testweaver-cli/internal/marl"
	"github.com/xkilldash9x/testweaver-cli/internal/observability"
	"github.com/xkilldash9x/testweaver-cli/internal/store"
	"github.com/xkilldash9x/testweaver-cli/internal/trainer"
)

// newTrainCmd creates and configures the `train` command.
func newTrainCmd() *cobra.Command {
	var seed int64

	trainCmd := &cobra.Command{
		Use:   "train [target-url]",
		Short: "Runs a training session against a live web application",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so command-line values override the config file and
			// environment with the right precedence.
			if err := viper.BindPFlag("training.episodes", cmd.Flags().Lookup("episodes")); err != nil {
				return err
			}
			if err := viper.BindPFlag("training.output_dir", cmd.Flags().Lookup("output")); err != nil {
				return err
			}
			return viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Training.TargetURL = args[0]
			}
			if !strings.HasPrefix(cfg.Training.TargetURL, "http://") &&
				!strings.HasPrefix(cfg.Training.TargetURL, "https://") {
				cfg.Training.TargetURL = "http://" + cfg.Training.TargetURL
			}

			session, err := browser.NewSession(ctx, cfg.Browser, cfg.Training.TargetURL, logger)
			if err != nil {
				return fmt.Errorf("failed to start browser session: %w", err)
			}
			defer session.Close()

			st, err := store.New(cfg.Training.OutputDir, logger)
			if err != nil {
				return fmt.Errorf("failed to open model store: %w", err)
			}

			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			system := marl.NewSystem(cfg, rand.New(rand.NewSource(seed)))

			tr := trainer.New(cfg, system, st, codegen.NewCypressWriter(), logger)
			summary, err := tr.Run(ctx, session)
			if err != nil {
				return fmt.Errorf("training run failed: %w", err)
			}

			logger.Info("Training finished",
				zap.String("run_id", summary.RunID),
				zap.Int("episodes", summary.Episodes),
				zap.Float64("best_reward", summary.BestReward),
				zap.String("suite", summary.SuitePath))
			fmt.Fprintf(cmd.OutOrStdout(), "Generated suite: %s\n", summary.SuitePath)
			return nil
		},
	}

	trainCmd.Flags().Int("episodes", 100, "number of training episodes")
	trainCmd.Flags().String("output", "generated_tests", "directory for generated suites and model snapshots")
	trainCmd.Flags().Bool("headless", true, "run the browser headless")
	trainCmd.Flags().Int64Var(&seed, "seed", 0, "rng seed for reproducible runs (0 picks one)")
	return trainCmd
}

func init() {
	rootCmd.AddCommand(newTrainCmd())
}
