// File: cmd/demo.go
package cmd

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testweaver-cli/internal/browser"
	"github.com/xkilldash9x/testweaver-cli/internal/codegen"
	"github.com/xkilldash9x/testweaver-cli/internal/config"
	"github.com/xkilldash9x/testweaver-cli/internal/marl"
	"github.com/xkilldash9x/testweaver-cli/internal/observability"
	"github.com/xkilldash9x/testweaver-cli/internal/trainer"
)

// newDemoCmd creates the `demo` command: a full training run against the
// built-in scripted storefront, no browser required.
func newDemoCmd() *cobra.Command {
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Runs the learning loop against a built-in scripted storefront",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("training.episodes", cmd.Flags().Lookup("episodes")); err != nil {
				return err
			}
			return viper.BindPFlag("training.output_dir", cmd.Flags().Lookup("output"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			cfg.Training.TargetURL = "https://demo.shop.test/"
			// The scripted graph is small; long episodes just repeat pages.
			if cfg.Training.MaxSteps > 10 {
				cfg.Training.MaxSteps = 10
			}

			system := marl.NewSystem(cfg, rand.New(rand.NewSource(1)))
			tr := trainer.New(cfg, system, nil, codegen.NewCypressWriter(), logger)

			summary, err := tr.Run(cmd.Context(), browser.DemoShop())
			if err != nil {
				return fmt.Errorf("demo run failed: %w", err)
			}

			logger.Info("Demo finished",
				zap.Int("episodes", summary.Episodes),
				zap.Float64("average_reward", summary.AverageReward),
				zap.Float64("final_epsilon", summary.FinalEpsilon))
			fmt.Fprintf(cmd.OutOrStdout(), "Generated suite: %s\n", summary.SuitePath)
			return nil
		},
	}

	demoCmd.Flags().Int("episodes", 20, "number of demo episodes")
	demoCmd.Flags().String("output", "generated_tests", "directory for generated suites")
	return demoCmd
}

func init() {
	rootCmd.AddCommand(newDemoCmd())
}
