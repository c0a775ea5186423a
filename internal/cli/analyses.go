package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dexinGONG/biostat/internal/config"
	"github.com/dexinGONG/biostat/internal/pipeline/coxreg"
	"github.com/dexinGONG/biostat/internal/pipeline/logistic"
	"github.com/dexinGONG/biostat/internal/pipeline/survcompare"
)

// NewLogisticCommand creates the logistic command.
func NewLogisticCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logistic",
		Short: "Fit the physical fitness logistic models",
		Long: `Fit a binomial GLM and a penalized logistic classifier of the
fitness class on sex, height and weight, and print both reports.`,
		Example: `  # Use the configured data file
  biostat logistic

  # Read another workbook
  biostat logistic --data survey/adults.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := GetConfig(cmd.Context())
			if err != nil {
				return err
			}
			return runLogistic(cmd, cfg, GetLogger(cmd.Context()))
		},
	}

	cmd.Flags().String("data", "", "Fitness workbook (xlsx or csv)")
	setKey(cmd, "data", "logistic.path")

	return cmd
}

// NewSurvivalCommand creates the survival command.
func NewSurvivalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "survival",
		Short: "Compare survival of the two treatment groups",
		Long: `Estimate Kaplan-Meier survival and Nelson-Aalen cumulative hazard
curves of both treatment groups, compare them with a log-rank test, and
write the figures to the figures directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := GetConfig(cmd.Context())
			if err != nil {
				return err
			}
			return runSurvival(cmd, cfg, GetLogger(cmd.Context()))
		},
	}

	cmd.Flags().Float64("alpha", 0, "Confidence level of intervals and the log-rank test")
	cmd.Flags().Float64("width", 0, "Figure width in inches")
	cmd.Flags().Float64("height", 0, "Figure height in inches")
	setKey(cmd, "alpha", "survival.alpha")
	setKey(cmd, "width", "survival.width")
	setKey(cmd, "height", "survival.height")

	return cmd
}

// NewCoxCommand creates the cox command.
func NewCoxCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cox",
		Short: "Fit the proportional hazards models",
		Long: `Fit a Cox proportional hazards model of patient survival on every
covariate, then on the selected covariates, and print both summaries.`,
		Example: `  # Breslow tie handling
  biostat cox --ties breslow`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := GetConfig(cmd.Context())
			if err != nil {
				return err
			}
			return runCox(cmd, cfg, GetLogger(cmd.Context()))
		},
	}

	cmd.Flags().String("data", "", "Patient workbook (xlsx or csv)")
	cmd.Flags().String("ties", "", "Tie handling (efron|breslow)")
	setKey(cmd, "data", "cox.path")
	setKey(cmd, "ties", "cox.ties")

	return cmd
}

// NewAllCommand creates the all command.
func NewAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run every analysis in turn",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := GetConfig(cmd.Context())
			if err != nil {
				return err
			}
			log := GetLogger(cmd.Context())

			for _, run := range []func(*cobra.Command, *config.Config, *zap.Logger) error{
				runLogistic,
				runSurvival,
				runCox,
			} {
				if err := run(cmd, cfg, log); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func runLogistic(cmd *cobra.Command, cfg *config.Config, log *zap.Logger) error {

	opts := logistic.Options{
		Path:       cfg.Logistic.Path,
		IndexCol:   cfg.Logistic.IndexCol,
		Outcome:    cfg.Logistic.Outcome,
		SexCol:     cfg.Logistic.SexCol,
		Covariates: cfg.Logistic.Covariates,
		Log:        log.Named("logistic"),
	}

	f, err := logistic.Load(opts)
	if err != nil {
		return err
	}
	if _, err := logistic.Run(cmd.OutOrStdout(), f, opts); err != nil {
		return err
	}
	return nil
}

func runSurvival(cmd *cobra.Command, cfg *config.Config, log *zap.Logger) error {

	opts := survcompare.Options{
		Alpha:      cfg.Survival.Alpha,
		Width:      cfg.Survival.Width,
		Height:     cfg.Survival.Height,
		FiguresDir: cfg.FiguresDir,
		Log:        log.Named("survival"),
	}

	sum, err := survcompare.Run(cmd.OutOrStdout(), survcompare.Records(), opts)
	if err != nil {
		return err
	}
	log.Debug("survival comparison done", zap.Int("figures", len(sum.Figures)),
		zap.Float64("logrank_p", sum.LogRank.PValue))
	return nil
}

func runCox(cmd *cobra.Command, cfg *config.Config, log *zap.Logger) error {

	ties, err := coxreg.ParseTies(cfg.Cox.Ties)
	if err != nil {
		return err
	}

	opts := coxreg.Options{
		Path:     cfg.Cox.Path,
		IDCol:    cfg.Cox.IDCol,
		GroupCol: cfg.Cox.GroupCol,
		GroupMap: cfg.Cox.GroupMap,
		TimeCol:  cfg.Cox.TimeCol,
		EventCol: cfg.Cox.EventCol,
		Selected: cfg.Cox.Selected,
		Ties:     ties,
		Log:      log.Named("cox"),
	}

	f, err := coxreg.Load(opts)
	if err != nil {
		return err
	}
	rslt, err := coxreg.Run(cmd.OutOrStdout(), f, opts)
	if err != nil {
		return fmt.Errorf("cox: %w", err)
	}
	log.Debug("cox regression done", zap.Int("rows", rslt.NumRows))
	return nil
}
