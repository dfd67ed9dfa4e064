package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"langclass/config"
	"langclass/db"
	"langclass/logging"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "langclass",
		Short: "Classify sentences as English or Dutch",
		Long: `langclass trains a decision tree or an AdaBoost ensemble over ten boolean
word features and uses it to label sentences as English (en) or Dutch (nl).

Examples:
  langclass train train.dat models/dt.json --learner dt --max-depth 6
  langclass train train.dat models/ada.json --learner ada --register
  langclass predict models/ada.json test.dat
  langclass eval models/dt.json holdout.dat
  langclass tune train.dat --min-depth 1 --max-depth 8
  langclass serve --config config.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(
		newTrainCmd(a),
		newPredictCmd(a),
		newEvalCmd(a),
		newFeaturesCmd(a),
		newModelsCmd(a),
		newTuneCmd(a),
		newServeCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) openStore() (*db.Store, error) {
	store, err := db.Open(a.cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("database opened", zap.String("path", a.cfg.Database.Path))
	return store, nil
}
