package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/polzovatel/reader-autopilot/internal/config"
	"github.com/polzovatel/reader-autopilot/internal/logging"
)

// app carries what the root command resolves for its subcommands.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "autopilot",
		Short:         "Drives the reader app through search, ads and hands-free reading.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logger, nil)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			logger.Debug().Str("version", Version).Msg("configuration loaded")
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml); AUTOPILOT_* env vars override it")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.AddCommand(newRunCmd(a), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		// Skips config loading; printing a version must not need a valid config.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(Version)
		},
	}
}
