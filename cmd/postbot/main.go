package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/m3rciful/postbot/core/bootstrap"
	"github.com/m3rciful/postbot/core/buildinfo"
	corecmd "github.com/m3rciful/postbot/core/cmd"
	coreconfig "github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/internal/app"
)

const (
	configEnvVar      = "POSTBOT_CONFIG"
	defaultConfigPath = "config.yaml"
)

var (
	configPath string
	dbWait     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "postbot",
	Short: "Telegram bot that writes social media posts in a persona's voice",
	Long: `postbot keeps a persona profile and a catalog of example posts, and asks a
language model for new posts that imitate a random example.

Run without a subcommand to start the bot.`,
	Version:      buildinfo.Version + " (" + buildinfo.Commit + ")",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Telegram bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot()
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored persona document as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return showDocument(cmd.Context(), cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config (env "+configEnvVar+")")
	rootCmd.PersistentFlags().DurationVar(&dbWait, "db-wait", 0, "wait this long for postgres before connecting")

	rootCmd.AddCommand(runCmd, showCmd)
}

func runBot() error {
	return corecmd.Run(corecmd.Options{
		ConfigPath:        configPath,
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
		LoadConfig:        coreconfig.Load,
		Bootstrap: func(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
			boot, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg, WaitTimeout: dbWait})
			if err != nil {
				return nil, err
			}
			a, err := app.New(ctx, cfg, boot)
			if err != nil {
				_ = boot.Close()
				return nil, err
			}
			return a, nil
		},
	})
}

// showDocument needs no Telegram token or provider key, so it reads the
// configuration without validating secrets.
func showDocument(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := coreconfig.Read(corecmd.ResolveConfigPath(corecmd.Options{
		ConfigPath:        configPath,
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
	}))
	if err != nil {
		return err
	}
	boot, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:      cfg,
		LoggerInit:  func(*coreconfig.Config) error { return nil },
		WaitTimeout: dbWait,
	})
	if err != nil {
		return err
	}
	defer boot.Close()
	return app.Show(ctx, cfg, boot, cmd.OutOrStdout())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
