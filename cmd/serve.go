package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	ytrelay "github.com/tgr-cmp/ytrelay"
	"github.com/tgr-cmp/ytrelay/internal/config"
)

func init() {
	command := &cobra.Command{
		Use:   "serve",
		Short: "serve relay service",
		Long:  `serve the chat bot and the HTTP relay API`,
		Run:   ytrelay.Service.ServeCommand,
	}

	configs := []config.Config{
		ytrelay.Service.ServerConfig,
		ytrelay.Service.BotConfig,
		ytrelay.Service.CredentialsConfig,
		ytrelay.Service.PipelineConfig,
	}

	cobra.OnInitialize(func() {
		for _, cfg := range configs {
			cfg.Set()
		}
		ytrelay.Service.Preflight()
	})

	for _, cfg := range configs {
		if err := cfg.Init(command); err != nil {
			log.Panic().Err(err).Msg("unable to run serve command")
		}
	}

	rootCmd.AddCommand(command)
}
