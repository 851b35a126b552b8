package ytrelay

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tgr-cmp/ytrelay/internal/api"
	"github.com/tgr-cmp/ytrelay/internal/bot"
	"github.com/tgr-cmp/ytrelay/internal/config"
	"github.com/tgr-cmp/ytrelay/internal/creds"
	"github.com/tgr-cmp/ytrelay/internal/http"
	"github.com/tgr-cmp/ytrelay/internal/metrics"
	"github.com/tgr-cmp/ytrelay/internal/pipeline"
	"github.com/tgr-cmp/ytrelay/internal/provider"
	"github.com/tgr-cmp/ytrelay/internal/selector"
)

const metadataTimeout = 30 * time.Second

var Service *Main

func init() {
	Service = &Main{
		ServerConfig:      &config.Server{},
		BotConfig:         &config.Bot{},
		CredentialsConfig: &config.Credentials{},
		PipelineConfig:    &config.Pipeline{},
	}
}

type Main struct {
	ServerConfig      *config.Server
	BotConfig         *config.Bot
	CredentialsConfig *config.Credentials
	PipelineConfig    *config.Pipeline

	logger     zerolog.Logger
	metrics    *metrics.MetricsCtx
	store      *creds.StoreCtx
	pipeline   *pipeline.PipelineCtx
	apiManager *api.ApiManagerCtx
	server     *http.HttpManagerCtx
	bot        *bot.BotManagerCtx
}

func (main *Main) Preflight() {
	main.logger = log.With().Str("service", "main").Logger()
}

func (main *Main) Start() {
	// the chat front end cannot run anonymously
	if main.BotConfig.Token == "" {
		main.logger.Fatal().Msg("bot token is missing, set YTRELAY_BOT_TOKEN")
	}

	main.metrics = metrics.New()

	main.store = creds.NewStore(
		main.CredentialsConfig.Inline,
		main.CredentialsConfig.URL,
		main.metrics,
	)

	if main.store.Configured() {
		ctx, cancel := context.WithTimeout(context.Background(), metadataTimeout)
		if bundle := main.store.Load(ctx); bundle == nil {
			main.logger.Warn().Msg("credential bundle could not be loaded, continuing unauthenticated")
		}
		cancel()
	} else {
		main.logger.Warn().Msg("no credential source configured, operating unauthenticated")
	}

	main.pipeline = pipeline.New(
		provider.NewYouTube(metadataTimeout),
		main.store,
		main.metrics,
	)

	policy := selector.Policy{
		Quality:                main.PipelineConfig.Quality,
		Container:              main.PipelineConfig.Container,
		RequireVideo:           true,
		RequireAudio:           true,
		AllowContainerFallback: true,
	}

	var err error
	main.bot, err = bot.New(main.pipeline, main.BotConfig, policy, main.store.Configured())
	if err != nil {
		main.logger.Fatal().Err(err).Msg("unable to start bot")
	}
	main.bot.Start()

	main.apiManager = api.New(main.pipeline, main.metrics)

	main.server = http.New(main.ServerConfig)
	main.server.Mount(main.apiManager.Mount)
	main.server.Start()
}

func (main *Main) Shutdown() {
	main.bot.Shutdown()
	main.logger.Debug().Msg("bot shutdown")

	if err := main.server.Shutdown(); err != nil {
		main.logger.Err(err).Msg("server shutdown with an error")
	} else {
		main.logger.Debug().Msg("server shutdown")
	}
}

func (main *Main) ServeCommand(cmd *cobra.Command, args []string) {
	main.logger.Info().Msg("starting relay service")
	main.Start()
	main.logger.Info().Msg("service ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	sig := <-quit

	main.logger.Warn().Msgf("received %s, attempting graceful shutdown", sig)
	main.Shutdown()
	main.logger.Info().Msg("shutdown complete")
}
