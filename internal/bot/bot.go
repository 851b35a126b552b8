package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tgr-cmp/ytrelay/internal/config"
	"github.com/tgr-cmp/ytrelay/internal/pipeline"
	"github.com/tgr-cmp/ytrelay/internal/selector"
)

// BotManagerCtx is the chat front end: a long polling loop that feeds
// video URLs into the shared pipeline and uploads the relayed stream
// back as a chat attachment.
type BotManagerCtx struct {
	logger   zerolog.Logger
	api      *tgbotapi.BotAPI
	pipeline *pipeline.PipelineCtx
	policy   selector.Policy

	// toggles the credential hint appended to denied errors
	credentialsConfigured bool

	done chan struct{}
}

func New(pipe *pipeline.PipelineCtx, config *config.Bot, policy selector.Policy, credentialsConfigured bool) (*BotManagerCtx, error) {
	api, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, err
	}

	return &BotManagerCtx{
		logger:                log.With().Str("module", "bot").Logger(),
		api:                   api,
		pipeline:              pipe,
		policy:                policy,
		credentialsConfigured: credentialsConfigured,
		done:                  make(chan struct{}),
	}, nil
}

func (b *BotManagerCtx) Start() {
	b.logger.Info().Str("username", b.api.Self.UserName).Msg("bot online")

	update := tgbotapi.NewUpdate(0)
	update.Timeout = 60
	updates := b.api.GetUpdatesChan(update)

	go func() {
		defer close(b.done)

		for update := range updates {
			if update.Message == nil {
				continue
			}

			// one task per incoming message, concurrent with others
			go b.handleMessage(update.Message)
		}
	}()
}

func (b *BotManagerCtx) Shutdown() {
	b.api.StopReceivingUpdates()
	<-b.done
}
