package bot

import (
	"context"
	"fmt"
	"io"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/tgr-cmp/ytrelay/internal/pipeline"
	"github.com/tgr-cmp/ytrelay/internal/provider"
	"github.com/tgr-cmp/ytrelay/internal/utils"
)

const maxFilenameLen = 100

func (b *BotManagerCtx) handleMessage(msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	// anything that is not a video link is silently ignored
	if !b.pipeline.Validate(msg.Text) {
		return
	}

	b.handleDownload(msg.Chat.ID, msg.Text)
}

func (b *BotManagerCtx) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		text := fmt.Sprintf("Welcome! Send me a YouTube link and I will download it in %s.", b.policy.Quality)
		if b.credentialsConfigured {
			text = fmt.Sprintf("Welcome! Send me a YouTube link and I will download it in %s using cookies.", b.policy.Quality)
		}
		b.reply(msg.Chat.ID, text)
	case "help":
		b.reply(msg.Chat.ID, fmt.Sprintf("Send a valid YouTube link. I will try to download it in %s.", b.policy.Quality))
	}
}

func (b *BotManagerCtx) handleDownload(chatID int64, url string) {
	logger := b.logger.With().Int64("chat", chatID).Str("url", url).Logger()

	processing, err := b.api.Send(tgbotapi.NewMessage(chatID, "Processing video... ⏳"))
	if err != nil {
		logger.Warn().Err(err).Msg("unable to send processing message")
	}

	// the indicator is removed best effort in every path, its own
	// failure must never replace the pipeline error
	defer func() {
		if processing.MessageID == 0 {
			return
		}
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, processing.MessageID)); err != nil {
			logger.Warn().Err(err).Msg("unable to delete processing message")
		}
	}()

	req := pipeline.Request{
		ID:        uuid.NewString(),
		URL:       url,
		Selection: pipeline.SelectPolicy,
		Policy:    b.policy,
	}

	var (
		pw           *io.PipeWriter
		uploadErr    chan error
		uploadOpened bool
	)

	result := b.pipeline.Run(context.Background(), req, func(meta *provider.Metadata, rendition provider.Rendition, size int64) (io.Writer, error) {
		if processing.MessageID != 0 {
			edit := tgbotapi.NewEditMessageText(chatID, processing.MessageID,
				fmt.Sprintf("Preparing download: %s (%s)...", meta.Title, rendition.Quality))
			if _, err := b.api.Request(edit); err != nil {
				logger.Warn().Err(err).Msg("unable to edit processing message")
			}
		}

		var pr *io.PipeReader
		pr, pw = io.Pipe()
		uploadErr = make(chan error, 1)
		uploadOpened = true

		// the uploader pulls from the pipe while the pipeline writes
		// into it
		go func() {
			video := tgbotapi.NewVideo(chatID, tgbotapi.FileReader{Name: uploadFilename(meta, rendition), Reader: pr})
			video.Caption = uploadCaption(meta, rendition)

			_, err := b.api.Send(video)
			if err != nil {
				// unblock the writing side
				pr.CloseWithError(err)
			}
			uploadErr <- err
		}()

		return pw, nil
	})

	if uploadOpened {
		if result.Err != nil {
			pw.CloseWithError(result.Err)
		} else {
			pw.Close()
		}

		if err := <-uploadErr; err != nil && result.Err == nil {
			result.Outcome = pipeline.OutcomeTransient
			result.Err = err
		}
	}

	if result.Outcome == pipeline.OutcomeDelivered && result.Err == nil {
		logger.Info().Int64("bytes", result.Bytes).Msg("video sent")
		return
	}

	logger.Warn().Err(result.Err).Str("outcome", result.Outcome.String()).Msg("download failed")
	b.reply(chatID, b.errorText(result))
}

func uploadFilename(meta *provider.Metadata, rendition provider.Rendition) string {
	return utils.SanitizeFilename(meta.Title, maxFilenameLen) + "." + rendition.Container
}

func uploadCaption(meta *provider.Metadata, rendition provider.Rendition) string {
	return fmt.Sprintf("✅ Done!\n\nTitle: %s\nQuality: %s", meta.Title, rendition.Quality)
}

func (b *BotManagerCtx) errorText(result pipeline.Result) string {
	switch result.Outcome {
	case pipeline.OutcomeDenied:
		text := "Sorry, this video is private or requires login."
		if b.credentialsConfigured {
			text += " Make sure the configured cookies are valid and up to date."
		}
		return text
	case pipeline.OutcomeNotFound:
		// metadata present means the video exists but the requested
		// rendition does not
		if result.Metadata != nil {
			return fmt.Sprintf("Sorry, %s (video+audio) is not available for this video.", b.policy.Quality)
		}
		return "Sorry, this video is not available."
	case pipeline.OutcomeInvalidInput:
		return "Sorry, that does not look like a valid YouTube link."
	default:
		return "Sorry, something went wrong while downloading."
	}
}

func (b *BotManagerCtx) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn().Err(err).Int64("chat", chatID).Msg("unable to send message")
	}
}
