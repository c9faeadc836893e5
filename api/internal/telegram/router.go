package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"image-to-text/api/internal/convert"
	"image-to-text/api/internal/imageprep"
	"image-to-text/api/internal/ocr"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
}

type Router struct {
	Bot        Bot
	Token      string
	Svc        *convert.Service
	EngManager *ocr.Manager
	Languages  []string
	// ConvertTimeout bounds one conversion started from chat.
	ConvertTimeout time.Duration
	// FileEndpoint is a format string taking the token and file path.
	FileEndpoint string

	pool  *ants.Pool
	log   *zap.SugaredLogger
	state *chatState
}

func NewRouter(bot Bot, token string, svc *convert.Service, workers int, log *zap.SugaredLogger) (*Router, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	pool, err := ants.NewPool(max(workers, 1), ants.WithPanicHandler(func(p any) {
		log.Errorw("update handler panicked", "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("ants pool: %w", err)
	}
	return &Router{
		Bot:            bot,
		Token:          token,
		Svc:            svc,
		EngManager:     ocr.NewManager(svc.Engines),
		ConvertTimeout: 180 * time.Second,
		FileEndpoint:   tgbotapi.FileEndpoint,
		pool:           pool,
		log:            log,
		state:          newChatState(),
	}, nil
}

// Close releases the worker pool.
func (r *Router) Close() { r.pool.Release() }

// HandleUpdate queues upd on the worker pool. It blocks while the pool is
// saturated, which throttles the polling loop.
func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if err := r.pool.Submit(func() { r.handle(upd) }); err != nil {
		r.log.Warnw("update dropped", "update_id", upd.UpdateID, "err", err)
	}
}

func (r *Router) handle(upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		return
	}
	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}
	if src, ok := imageSource(msg); ok {
		r.acceptImage(msg, src)
		return
	}
	if msg.Text != "" {
		r.send(msg.Chat.ID, startText)
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, startText)
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "Unknown command. Try /start")
	}
}

// handleEngineCommand switches the chat's engine.
//
//	/engine
//	/engine gemini [model]
//	/engine reset
func (r *Router) handleEngineCommand(chatID int64, argLine string) {
	args := strings.Fields(argLine)
	if len(args) == 0 {
		cur, err := r.EngManager.Get(chatID)
		name := "none"
		if err == nil {
			name = cur.Name() + " (" + r.modelFor(chatID, cur) + ")"
		}
		r.send(chatID, engineUsage(name, r.EngManager.Engines().Names()))
		return
	}
	name := strings.ToLower(args[0])
	if name == "reset" {
		r.EngManager.Reset(chatID)
		r.state.setModel(chatID, "")
		r.send(chatID, "✅ Engine reset to the default: "+r.EngManager.Engines().Default())
		return
	}
	eng, err := r.EngManager.Set(chatID, name)
	if err != nil {
		if errors.Is(err, ocr.ErrUnknownEngine) {
			r.send(chatID, "Unknown engine. Available: "+strings.Join(r.EngManager.Engines().Names(), " | "))
			return
		}
		r.sendError(chatID, err)
		return
	}
	var model string
	if len(args) > 1 {
		model = strings.TrimSpace(args[1])
	}
	r.state.setModel(chatID, model)
	r.send(chatID, "✅ Engine: "+eng.Name()+" ("+r.modelFor(chatID, eng)+")")
}

func (r *Router) modelFor(chatID int64, eng ocr.Engine) string {
	if m := r.state.model(chatID); m != "" {
		return m
	}
	return eng.GetModel()
}

// convertImage runs one conversion for the chat and replies with the result.
func (r *Router) convertImage(chatID int64, img []byte, mime string) {
	if !r.state.begin(chatID) {
		r.send(chatID, busyText)
		return
	}
	defer r.state.end(chatID)

	eng, err := r.EngManager.Get(chatID)
	if err != nil {
		r.sendError(chatID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.ConvertTimeout)
	defer cancel()
	out, err := r.Svc.Convert(ctx, convert.Request{
		Image:     img,
		MIME:      mime,
		Engine:    eng.Name(),
		Model:     r.state.model(chatID),
		Languages: r.Languages,
		Source:    convert.SourceTelegram,
		ChatID:    chatID,
	})
	if err != nil {
		r.log.Warnw("chat conversion failed", "chat_id", chatID, "err", err)
		r.sendError(chatID, err)
		return
	}
	r.send(chatID, resultText(out))
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.log.Warnw("send failed", "chat_id", chatID, "err", err)
	}
}

func (r *Router) sendError(chatID int64, err error) {
	if errors.Is(err, imageprep.ErrTooLarge) {
		r.send(chatID, "⚠️ The image is too large. Please send a smaller one.")
		return
	}
	if errors.Is(err, convert.ErrInvalidImage) {
		r.send(chatID, "⚠️ Please send a photo or an image file (JPEG, PNG, WebP, GIF, BMP).")
		return
	}
	r.send(chatID, "⚠️ "+ocr.UserMessage(err))
}
