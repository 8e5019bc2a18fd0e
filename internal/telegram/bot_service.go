// Package telegram connects the authority chat to the complaint service.
// New and resolved complaints are posted to the chat, and operators can
// list and resolve complaints with bot commands.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"wastewatch/backend/internal/complaint"
	"wastewatch/backend/internal/imagestore"
	"wastewatch/backend/internal/localization"
	"wastewatch/backend/internal/models"

	"github.com/apex/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	eventBuffer = 100
	// maxListed caps /open replies to keep them under the message size limit.
	maxListed = 50
)

// Sender is the part of the bot API the service needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Complaints is the part of the complaint service the bot drives.
type Complaints interface {
	Open(ctx context.Context) ([]models.ComplaintRecord, error)
	Resolve(ctx context.Context, imageID string) (models.ComplaintRecord, error)
}

// BotService posts complaint events to the authority chat and answers its
// commands. Messages from any other chat are ignored.
type BotService struct {
	Sender     Sender
	Complaints Complaints
	// Images is optional; with it new complaints are posted with their
	// annotated photo.
	Images    imagestore.Store
	Localizer *localization.Localizer
	ChatID    int64
	Lang      string

	events chan models.ComplaintEvent
}

// NewBotAPI authorizes against the Telegram API.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	bot.Debug = false
	log.WithField("account", bot.Self.UserName).Info("authorized on telegram")
	return bot, nil
}

func NewBotService(sender Sender, complaints Complaints, images imagestore.Store, localizer *localization.Localizer, chatID int64) *BotService {
	return &BotService{
		Sender:     sender,
		Complaints: complaints,
		Images:     images,
		Localizer:  localizer,
		ChatID:     chatID,
		Lang:       localization.DefaultLanguage,
		events:     make(chan models.ComplaintEvent, eventBuffer),
	}
}

// Publish implements the complaint event sink. Delivery happens on the Run
// goroutine so a slow Telegram API never delays a request.
func (s *BotService) Publish(ctx context.Context, event models.ComplaintEvent) error {
	select {
	case s.events <- event:
		return nil
	default:
		return errors.New("telegram notification queue full")
	}
}

// Run delivers queued events and handles updates until ctx is cancelled.
// updates may be nil when only notifications are wanted.
func (s *BotService) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-s.events:
			s.notify(ctx, event)
		case update, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			s.HandleUpdate(ctx, update)
		}
	}
}

// Updates starts long polling on bot.
func Updates(bot *tgbotapi.BotAPI) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	return bot.GetUpdatesChan(u)
}

func (s *BotService) notify(ctx context.Context, event models.ComplaintEvent) {
	c := event.Complaint
	var text string
	switch event.Type {
	case models.EventComplaintCreated:
		text = s.Localizer.Sprintf(s.Lang, "bot_new_complaint", c.ImageID, c.Latitude, c.Longitude, c.PixelArea, c.Date)
		if s.sendPhoto(ctx, c.ImageID, text) {
			return
		}
	case models.EventComplaintResolved:
		text = s.Localizer.Sprintf(s.Lang, "bot_resolved_complaint", c.ImageID)
	default:
		return
	}
	s.reply(s.ChatID, text)
}

// sendPhoto posts the annotated image with caption and reports success.
func (s *BotService) sendPhoto(ctx context.Context, imageID, caption string) bool {
	if s.Images == nil {
		return false
	}
	rc, err := s.Images.Open(ctx, imagestore.KindOutput, imageID)
	if err != nil {
		if !errors.Is(err, imagestore.ErrNotFound) {
			log.WithError(err).WithField("image_id", imageID).Warn("telegram: cannot read annotated image")
		}
		return false
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return false
	}

	photo := tgbotapi.NewPhoto(s.ChatID, tgbotapi.FileBytes{Name: imageID + ".jpg", Bytes: data})
	photo.Caption = caption
	if _, err := s.Sender.Send(photo); err != nil {
		log.WithError(err).WithField("image_id", imageID).Warn("telegram: photo not sent")
		return false
	}
	return true
}

// HandleUpdate answers commands sent from the authority chat.
func (s *BotService) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	if msg.Chat.ID != s.ChatID {
		log.WithField("chat_id", msg.Chat.ID).Warn("telegram: command from unknown chat ignored")
		return
	}

	switch msg.Command() {
	case "open":
		s.handleOpen(ctx, msg.Chat.ID)
	case "resolve":
		s.handleResolve(ctx, msg.Chat.ID, strings.TrimSpace(msg.CommandArguments()))
	case "help", "start":
		s.reply(msg.Chat.ID, s.Localizer.GetString(s.Lang, "bot_help"))
	default:
		s.reply(msg.Chat.ID, s.Localizer.GetString(s.Lang, "bot_unknown_command"))
	}
}

func (s *BotService) handleOpen(ctx context.Context, chatID int64) {
	open, err := s.Complaints.Open(ctx)
	if err != nil {
		log.WithError(err).Error("telegram: list open complaints")
		s.reply(chatID, s.Localizer.GetString(s.Lang, "bot_error"))
		return
	}
	if len(open) == 0 {
		s.reply(chatID, s.Localizer.GetString(s.Lang, "bot_open_empty"))
		return
	}

	var b strings.Builder
	b.WriteString(s.Localizer.Sprintf(s.Lang, "bot_open_header", len(open)))
	for i, c := range open {
		if i == maxListed {
			b.WriteString("\n…")
			break
		}
		b.WriteString("\n")
		b.WriteString(s.Localizer.Sprintf(s.Lang, "bot_open_item", c.ImageID, c.Latitude, c.Longitude, c.PixelArea))
	}
	s.reply(chatID, b.String())
}

func (s *BotService) handleResolve(ctx context.Context, chatID int64, imageID string) {
	if imageID == "" {
		s.reply(chatID, s.Localizer.GetString(s.Lang, "bot_resolve_usage"))
		return
	}

	_, err := s.Complaints.Resolve(ctx, imageID)
	switch {
	case errors.Is(err, complaint.ErrNotFound):
		s.reply(chatID, s.Localizer.GetString(s.Lang, "not_found"))
	case err != nil:
		log.WithError(err).WithField("image_id", imageID).Error("telegram: resolve")
		s.reply(chatID, s.Localizer.GetString(s.Lang, "bot_error"))
	default:
		log.WithField("image_id", imageID).Info("complaint resolved from telegram")
		s.reply(chatID, s.Localizer.GetString(s.Lang, "resolved"))
	}
}

func (s *BotService) reply(chatID int64, text string) {
	if _, err := s.Sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("telegram: message not sent")
	}
}
