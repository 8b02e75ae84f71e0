package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/AEYohn/Quizly-sub000/internal/engine"
	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

const helpText = `I serve an adaptive learning feed.

/learn <topic> - start a feed on a topic
/next - skip to the next card
/stats - session and mastery breakdown
/remind <hour> - daily reminder at that UTC hour
/remind off - disable reminders
/stop - end the current session`

func (b *Bot) handleMessage(message *tgbotapi.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if message.IsCommand() {
		return b.handleCommand(ctx, message)
	}
	return b.handleAnswer(ctx, message)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		return b.handleStart(ctx, message)
	case "help":
		return b.reply(message.Chat.ID, helpText)
	case "learn":
		return b.handleLearn(ctx, message)
	case "next":
		return b.handleNext(ctx, message)
	case "stats":
		return b.handleStats(ctx, message)
	case "remind":
		return b.handleRemind(ctx, message)
	case "stop":
		b.setSession(message.Chat.ID, nil)
		return b.reply(message.Chat.ID, "Session ended. /learn <topic> starts a new one.")
	default:
		return b.reply(message.Chat.ID, "Unknown command. /help lists what I can do.")
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	learner := &models.Learner{
		ID:              message.From.ID,
		Username:        message.From.UserName,
		FirstName:       message.From.FirstName,
		ReminderEnabled: true,
		ReminderHour:    18,
	}
	if existing, err := b.learners.GetByTelegramID(ctx, message.From.ID); err == nil && existing != nil {
		learner.ReminderEnabled = existing.ReminderEnabled
		learner.ReminderHour = existing.ReminderHour
	}
	if err := b.learners.Upsert(ctx, learner); err != nil {
		return err
	}
	return b.reply(message.Chat.ID,
		fmt.Sprintf("Hi %s!\n\n%s", message.From.FirstName, helpText))
}

func (b *Bot) handleLearn(ctx context.Context, message *tgbotapi.Message) error {
	topic := strings.TrimSpace(message.CommandArguments())
	if topic == "" {
		return b.reply(message.Chat.ID, "Usage: /learn <topic>")
	}

	start, err := b.engine.StartFeed(ctx, learnerKey(message.From.ID), topic, nil)
	if errors.Is(err, engine.ErrContentUnavailable) {
		return b.reply(message.Chat.ID,
			fmt.Sprintf("No cards for %q yet. Ask an admin to import some.", topic))
	}
	if err != nil {
		return err
	}

	b.setSession(message.Chat.ID, &chatSession{
		sessionID: start.SessionID,
		topic:     topic,
		cards:     start.Cards,
		servedAt:  time.Now(),
	})
	return b.sendCurrentCard(message.Chat.ID)
}

func (b *Bot) handleNext(ctx context.Context, message *tgbotapi.Message) error {
	session := b.session(message.Chat.ID)
	if session == nil {
		return b.reply(message.Chat.ID, "No active session. /learn <topic> starts one.")
	}

	session.current++
	if session.currentCard() == nil {
		cards, err := b.engine.GetNextCards(ctx, session.sessionID)
		if errors.Is(err, engine.ErrContentUnavailable) {
			return b.reply(message.Chat.ID, "You have seen everything available. /stats for the wrap-up.")
		}
		if err != nil {
			return err
		}
		session.cards = cards
		session.current = 0
	}
	session.servedAt = time.Now()
	return b.sendCurrentCard(message.Chat.ID)
}

func (b *Bot) handleAnswer(ctx context.Context, message *tgbotapi.Message) error {
	session := b.session(message.Chat.ID)
	card := session.currentCard()
	if card == nil {
		return b.reply(message.Chat.ID, "No card is waiting for an answer. /learn <topic> starts a feed.")
	}

	elapsed := int(time.Since(session.servedAt).Milliseconds())
	result, err := b.engine.ProcessAnswer(ctx, session.sessionID, models.AnswerSubmission{
		Answer:        message.Text,
		TimeMs:        elapsed,
		CorrectAnswer: card.Answer,
		ConceptHint:   card.Concept,
	})
	if errors.Is(err, engine.ErrSessionNotFound) {
		b.setSession(message.Chat.ID, nil)
		return b.reply(message.Chat.ID, "That session expired. /learn <topic> starts a new one.")
	}
	if errors.Is(err, engine.ErrContentUnavailable) {
		b.setSession(message.Chat.ID, nil)
		return b.reply(message.Chat.ID, "That was the last card available. /stats for the wrap-up.")
	}
	if err != nil {
		return err
	}

	if err := b.reply(message.Chat.ID, formatResult(card, result)); err != nil {
		return err
	}

	session.cards = result.NextCards
	session.current = 0
	session.servedAt = time.Now()
	return b.sendCurrentCard(message.Chat.ID)
}

func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message) error {
	session := b.session(message.Chat.ID)
	if session == nil {
		return b.reply(message.Chat.ID, "No active session. /learn <topic> starts one.")
	}

	analytics, err := b.engine.SessionAnalytics(ctx, session.sessionID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session on %s\n", analytics.Topic)
	fmt.Fprintf(&sb, "XP: %d  Best streak: %d  Accuracy: %.0f%%\n\n",
		analytics.Feed.TotalXP, analytics.Feed.BestStreak, analytics.Feed.Accuracy)
	for _, c := range analytics.Concepts {
		if c.Attempts == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s: %d/%d (%s)\n", c.Concept, c.Correct, c.Attempts, c.Bucket)
	}
	return b.reply(message.Chat.ID, sb.String())
}

func (b *Bot) handleRemind(ctx context.Context, message *tgbotapi.Message) error {
	arg := strings.TrimSpace(message.CommandArguments())
	learner, err := b.learners.GetByTelegramID(ctx, message.From.ID)
	if err != nil {
		return err
	}
	if learner == nil {
		return b.reply(message.Chat.ID, "Say /start first so I know you.")
	}

	if strings.EqualFold(arg, "off") {
		learner.ReminderEnabled = false
		if err := b.learners.Upsert(ctx, learner); err != nil {
			return err
		}
		return b.reply(message.Chat.ID, "Reminders disabled.")
	}

	hour, err := strconv.Atoi(arg)
	if err != nil || hour < 0 || hour > 23 {
		return b.reply(message.Chat.ID, "Usage: /remind <hour 0-23> or /remind off")
	}
	learner.ReminderEnabled = true
	learner.ReminderHour = hour
	if err := b.learners.Upsert(ctx, learner); err != nil {
		return err
	}
	return b.reply(message.Chat.ID, fmt.Sprintf("Daily reminder set for %02d:00 UTC.", hour))
}

func (b *Bot) sendCurrentCard(chatID int64) error {
	session := b.session(chatID)
	card := session.currentCard()
	if card == nil {
		return b.reply(chatID, "No more cards right now. /next tries again.")
	}

	msg := tgbotapi.NewMessage(chatID, formatCard(card))
	if card.Type == models.CardMultipleChoice && len(card.Options) > 0 {
		var rows [][]tgbotapi.KeyboardButton
		for _, opt := range card.Options {
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(opt)))
		}
		keyboard := tgbotapi.NewReplyKeyboard(rows...)
		keyboard.OneTimeKeyboard = true
		msg.ReplyMarkup = keyboard
	}
	_, err := b.api.Send(msg)
	return err
}

func formatCard(card *models.Card) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n\n%s", card.Concept, cardTypeLabel(card.Type), card.Prompt)
	return sb.String()
}

func formatResult(card *models.Card, result *models.AnswerResult) string {
	var sb strings.Builder
	if result.IsCorrect {
		fmt.Fprintf(&sb, "Correct! +%d XP", result.XPEarned)
		if result.Streak > 1 {
			fmt.Fprintf(&sb, " (streak %d)", result.Streak)
		}
	} else {
		fmt.Fprintf(&sb, "Not quite. The answer was: %s", card.Answer)
	}
	if card.Explanation != "" {
		fmt.Fprintf(&sb, "\n%s", card.Explanation)
	}
	if result.CalibrationNudge != nil {
		fmt.Fprintf(&sb, "\n\n%s", result.CalibrationNudge.Message)
	}
	return sb.String()
}

func cardTypeLabel(cardType string) string {
	switch cardType {
	case models.CardMultipleChoice:
		return "pick one"
	case models.CardFillBlank:
		return "fill the blank"
	default:
		return "flashcard"
	}
}
