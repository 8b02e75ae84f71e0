// Package bot is the Telegram surface of the learning feed. Each chat
// owns at most one active feed session; answers are timed from the
// moment the card is shown.
package bot

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/AEYohn/Quizly-sub000/internal/config"
	"github.com/AEYohn/Quizly-sub000/internal/database"
	"github.com/AEYohn/Quizly-sub000/internal/engine"
	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

// chatSession tracks the card currently shown in a chat.
type chatSession struct {
	sessionID string
	topic     string
	cards     []models.Card
	current   int
	servedAt  time.Time
}

func (s *chatSession) currentCard() *models.Card {
	if s == nil || s.current >= len(s.cards) {
		return nil
	}
	return &s.cards[s.current]
}

// Bot represents the Telegram bot application
type Bot struct {
	api      *tgbotapi.BotAPI
	engine   *engine.Engine
	learners *database.LearnerRepository
	admins   map[int64]bool

	mu       sync.Mutex
	sessions map[int64]*chatSession // keyed by chat id
}

// New creates a new bot instance
func New(cfg *config.Config, eng *engine.Engine) (*Bot, error) {
	if database.DB == nil {
		return nil, fmt.Errorf("database connection is not established")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %v", err)
	}

	admins := make(map[int64]bool, len(cfg.AdminUserIDs))
	for _, id := range cfg.AdminUserIDs {
		admins[id] = true
	}

	return &Bot{
		api:      api,
		engine:   eng,
		learners: database.NewLearnerRepository(),
		admins:   admins,
		sessions: make(map[int64]*chatSession),
	}, nil
}

// Start runs the update loop until the updates channel closes.
func (b *Bot) Start() {
	log.Printf("bot: authorized as @%s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	for update := range b.api.GetUpdatesChan(u) {
		if update.Message == nil {
			continue
		}
		if err := b.handleMessage(update.Message); err != nil {
			log.Printf("bot: handling message from chat %d: %v", update.Message.Chat.ID, err)
		}
	}
}

// Stop shuts down the update loop.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

// SendReminder implements the scheduler's Notifier: a practice nudge
// listing the learner's weakest concepts.
func (b *Bot) SendReminder(learnerID int64, weakConcepts []string) error {
	text := "Time to practice! Open a feed with /learn <topic>."
	if len(weakConcepts) > 0 {
		text = fmt.Sprintf("Time to practice! Your weakest spots: %s. Start with /learn <topic>.",
			strings.Join(weakConcepts, ", "))
	}
	_, err := b.api.Send(tgbotapi.NewMessage(learnerID, text))
	return err
}

func (b *Bot) session(chatID int64) *chatSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

func (b *Bot) setSession(chatID int64, s *chatSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == nil {
		delete(b.sessions, chatID)
		return
	}
	b.sessions[chatID] = s
}

func (b *Bot) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

// learnerKey maps a Telegram user id to the learner id the engine uses.
func learnerKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
