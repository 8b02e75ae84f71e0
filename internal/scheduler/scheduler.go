package scheduler

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/AEYohn/Quizly-sub000/internal/database"
)

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
}

// Notifier sends practice reminders. Implemented by the bot.
type Notifier interface {
	SendReminder(learnerID int64, weakConcepts []string) error
}

// New creates a new scheduler instance
func New(notifier Notifier) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		notifier:  notifier,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Hour().Do(s.checkAndSendReminders)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkAndSendReminders finds learners whose reminder hour is now and
// nudges them with their weakest concepts.
func (s *Scheduler) checkAndSendReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	currentHour := time.Now().UTC().Hour()

	learners, err := database.NewLearnerRepository().WithRemindersAt(ctx, currentHour)
	if err != nil {
		log.Printf("scheduler: getting learners for hour %d: %v", currentHour, err)
		return
	}

	for _, learner := range learners {
		weak, err := s.weakConcepts(ctx, learner.ID)
		if err != nil {
			log.Printf("scheduler: weak concepts for learner %d: %v", learner.ID, err)
			continue
		}
		if err := s.notifier.SendReminder(learner.ID, weak); err != nil {
			log.Printf("scheduler: sending reminder to %d: %v", learner.ID, err)
		}
	}
}

// RunManualCheck forces a reminder for a specific learner
func (s *Scheduler) RunManualCheck(learnerID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	weak, err := s.weakConcepts(ctx, learnerID)
	if err != nil {
		return err
	}
	return s.notifier.SendReminder(learnerID, weak)
}

// weakConcepts returns up to three concepts with the lowest mastery
// estimates, skipping ones the learner has never attempted.
func (s *Scheduler) weakConcepts(ctx context.Context, learnerID int64) ([]string, error) {
	states, err := database.NewMasteryRepository().AllForLearner(ctx, learnerIDKey(learnerID))
	if err != nil {
		return nil, err
	}

	var weak []string
	for len(weak) < 3 {
		best := ""
		bestP := 2.0
		for concept, st := range states {
			if st.TotalAttempts == 0 || contains(weak, concept) {
				continue
			}
			if st.PLearned < bestP {
				best = concept
				bestP = st.PLearned
			}
		}
		if best == "" {
			break
		}
		weak = append(weak, best)
	}
	return weak, nil
}

// learnerIDKey maps a Telegram user id to the string key the mastery
// store uses.
func learnerIDKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
