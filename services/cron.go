package services

import (
	"time"

	"vlmax-platform/internal/logger"

	"github.com/go-co-op/gocron"
)

const sessionEvictionInterval = 10 * time.Minute

// CronService runs housekeeping jobs: idle session eviction and, when
// configured, periodic artifact cleanup.
type CronService struct {
	scheduler *gocron.Scheduler
}

func NewCronService() *CronService {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &CronService{scheduler: s}
}

// ScheduleSessionEviction evicts memory sessions idle for longer than ttl.
func (c *CronService) ScheduleSessionEviction(store *MemorySessionStore, chat *ChatService, ttl time.Duration) error {
	_, err := c.scheduler.Every(sessionEvictionInterval).Tag("session-eviction").Do(func() {
		removed := store.EvictIdle(ttl)
		for _, id := range removed {
			chat.ForgetSession(id)
		}
		if len(removed) > 0 {
			logger.Info("Evicted idle sessions", "removed", len(removed), "remaining", store.Len())
		}
	})
	return err
}

// ScheduleCleanup runs the cleaner on a cron expression such as "0 3 * * *".
func (c *CronService) ScheduleCleanup(cronExpr string, cleaner *Cleaner) error {
	_, err := c.scheduler.Cron(cronExpr).Tag("artifact-cleanup").Do(func() {
		if _, err := cleaner.Run(); err != nil {
			logger.Error("Scheduled cleanup failed", "error", err)
		}
	})
	return err
}

func (c *CronService) Jobs() []*gocron.Job {
	return c.scheduler.Jobs()
}

func (c *CronService) Start() {
	c.scheduler.StartAsync()
}

func (c *CronService) Stop() {
	c.scheduler.Stop()
}
