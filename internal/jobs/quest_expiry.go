package jobs

import (
	"context"
	"log"
)

// QuestExpiryJobName is the scheduler name of the quest expiry job
const QuestExpiryJobName = "quest-expiry"

// DefaultQuestExpirySchedule runs every 15 minutes
const DefaultQuestExpirySchedule = "*/15 * * * *"

// QuestExpirer expires pending quests whose deadline has passed
type QuestExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// QuestExpiryJob flips overdue pending quests to expired
type QuestExpiryJob struct {
	quests   QuestExpirer
	schedule string
}

// NewQuestExpiryJob creates the job; an empty schedule uses the default
func NewQuestExpiryJob(quests QuestExpirer, schedule string) *QuestExpiryJob {
	if schedule == "" {
		schedule = DefaultQuestExpirySchedule
	}
	return &QuestExpiryJob{quests: quests, schedule: schedule}
}

// Run expires overdue quests
func (j *QuestExpiryJob) Run(ctx context.Context) error {
	count, err := j.quests.ExpireOverdue(ctx)
	if err != nil {
		log.Printf("❌ [QUEST-EXPIRY] Failed to expire quests: %v", err)
		return err
	}
	if count > 0 {
		log.Printf("🧹 [QUEST-EXPIRY] Expired %d overdue quests", count)
	}
	return nil
}

// Schedule returns the cron expression
func (j *QuestExpiryJob) Schedule() string {
	return j.schedule
}
