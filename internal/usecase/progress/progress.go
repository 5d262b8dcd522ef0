package progress

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"developertok/internal/domain/account"
)

const (
	DefaultLessonPoints    = 50
	DefaultChallengePoints = 100
)

type AccountStorage interface {
	FindByID(ctx context.Context, id string) (account.Account, error)
	UpdateProgress(ctx context.Context, id string, patch account.ProgressPatch, now time.Time) (account.Account, error)
}

// ProgressUsecaseHandler turns learning events into progress patches.
type ProgressUsecaseHandler struct {
	storage AccountStorage
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewProgressUsecaseHandler(storage AccountStorage, log *zap.SugaredLogger) *ProgressUsecaseHandler {
	return &ProgressUsecaseHandler{
		storage: storage,
		log:     log,
		now:     time.Now,
	}
}

// CompleteLesson counts the lesson, adds points and extends the streak.
// A non-positive points value falls back to DefaultLessonPoints.
func (p *ProgressUsecaseHandler) CompleteLesson(ctx context.Context, accountID, lessonID, title string, points int) (account.PublicAccount, error) {
	if points <= 0 {
		points = DefaultLessonPoints
	}
	return p.apply(ctx, accountID, func(cur account.Progress) account.ProgressPatch {
		return account.ProgressPatch{
			LessonsCompleted: account.IntPtr(cur.LessonsCompleted + 1),
			TotalPoints:      account.IntPtr(cur.TotalPoints + points),
			CurrentStreak:    account.IntPtr(cur.CurrentStreak + 1),
			Activity: &account.ActivityItem{
				Kind:      account.ActivityLesson,
				Title:     title,
				Completed: true,
				ItemID:    lessonID,
			},
		}
	})
}

func (p *ProgressUsecaseHandler) CompleteChallenge(ctx context.Context, accountID, challengeID, title string, points int) (account.PublicAccount, error) {
	if points <= 0 {
		points = DefaultChallengePoints
	}
	return p.apply(ctx, accountID, func(cur account.Progress) account.ProgressPatch {
		return account.ProgressPatch{
			ChallengesSolved: account.IntPtr(cur.ChallengesSolved + 1),
			TotalPoints:      account.IntPtr(cur.TotalPoints + points),
			CurrentStreak:    account.IntPtr(cur.CurrentStreak + 1),
			Activity: &account.ActivityItem{
				Kind:      account.ActivityChallenge,
				Title:     title,
				Completed: true,
				ItemID:    challengeID,
			},
		}
	})
}

func (p *ProgressUsecaseHandler) AwardBadge(ctx context.Context, accountID, badgeName string) (account.PublicAccount, error) {
	return p.apply(ctx, accountID, func(cur account.Progress) account.ProgressPatch {
		return account.ProgressPatch{
			Badges: account.IntPtr(cur.Badges + 1),
			Activity: &account.ActivityItem{
				Kind:      account.ActivityBadge,
				Title:     fmt.Sprintf("Earned %s badge", badgeName),
				Completed: true,
			},
		}
	})
}

// apply reads the current progress and writes the derived patch. Like every
// progress update it is last-write-wins against concurrent requests.
func (p *ProgressUsecaseHandler) apply(ctx context.Context, accountID string, build func(account.Progress) account.ProgressPatch) (account.PublicAccount, error) {
	acc, err := p.storage.FindByID(ctx, accountID)
	if err != nil {
		return account.PublicAccount{}, err
	}

	updated, err := p.storage.UpdateProgress(ctx, accountID, build(acc.Progress), p.now())
	if err != nil {
		return account.PublicAccount{}, err
	}

	p.log.Debugf("progress of %s: level=%d points=%d", accountID, updated.Progress.Level, updated.Progress.TotalPoints)
	return updated.Public(), nil
}
