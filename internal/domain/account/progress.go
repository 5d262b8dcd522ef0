package account

import "time"

// ProgressPatch carries only the fields a client asked to change.
// A nil field is left untouched.
type ProgressPatch struct {
	LessonsCompleted *int
	ChallengesSolved *int
	TotalPoints      *int
	CurrentStreak    *int
	Badges           *int
	Activity         *ActivityItem
}

func (p ProgressPatch) Empty() bool {
	return p.LessonsCompleted == nil && p.ChallengesSolved == nil && p.TotalPoints == nil &&
		p.CurrentStreak == nil && p.Badges == nil && p.Activity == nil
}

// ApplyProgress mutates the account according to patch. Level follows
// total points, the longest streak never shrinks and the activity log
// keeps the MaxRecentActivity newest entries.
func (a *Account) ApplyProgress(patch ProgressPatch, now time.Time) {
	if patch.LessonsCompleted != nil {
		a.Progress.LessonsCompleted = *patch.LessonsCompleted
	}
	if patch.ChallengesSolved != nil {
		a.Progress.ChallengesSolved = *patch.ChallengesSolved
	}
	if patch.TotalPoints != nil {
		a.Progress.TotalPoints = *patch.TotalPoints
		a.Progress.Level = LevelForPoints(*patch.TotalPoints)
	}
	if patch.CurrentStreak != nil {
		a.Progress.CurrentStreak = *patch.CurrentStreak
		if a.Progress.CurrentStreak > a.Progress.LongestStreak {
			a.Progress.LongestStreak = a.Progress.CurrentStreak
		}
	}
	if patch.Badges != nil {
		a.Progress.Badges = *patch.Badges
	}

	a.Progress.LastActive = now

	if patch.Activity != nil {
		item := *patch.Activity
		item.Date = now
		a.PushActivity(item)
	}
}

// PushActivity prepends item and drops whatever falls past the cap.
func (a *Account) PushActivity(item ActivityItem) {
	activity := make([]ActivityItem, 0, len(a.RecentActivity)+1)
	activity = append(activity, item)
	activity = append(activity, a.RecentActivity...)
	if len(activity) > MaxRecentActivity {
		activity = activity[:MaxRecentActivity]
	}
	a.RecentActivity = activity
}

func IntPtr(v int) *int {
	return &v
}
