package account

import "time"

const (
	PointsPerLevel    = 500
	MaxRecentActivity = 10

	DefaultBio        = "Passionate developer learning new skills every day"
	DefaultDifficulty = "beginner"
	WelcomeTitle      = "Welcome to DeveloperTok"
)

type ActivityKind string

const (
	ActivityLesson    ActivityKind = "lesson"
	ActivityChallenge ActivityKind = "challenge"
	ActivityBadge     ActivityKind = "badge"
)

func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityLesson, ActivityChallenge, ActivityBadge:
		return true
	}
	return false
}

// Account is the document stored in the users collection.
type Account struct {
	ID             string         `json:"id" bson:"_id,omitempty"`
	Username       string         `json:"username" bson:"username"`
	Email          string         `json:"email" bson:"email"`
	PasswordHash   string         `json:"-" bson:"password,omitempty"`
	ProfilePicture string         `json:"profilePicture" bson:"profilePicture"`
	Bio            string         `json:"bio" bson:"bio"`
	Preferences    Preferences    `json:"preferences" bson:"preferences"`
	Progress       Progress       `json:"progress" bson:"progress"`
	RecentActivity []ActivityItem `json:"recentActivity" bson:"recentActivity"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
}

type Preferences struct {
	FavoriteTopics     []string `json:"favoriteTopics" bson:"favoriteTopics"`
	Difficulty         string   `json:"difficulty" bson:"difficulty"`
	EmailNotifications bool     `json:"emailNotifications" bson:"emailNotifications"`
}

type Progress struct {
	LessonsCompleted int       `json:"lessonsCompleted" bson:"lessonsCompleted"`
	ChallengesSolved int       `json:"challengesSolved" bson:"challengesSolved"`
	CurrentStreak    int       `json:"currentStreak" bson:"currentStreak"`
	LongestStreak    int       `json:"longestStreak" bson:"longestStreak"`
	TotalPoints      int       `json:"totalPoints" bson:"totalPoints"`
	Level            int       `json:"level" bson:"level"`
	Badges           int       `json:"badges" bson:"badges"`
	LastActive       time.Time `json:"lastActive" bson:"lastActive"`
}

type ActivityItem struct {
	Kind      ActivityKind `json:"type" bson:"type"`
	Title     string       `json:"title" bson:"title"`
	Date      time.Time    `json:"date" bson:"date"`
	Completed bool         `json:"completed" bson:"completed"`
	ItemID    string       `json:"itemId,omitempty" bson:"itemId,omitempty"`
}

// PublicAccount is what clients get to see: the account without its credential.
type PublicAccount struct {
	ID             string         `json:"id"`
	Username       string         `json:"username"`
	Email          string         `json:"email"`
	ProfilePicture string         `json:"profilePicture"`
	Bio            string         `json:"bio"`
	Preferences    Preferences    `json:"preferences"`
	Progress       Progress       `json:"progress"`
	RecentActivity []ActivityItem `json:"recentActivity"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// NewAccount builds a freshly registered account with default progress
// and the welcome activity entry.
func NewAccount(username, email, passwordHash string, now time.Time) Account {
	return Account{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Bio:          DefaultBio,
		Preferences: Preferences{
			FavoriteTopics:     []string{},
			Difficulty:         DefaultDifficulty,
			EmailNotifications: true,
		},
		Progress: Progress{
			Level:      LevelForPoints(0),
			LastActive: now,
		},
		RecentActivity: []ActivityItem{{
			Kind:      ActivityLesson,
			Title:     WelcomeTitle,
			Date:      now,
			Completed: true,
		}},
		CreatedAt: now,
	}
}

func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return points/PointsPerLevel + 1
}

func (a Account) Public() PublicAccount {
	activity := a.RecentActivity
	if activity == nil {
		activity = []ActivityItem{}
	}
	return PublicAccount{
		ID:             a.ID,
		Username:       a.Username,
		Email:          a.Email,
		ProfilePicture: a.ProfilePicture,
		Bio:            a.Bio,
		Preferences:    a.Preferences,
		Progress:       a.Progress,
		RecentActivity: activity,
		CreatedAt:      a.CreatedAt,
	}
}
