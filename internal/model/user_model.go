package model

// Identity is the authenticated principal. All four fields are set or cleared together.
type Identity struct {
	Token    string `json:"token"`
	UserId   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (i Identity) IsAuthenticated() bool {
	return i.Token != ""
}

type SubjectProgress struct {
	Subject  string  `json:"subject"`
	Progress float64 `json:"progress"`
}

type UserProgress struct {
	UserId                int64             `json:"userId"`
	QuizzesTaken          int               `json:"quizzesTaken"`
	QuizzesTakenThisMonth int               `json:"quizzesTakenThisMonth"`
	AverageScore          float64           `json:"averageScore"`
	ScoreChangeThisMonth  float64           `json:"scoreChangeThisMonth"`
	BySubject             []SubjectProgress `json:"bySubject"`
}

// Dashboard aggregates the three read-only projections shown after login.
type Dashboard struct {
	Progress         *UserProgress
	StudiedDocuments []Document
	Recommendations  []Recommendation
}
