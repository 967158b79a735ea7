package model

// ContactRequest is the body of POST /api/contact.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ContactResponse acknowledges a delivered contact message.
type ContactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LeetCodeRating is the public profile summary returned by GET /api/leetcode/{username}.
type LeetCodeRating struct {
	Success           bool     `json:"success"`
	Username          string   `json:"username"`
	Ranking           *int     `json:"ranking"`
	ContestRating     *float64 `json:"contestRating"`
	GlobalRanking     *int     `json:"globalRanking"`
	TotalParticipants *int     `json:"totalParticipants"`
	TopPercentage     *float64 `json:"topPercentage"`
}
