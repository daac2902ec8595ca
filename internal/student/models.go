package student

// RankEntry is one row of the club leaderboard, ordered by rating.
type RankEntry struct {
	StudentID     int64  `json:"studentId"`
	StudentName   string `json:"studentName"`
	StudentNumber string `json:"studentNumber"`
	Tier          int    `json:"tier"`
	SolvedCount   int    `json:"solvedCount"`
	Rating        int    `json:"rating"`
}

// TierName maps a numeric solved.ac tier to its bucket name. Each bucket
// spans five levels; anything outside the known range is "noob".
func TierName(tier int) string {
	if tier < 0 {
		return "noob"
	}
	switch tier / 5 {
	case 0:
		return "bronze"
	case 1:
		return "silver"
	case 2:
		return "gold"
	case 3:
		return "platinum"
	case 4:
		return "diamond"
	default:
		return "noob"
	}
}
