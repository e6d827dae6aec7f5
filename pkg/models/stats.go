package models

import "time"

// AdminStats is the aggregate report behind the admin analytics panel.
type AdminStats struct {
	Users               CountBreakdown `json:"users"`
	Analyses            CountBreakdown `json:"analyses"`
	TopAnalyzedAccounts []AccountCount `json:"top_analyzed_accounts"`
	TopActiveUsers      []ActiveUser   `json:"top_active_users"`
	RecentSignups       []Signup       `json:"recent_signups"`
	Charts              StatCharts     `json:"charts"`
}

// CountBreakdown holds a total plus today / trailing-week slices.
type CountBreakdown struct {
	Total    int `json:"total"`
	Today    int `json:"today"`
	ThisWeek int `json:"this_week"`
}

// AccountCount is one entry of the most-analyzed-accounts ranking.
type AccountCount struct {
	Username *string `json:"username"`
	FID      int64   `json:"fid"`
	Count    int     `json:"count"`
}

// ActiveUser is one entry of the most-active-users ranking, ordered by how
// many analyses the user has viewed.
type ActiveUser struct {
	Username      string  `json:"username"`
	FID           int64   `json:"fid"`
	PfpURL        *string `json:"pfp_url"`
	AnalysisCount int     `json:"analysis_count"`
}

// Signup is one entry of the recent-signups list.
type Signup struct {
	Username  string    `json:"username"`
	FID       int64     `json:"fid"`
	PfpURL    *string   `json:"pfp_url"`
	CreatedAt time.Time `json:"created_at"`
}

// StatCharts holds the 30-day per-day series used by the admin charts.
type StatCharts struct {
	SignupsByDay  []DayCount `json:"signups_by_day"`
	AnalysesByDay []DayCount `json:"analyses_by_day"`
}

// DayCount is one point of a per-day series. Date is formatted YYYY-MM-DD.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
