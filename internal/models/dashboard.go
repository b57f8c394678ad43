package models

// AnnotatorStat summarizes one annotator's work on a project.
type AnnotatorStat struct {
	UserID             string  `json:"userId"`
	Name               string  `json:"name"`
	Assigned           int     `json:"assigned"`
	Submitted          int     `json:"submitted"`
	Accepted           int     `json:"accepted"`
	Rejected           int     `json:"rejected"`
	AverageTimeSeconds float64 `json:"averageTimeSeconds"`
}

// DailyCount is the number of events on one calendar day (YYYY-MM-DD, UTC).
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ProjectDashboard aggregates the state of a single project.
type ProjectDashboard struct {
	ProjectID          string          `json:"projectId"`
	TotalTasks         int             `json:"totalTasks"`
	StatusCounts       map[string]int  `json:"statusCounts"`
	CompletionPercent  float64         `json:"completionPercent"`
	AverageTimeSeconds float64         `json:"averageTimeSeconds"`
	Annotators         []AnnotatorStat `json:"annotators"`
	DailySubmissions   []DailyCount    `json:"dailySubmissions"`
}

// OverviewDashboard aggregates every project visible to an owner or manager.
type OverviewDashboard struct {
	TotalProjects       int            `json:"totalProjects"`
	ActiveProjects      int            `json:"activeProjects"`
	TaskStatusCounts    map[string]int `json:"taskStatusCounts"`
	TotalAnnotators     int            `json:"totalAnnotators"`
	OpenJobPosts        int            `json:"openJobPosts"`
	PendingInvoiceCents int64          `json:"pendingInvoiceCents"`
	PaidInvoiceCents    int64          `json:"paidInvoiceCents"`
	RecentEvents        []Event        `json:"recentEvents"`
}

// UpcomingWebinar is a webinar together with the training it belongs to.
type UpcomingWebinar struct {
	TrainingID    string  `json:"trainingId"`
	TrainingTitle string  `json:"trainingTitle"`
	Webinar       Webinar `json:"webinar"`
}

// AnnotatorDashboard aggregates an annotator's own work.
type AnnotatorDashboard struct {
	StatusCounts         map[string]int    `json:"statusCounts"`
	PendingReviews       int               `json:"pendingReviews"`
	EarningsCents        int64             `json:"earningsCents"`
	PendingEarningsCents int64             `json:"pendingEarningsCents"`
	UpcomingWebinars     []UpcomingWebinar `json:"upcomingWebinars"`
}
