package progress

import "coursehub/backend/models"

// ComputeAccountStats rolls per-course views up into account-wide numbers.
func ComputeAccountStats(courses []models.DashboardCourseView) models.AccountStats {
	stats := models.AccountStats{TotalCourses: len(courses)}
	for _, c := range courses {
		stats.TotalLessons += c.TotalLessons
		stats.CompletedLessons += c.CompletedLessons
		stats.TotalTimeSpent += c.TimeSpent
		switch {
		case c.IsCompleted:
			stats.CompletedCourses++
		case c.HasStarted:
			stats.InProgressCourses++
		}
	}
	stats.OverallProgress = Percentage(stats.CompletedLessons, stats.TotalLessons)
	return stats
}
