package store

import (
	"context"
	"fmt"
	"time"

	"github.com/postcoach/postcoach/pkg/models"
)

// AdminStats runs the aggregate queries behind the admin analytics panel.
// Day boundaries are computed in UTC.
func (s *PostgresStore) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := today.AddDate(0, 0, -7)
	monthAgo := today.AddDate(0, 0, -30)

	stats := &models.AdminStats{}

	var err error
	if stats.Users, err = s.countBreakdown(ctx, "postcoach_users", today, weekAgo); err != nil {
		return nil, err
	}
	if stats.Analyses, err = s.countBreakdown(ctx, "postcoach_analysis_cache", today, weekAgo); err != nil {
		return nil, err
	}

	if stats.TopAnalyzedAccounts, err = s.topAnalyzedAccounts(ctx); err != nil {
		return nil, err
	}
	if stats.TopActiveUsers, err = s.topActiveUsers(ctx); err != nil {
		return nil, err
	}
	if stats.RecentSignups, err = s.recentSignups(ctx); err != nil {
		return nil, err
	}

	if stats.Charts.SignupsByDay, err = s.countsByDay(ctx, "postcoach_users", monthAgo); err != nil {
		return nil, err
	}
	if stats.Charts.AnalysesByDay, err = s.countsByDay(ctx, "postcoach_analysis_cache", monthAgo); err != nil {
		return nil, err
	}

	return stats, nil
}

// countBreakdown counts all rows plus those created today and this week.
// The table name is always one of our own constants, never caller input.
func (s *PostgresStore) countBreakdown(ctx context.Context, table string, today, weekAgo time.Time) (models.CountBreakdown, error) {
	var b models.CountBreakdown
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE created_at >= $1),
		        COUNT(*) FILTER (WHERE created_at >= $2)
		 FROM %s`, table), today, weekAgo,
	).Scan(&b.Total, &b.Today, &b.ThisWeek)
	if err != nil {
		return b, fmt.Errorf("count %s: %w", table, err)
	}
	return b, nil
}

func (s *PostgresStore) topAnalyzedAccounts(ctx context.Context) ([]models.AccountCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT username, fid, COUNT(*)
		 FROM postcoach_analysis_cache
		 GROUP BY fid, username
		 ORDER BY COUNT(*) DESC
		 LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("top analyzed accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.AccountCount{}
	for rows.Next() {
		var a models.AccountCount
		if err := rows.Scan(&a.Username, &a.FID, &a.Count); err != nil {
			return nil, fmt.Errorf("scan account count: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) topActiveUsers(ctx context.Context) ([]models.ActiveUser, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.username, u.fid, u.pfp_url, COUNT(h.id)
		 FROM postcoach_users u
		 LEFT JOIN postcoach_user_analysis_history h ON u.id = h.user_id
		 GROUP BY u.id, u.username, u.fid, u.pfp_url
		 ORDER BY COUNT(h.id) DESC
		 LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("top active users: %w", err)
	}
	defer rows.Close()

	users := []models.ActiveUser{}
	for rows.Next() {
		var u models.ActiveUser
		if err := rows.Scan(&u.Username, &u.FID, &u.PfpURL, &u.AnalysisCount); err != nil {
			return nil, fmt.Errorf("scan active user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) recentSignups(ctx context.Context) ([]models.Signup, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT username, fid, pfp_url, created_at
		 FROM postcoach_users
		 ORDER BY created_at DESC
		 LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("recent signups: %w", err)
	}
	defer rows.Close()

	signups := []models.Signup{}
	for rows.Next() {
		var su models.Signup
		if err := rows.Scan(&su.Username, &su.FID, &su.PfpURL, &su.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signup: %w", err)
		}
		signups = append(signups, su)
	}
	return signups, rows.Err()
}

func (s *PostgresStore) countsByDay(ctx context.Context, table string, since time.Time) ([]models.DayCount, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT TO_CHAR(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		 FROM %s
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day`, table), since)
	if err != nil {
		return nil, fmt.Errorf("counts by day for %s: %w", table, err)
	}
	defer rows.Close()

	counts := []models.DayCount{}
	for rows.Next() {
		var dc models.DayCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan day count: %w", err)
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}
