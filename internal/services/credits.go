package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrOverdraft is returned when a user's balance is already negative.
var ErrOverdraft = errors.New("account in overdraft: purchase credits to continue")

type CreditsService struct {
	db *gorm.DB
}

func NewCreditsService(db *gorm.DB) *CreditsService {
	return &CreditsService{db: db}
}

// CreateInitialCredits creates the balance row for a new user.
func (s *CreditsService) CreateInitialCredits(tx *gorm.DB, user *models.User) error {
	if tx == nil {
		tx = s.db
	}
	credits := models.UserCredits{
		UserID:  user.ID,
		Credits: models.GetInitialCreditsForRole(user.Role),
	}
	return tx.Create(&credits).Error
}

// GetUserCredits retrieves the current credit balance for a user
func (s *CreditsService) GetUserCredits(userID uint) (*models.UserCredits, error) {
	var credits models.UserCredits
	if err := s.db.Where("user_id = ?", userID).First(&credits).Error; err != nil {
		return nil, err
	}
	return &credits, nil
}

// CheckCredits reports whether user may start a generation. Unlimited roles
// always pass; everyone else is blocked only while in overdraft.
func (s *CreditsService) CheckCredits(user *models.User) (int, error) {
	if models.HasUnlimitedCredits(user.Role) {
		return 0, nil
	}
	credits, err := s.GetUserCredits(user.ID)
	if err != nil {
		return 0, err
	}
	if credits.Credits < 0 {
		return credits.Credits, ErrOverdraft
	}
	return credits.Credits, nil
}

// CalculateCredits calculates credit cost for a generation
// Flat rate: 1 credit per generation (regardless of token usage)
// Tokens are still logged for analytics and cost tracking
func (s *CreditsService) CalculateCredits(_ int) int {
	return 1
}

// DeductCredits deducts credits from a user's balance
// If already negative, blocks the request (must top up first)
// If positive, allows going negative by one request (overdraft grace)
// Users with unlimited credits (e.g., admins) are not deducted
func (s *CreditsService) DeductCredits(userID uint, credits int) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return err
	}

	if models.HasUnlimitedCredits(user.Role) {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var userCredits models.UserCredits
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&userCredits).Error; err != nil {
			return err
		}

		if userCredits.Credits < 0 {
			return fmt.Errorf("%w (%d credits)", ErrOverdraft, userCredits.Credits)
		}

		userCredits.Credits -= credits
		return tx.Save(&userCredits).Error
	})
}

// AddCredits adds credits to a user's balance (for purchases/rewards)
// If balance is negative, resets to 0 first (forgives overdraft), then adds credits
func (s *CreditsService) AddCredits(userID uint, credits int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var userCredits models.UserCredits
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&userCredits).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.UserCredits{UserID: userID, Credits: credits}).Error
		}
		if err != nil {
			return err
		}

		if userCredits.Credits < 0 {
			userCredits.Credits = credits
		} else {
			userCredits.Credits += credits
		}
		return tx.Save(&userCredits).Error
	})
}

// LogUsage logs API usage and credit consumption
func (s *CreditsService) LogUsage(log *models.UsageLog) error {
	return s.db.Create(log).Error
}

// GetUserUsageStats retrieves usage statistics for a user
func (s *CreditsService) GetUserUsageStats(userID uint, from, to time.Time) (*UsageStats, error) {
	scope := func() *gorm.DB {
		query := s.db.Model(&models.UsageLog{}).Where("user_id = ?", userID)
		if !from.IsZero() {
			query = query.Where("created_at >= ?", from)
		}
		if !to.IsZero() {
			query = query.Where("created_at <= ?", to)
		}
		return query
	}

	var stats UsageStats
	if err := scope().Select(
		"COUNT(*) as total_requests",
		"COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0) as failed_requests",
		"COALESCE(SUM(total_tokens), 0) as total_tokens_used",
		"COALESCE(SUM(input_tokens), 0) as total_input_tokens",
		"COALESCE(SUM(output_tokens), 0) as total_output_tokens",
		"COALESCE(SUM(credits_charged), 0) as total_credits_used",
		"COALESCE(AVG(duration_ms), 0) as avg_duration_ms",
	).Scan(&stats).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Label string
		Total int64
	}
	if err := scope().Select("operation as label, COUNT(*) as total").Group("operation").Scan(&rows).Error; err != nil {
		return nil, err
	}
	stats.OperationUsage = make(map[string]int64, len(rows))
	for _, r := range rows {
		stats.OperationUsage[r.Label] = r.Total
	}

	rows = nil
	if err := scope().Select("model as label, COUNT(*) as total").Group("model").Scan(&rows).Error; err != nil {
		return nil, err
	}
	stats.ModelUsage = make(map[string]int64, len(rows))
	for _, r := range rows {
		stats.ModelUsage[r.Label] = r.Total
	}

	return &stats, nil
}

// GetUsageHistory returns a page of usage logs, newest first, and the total count.
func (s *CreditsService) GetUsageHistory(userID uint, page, pageSize int) ([]models.UsageLog, int64, error) {
	if page < 1 {
		page = 1
	}
	var total int64
	if err := s.db.Model(&models.UsageLog{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	logs := []models.UsageLog{}
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

type UsageStats struct {
	TotalRequests     int64            `json:"total_requests"`
	FailedRequests    int64            `json:"failed_requests"`
	TotalTokensUsed   int64            `json:"total_tokens_used"`
	TotalInputTokens  int64            `json:"total_input_tokens"`
	TotalOutputTokens int64            `json:"total_output_tokens"`
	TotalCreditsUsed  int64            `json:"total_credits_used"`
	AvgDurationMS     float64          `json:"avg_duration_ms"`
	OperationUsage    map[string]int64 `json:"operation_usage"`
	ModelUsage        map[string]int64 `json:"model_usage"`
}
