package postgres

import (
	"context"
	"database/sql"

	"rentbill-backend/internal/domain"
	"rentbill-backend/internal/logger"
	"rentbill-backend/internal/repository"
)

type rateTemplateRepository struct {
	db *sql.DB
}

func NewRateTemplateRepository(db *sql.DB) repository.RateTemplateRepository {
	return &rateTemplateRepository{db: db}
}

const rateTemplateColumns = `t.id, t.name, t.rate_basis, t.rate_amount, t.minimum_hours, t.overtime_multiplier,
		       t.standby_multiplier, t.breakdown_penalty_per_day, t.hours_per_day, t.days_per_month,
		       t.tax_percentage, t.created_at, t.updated_at`

func (r *rateTemplateRepository) GetByID(ctx context.Context, id int32) (*domain.RateTemplate, error) {
	logger.EnterMethod("rateTemplateRepository.GetByID", "templateID", id)

	query := `SELECT ` + rateTemplateColumns + ` FROM rate_templates t WHERE t.id = $1`
	tmpl, err := scanRateTemplate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		logger.ExitMethodWithError("rateTemplateRepository.GetByID", err, "templateID", id)
		return nil, translateError(err, "rate template", map[string]interface{}{"template_id": id})
	}

	logger.ExitMethod("rateTemplateRepository.GetByID", "templateID", id)
	return tmpl, nil
}

func scanRateTemplate(row *sql.Row) (*domain.RateTemplate, error) {
	t := &domain.RateTemplate{}
	err := row.Scan(
		&t.ID, &t.Name, &t.RateBasis, &t.RateAmount, &t.MinimumHours, &t.OvertimeMultiplier,
		&t.StandbyMultiplier, &t.BreakdownPenaltyPerDay, &t.HoursPerDay, &t.DaysPerMonth,
		&t.TaxPercentage, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
