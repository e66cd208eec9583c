package postgres

import (
	"context"
	"database/sql"

	"rentbill-backend/internal/domain"
	"rentbill-backend/internal/logger"
	"rentbill-backend/internal/repository"
)

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	logger.EnterMethod("rentalRepository.GetByID", "rentalID", id)

	query := `SELECT id, asset_id, customer_name, rate_template_id, status, start_date, end_date, created_on, updated_on FROM rentals WHERE id = $1`
	logger.DatabaseCall("select", query, "rentalID", id)

	rt := &domain.Rental{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rt.ID, &rt.AssetID, &rt.CustomerName, &rt.RateTemplateID, &rt.Status,
		&rt.StartDate, &rt.EndDate, &rt.CreatedOn, &rt.UpdatedOn,
	)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.GetByID", err, "rentalID", id)
		return nil, translateError(err, "rental", map[string]interface{}{"rental_id": id})
	}

	logger.ExitMethod("rentalRepository.GetByID", "rentalID", id)
	return rt, nil
}
