package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbill-backend/internal/domain"
	ierr "rentbill-backend/internal/errors"
	"rentbill-backend/internal/repository/postgres"
)

var rateTemplateCols = []string{
	"id", "name", "rate_basis", "rate_amount", "minimum_hours", "overtime_multiplier",
	"standby_multiplier", "breakdown_penalty_per_day", "hours_per_day", "days_per_month",
	"tax_percentage", "created_at", "updated_at",
}

func TestRateTemplateRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRateTemplateRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(rateTemplateCols).
			AddRow(3, "Excavator monthly", "monthly", "45000000", "200", "1.5", "0.5", "500000", "8", "25", "11", now, now)
		mock.ExpectQuery("SELECT (.+) FROM rate_templates t WHERE t.id = \\$1").
			WithArgs(int32(3)).
			WillReturnRows(rows)

		tmpl, err := repo.GetByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "Excavator monthly", tmpl.Name)
		assert.Equal(t, domain.RateBasisMonthly, tmpl.RateBasis)
		assert.Equal(t, "45000000", tmpl.RateAmount.String())
		assert.Equal(t, "200", tmpl.StandardHoursThreshold().String())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM rate_templates").
			WithArgs(int32(4)).
			WillReturnError(sql.ErrNoRows)

		tmpl, err := repo.GetByID(ctx, 4)
		assert.Nil(t, tmpl)
		assert.True(t, ierr.IsNotFound(err))
	})

	t.Run("DatabaseError", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM rate_templates").
			WithArgs(int32(11)).
			WillReturnError(errors.New("connection reset"))

		tmpl, err := repo.GetByID(ctx, 11)
		assert.Nil(t, tmpl)
		assert.True(t, errors.Is(err, ierr.ErrDatabase))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
