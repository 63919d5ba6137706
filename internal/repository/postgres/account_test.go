package postgres

import (
	"context"
	"testing"
	"time"

	"rental-ledger-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccountRepository_GetByExternalID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "external_id", "full_name", "shop_name", "address", "phone", "is_active", "created_on"}).
			AddRow(1, 555, "Owner", "Tool Shop", "Main st", "+998", true, time.Now())
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE external_id = \\$1").
			WithArgs(int64(555)).
			WillReturnRows(rows)

		account, err := repo.GetByExternalID(context.Background(), 555)
		assert.NoError(t, err)
		assert.Equal(t, "Tool Shop", account.ShopName)
		assert.True(t, account.IsActive)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs(int64(556)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByExternalID(context.Background(), 556)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAccountRepository_Delete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountRepository(db)

	mock.ExpectExec("DELETE FROM accounts WHERE id = \\$1").
		WithArgs(int32(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 1), domain.ErrNotFound)
}

func TestPaymentRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)

	rentalID := int32(11)
	ref := uuid.NewString()
	payment := &domain.Payment{AccountID: 1, RentalID: &rentalID, Amount: decimal.NewFromInt(1500), Reference: ref}

	mock.ExpectQuery("INSERT INTO payments").
		WithArgs(int32(1), &rentalID, decimal.NewFromInt(1500), ref).
		WillReturnRows(sqlmock.NewRows([]string{"id", "paid_on"}).AddRow(4, time.Now()))

	assert.NoError(t, repo.Create(context.Background(), payment))
	assert.Equal(t, int32(4), payment.ID)
}

func TestPaymentRepository_TotalForRental(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM payments WHERE rental_id = \\$1").
		WithArgs(int32(11)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("0"))

	total, err := repo.TotalForRental(context.Background(), 11)
	assert.NoError(t, err)
	assert.True(t, total.IsZero())
}
