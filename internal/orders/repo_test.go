package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
)

func newRepo(t *testing.T) (*Repo, *gorm.DB) {
	t.Helper()
	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	createOrderSchema(t, gdb)
	repo, err := NewRepo(gdb)
	require.NoError(t, err)
	return repo, gdb
}

func seedOrder(t *testing.T, gdb *gorm.DB, status enums.OrderStatus, updatedAt time.Time) uuid.UUID {
	t.Helper()
	order := models.Order{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		DealerID:       uuid.New(),
		Status:         status,
		Currency:       enums.CurrencyUSD,
		SubtotalAmount: decimal.NewFromInt(100),
		DiscountAmount: decimal.Zero,
		TotalAmount:    decimal.NewFromInt(100),
		OrderDate:      updatedAt,
		Items: []models.OrderItem{{
			ID:         uuid.New(),
			ProductID:  uuid.New(),
			Currency:   enums.CurrencyUSD,
			UnitPrice:  decimal.NewFromInt(50),
			Quantity:   2,
			TotalPrice: decimal.NewFromInt(100),
		}},
	}
	require.NoError(t, gdb.Create(&order).Error)
	require.NoError(t, gdb.Model(&models.Order{}).
		Where("id = ?", order.ID).
		UpdateColumn("updated_at", updatedAt).Error)
	return order.ID
}

func TestFindByIDPreloadsItems(t *testing.T) {
	t.Parallel()

	repo, gdb := newRepo(t)
	id := seedOrder(t, gdb, enums.OrderStatusPending, time.Now())

	order, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
}

func TestFindByIDNotFound(t *testing.T) {
	t.Parallel()

	repo, _ := newRepo(t)
	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestFindStuckEditedBefore(t *testing.T) {
	t.Parallel()

	repo, gdb := newRepo(t)
	now := time.Now().UTC()
	stale := seedOrder(t, gdb, enums.OrderStatusEditedPendingApproval, now.Add(-50*time.Hour))
	seedOrder(t, gdb, enums.OrderStatusEditedPendingApproval, now.Add(-10*time.Hour))
	seedOrder(t, gdb, enums.OrderStatusPending, now.Add(-70*time.Hour))

	got, err := repo.FindStuckEditedBefore(context.Background(), now.Add(-48*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stale, got[0].ID)
	assert.Len(t, got[0].Items, 1)
}

func TestFindStuckEditedBeforeHonorsBatchCap(t *testing.T) {
	t.Parallel()

	repo, gdb := newRepo(t)
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		seedOrder(t, gdb, enums.OrderStatusEditedPendingApproval, now.Add(-72*time.Hour))
	}

	got, err := repo.FindStuckEditedBefore(context.Background(), now.Add(-48*time.Hour), 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSaveSkipsItems(t *testing.T) {
	t.Parallel()

	repo, gdb := newRepo(t)
	id := seedOrder(t, gdb, enums.OrderStatusPending, time.Now())

	order, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	order.Status = enums.OrderStatusApproved
	require.NoError(t, repo.Save(context.Background(), order))

	reloaded, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusApproved, reloaded.Status)
	assert.Len(t, reloaded.Items, 1)
}
