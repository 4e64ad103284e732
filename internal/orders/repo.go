package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) (*Repo, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repo requires a db handle")
	}
	return &Repo{db: db}, nil
}

// WithTx returns a copy bound to the given transaction.
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{db: tx}
}

func (r *Repo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order")
	}
	return &order, nil
}

func (r *Repo) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
	return nil
}

// Save persists status, totals and notes. Items are immutable after
// creation and deliberately excluded.
func (r *Repo) Save(ctx context.Context, order *models.Order) error {
	err := r.db.WithContext(ctx).
		Omit("Items").
		Save(order).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save order")
	}
	return nil
}

func (r *Repo) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}
	return &user, nil
}

// FindStuckEditedBefore lists orders waiting on a customer decision
// whose last update predates the cutoff, oldest first.
func (r *Repo) FindStuckEditedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND updated_at < ?", enums.OrderStatusEditedPendingApproval, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find stale edited orders")
	}
	return out, nil
}
