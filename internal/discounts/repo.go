package discounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
)

// Repo reads discounts. Writes go through the admin surface and are
// out of scope here; the pipeline only ever loads.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) (*Repo, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "discount repo requires a db handle")
	}
	return &Repo{db: db}, nil
}

// WithTx returns a copy bound to the given transaction.
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{db: tx}
}

func (r *Repo) FindByID(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	var d models.Discount
	err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find discount")
	}
	return &d, nil
}
