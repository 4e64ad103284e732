package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dealerbridge/dealerdesk-backend/internal/discounts"
	"github.com/dealerbridge/dealerdesk-backend/internal/notifications"
	"github.com/dealerbridge/dealerdesk-backend/internal/pricing"
	"github.com/dealerbridge/dealerdesk-backend/internal/stock"
	"github.com/dealerbridge/dealerdesk-backend/pkg/db/models"
	dbtypes "github.com/dealerbridge/dealerdesk-backend/pkg/db/types"
	"github.com/dealerbridge/dealerdesk-backend/pkg/enums"
	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
	"github.com/dealerbridge/dealerdesk-backend/pkg/logger"
)

var frozenNow = time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)

// createOrderSchema seeds the sqlite test schema by hand; the model tags
// carry postgres-only defaults that sqlite cannot migrate.
func createOrderSchema(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	statements := []string{`
CREATE TABLE IF NOT EXISTS dealers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  dealer_id TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  min_order_qty INTEGER NOT NULL DEFAULT 1,
  max_order_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS price_list_entries (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  currency TEXT NOT NULL,
  unit_amount NUMERIC NOT NULL,
  valid_from DATETIME NOT NULL,
  valid_until DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS discounts (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  value NUMERIC NOT NULL,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  product_ids TEXT NOT NULL DEFAULT '{}',
  dealer_ids TEXT NOT NULL DEFAULT '{}',
  min_order_amount NUMERIC,
  max_discount_amount NUMERIC,
  usage_limit INTEGER,
  usage_limit_per_customer INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS discount_usages (
  id TEXT PRIMARY KEY,
  discount_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  dealer_id TEXT NOT NULL,
  order_id TEXT NOT NULL UNIQUE,
  discount_amount NUMERIC NOT NULL,
  order_total NUMERIC NOT NULL,
  order_status TEXT NOT NULL,
  used_at DATETIME NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  dealer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  currency TEXT NOT NULL DEFAULT 'USD',
  subtotal_amount NUMERIC NOT NULL,
  discount_id TEXT,
  discount_amount NUMERIC NOT NULL DEFAULT 0,
  total_amount NUMERIC NOT NULL,
  order_date DATETIME NOT NULL,
  customer_note TEXT,
  admin_note TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  price_list_entry_id TEXT NOT NULL,
  currency TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  total_price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range statements {
		if err := gdb.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
}

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type recordingNotifier struct {
	events []notifications.OrderEvent
}

func (r *recordingNotifier) Notify(_ context.Context, ev notifications.OrderEvent) {
	r.events = append(r.events, ev)
}

type suite struct {
	db       *gorm.DB
	svc      Service
	notifier *recordingNotifier
	tracker  *discounts.Tracker

	dealerID uuid.UUID
	userID   uuid.UUID
}

func newSuite(t *testing.T) *suite {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	createOrderSchema(t, gdb)

	dealerID := uuid.New()
	userID := uuid.New()
	dealer := models.Dealer{ID: dealerID, Name: "Test Dealer", Code: "dlr-" + uuid.NewString()[:8], IsActive: true}
	if err := gdb.Create(&dealer).Error; err != nil {
		t.Fatalf("seed dealer: %v", err)
	}
	user := models.User{
		ID: userID, Email: userID.String() + "@dealer.test",
		FirstName: "Test", LastName: "Buyer", DealerID: dealerID, IsActive: true,
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	repo, err := NewRepo(gdb)
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	discountRepo, err := discounts.NewRepo(gdb)
	if err != nil {
		t.Fatalf("discount repo: %v", err)
	}
	tracker, err := discounts.NewTracker(gdb)
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	validator, err := discounts.NewValidator(discountRepo, tracker)
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	log := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
	notifier := &recordingNotifier{}

	svc, err := NewService(Params{
		TxRunner:  gormTxRunner{db: gdb},
		Repo:      repo,
		Stock:     stock.NewLedger(false),
		Pricing:   pricing.NewResolver(gdb),
		Discounts: validator.WithClock(func() time.Time { return frozenNow }),
		Tracker:   tracker,
		UsageLock: discounts.NewLocalUsageLock(),
		Notifier:  notifier,
		Log:       log,
		Now:       func() time.Time { return frozenNow },
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return &suite{db: gdb, svc: svc, notifier: notifier, tracker: tracker, dealerID: dealerID, userID: userID}
}

// seedProduct creates a product with one currently valid USD price.
func (s *suite) seedProduct(t *testing.T, stockQty int, unitPrice string) (uuid.UUID, uuid.UUID) {
	t.Helper()
	product := models.Product{
		ID: uuid.New(), SKU: "sku-" + uuid.NewString()[:8], Name: "Part",
		StockQty: stockQty, MinOrderQty: 1, IsActive: true,
	}
	if err := s.db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	entry := models.PriceListEntry{
		ID: uuid.New(), ProductID: product.ID, Currency: enums.CurrencyUSD,
		UnitAmount: mustDec(t, unitPrice), ValidFrom: frozenNow.Add(-time.Hour),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		t.Fatalf("seed price: %v", err)
	}
	return product.ID, entry.ID
}

// seedWinter10 matches the canonical scenario: 10 percent off orders of
// 100 or more, capped at 50, usable twice overall.
func (s *suite) seedWinter10(t *testing.T) uuid.UUID {
	t.Helper()
	limit := 2
	d := models.Discount{
		ID: uuid.New(), Code: "WINTER10-" + uuid.NewString()[:8],
		Type: enums.DiscountTypePercentage, Value: mustDec(t, "10"),
		StartDate: frozenNow.Add(-24 * time.Hour), EndDate: frozenNow.Add(24 * time.Hour),
		ProductIDs: dbtypes.UUIDArray{}, DealerIDs: dbtypes.UUIDArray{},
		MinOrderAmount: decRef(t, "100"), MaxDiscountAmount: decRef(t, "50"),
		UsageLimit: &limit, IsActive: true,
	}
	if err := s.db.Create(&d).Error; err != nil {
		t.Fatalf("seed discount: %v", err)
	}
	return d.ID
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func decRef(t *testing.T, s string) *decimal.Decimal {
	d := mustDec(t, s)
	return &d
}

func (s *suite) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := s.db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.StockQty
}

func TestCreateAppliesCappedDiscount(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 20, "150")
	discountID := s.seedWinter10(t)
	ctx := context.Background()

	// 4 x 150 = 600 subtotal, 10% = 60, capped at 50
	order, err := s.svc.Create(ctx, CreateInput{
		UserID:     s.userID,
		DealerID:   s.dealerID,
		DiscountID: &discountID,
		Items:      []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !order.SubtotalAmount.Equal(mustDec(t, "600")) {
		t.Fatalf("expected subtotal 600, got %s", order.SubtotalAmount)
	}
	if !order.DiscountAmount.Equal(mustDec(t, "50")) {
		t.Fatalf("expected discount 50, got %s", order.DiscountAmount)
	}
	if !order.TotalAmount.Equal(mustDec(t, "550")) {
		t.Fatalf("expected total 550, got %s", order.TotalAmount)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if got := s.stockOf(t, productID); got != 16 {
		t.Fatalf("expected stock 16 after reservation, got %d", got)
	}
	n, err := s.tracker.CountGlobal(ctx, discountID)
	if err != nil {
		t.Fatalf("count usage: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 usage row, got %d", n)
	}
	if len(s.notifier.events) != 1 || s.notifier.events[0].Event != enums.NotificationEventOrderCreated {
		t.Fatalf("expected created notification, got %+v", s.notifier.events)
	}
}

func TestCreateHardFailsOnRejectedDiscount(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 20, "10")
	discountID := s.seedWinter10(t)
	ctx := context.Background()

	// subtotal 20 is below the 100 minimum
	_, err := s.svc.Create(ctx, CreateInput{
		UserID:     s.userID,
		DealerID:   s.dealerID,
		DiscountID: &discountID,
		Items:      []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 2}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := s.stockOf(t, productID); got != 20 {
		t.Fatalf("expected stock untouched, got %d", got)
	}
	var orderCount int64
	if err := s.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no persisted orders, got %d", orderCount)
	}
}

func TestCreateRollsBackOnInsufficientStock(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	okProduct, okEntry := s.seedProduct(t, 50, "10")
	scarceProduct, scarceEntry := s.seedProduct(t, 1, "10")
	ctx := context.Background()

	_, err := s.svc.Create(ctx, CreateInput{
		UserID:   s.userID,
		DealerID: s.dealerID,
		Items: []ItemInput{
			{ProductID: okProduct, PriceListEntryID: okEntry, Quantity: 5},
			{ProductID: scarceProduct, PriceListEntryID: scarceEntry, Quantity: 3},
		},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := s.stockOf(t, okProduct); got != 50 {
		t.Fatalf("expected first product stock restored to 50, got %d", got)
	}
	if got := s.stockOf(t, scarceProduct); got != 1 {
		t.Fatalf("expected scarce product stock 1, got %d", got)
	}
}

func TestCreateRejectsForeignDealer(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 5, "10")

	_, err := s.svc.Create(context.Background(), CreateInput{
		UserID:   s.userID,
		DealerID: uuid.New(),
		Items:    []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 1}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateEnforcesMinOrderQty(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 50, "10")
	if err := s.db.Model(&models.Product{}).Where("id = ?", productID).
		Update("min_order_qty", 5).Error; err != nil {
		t.Fatalf("set moq: %v", err)
	}

	_, err := s.svc.Create(context.Background(), CreateInput{
		UserID:   s.userID,
		DealerID: s.dealerID,
		Items:    []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 2}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuoteSoftFailsAfterUsageLimitExhausted(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 100, "150")
	discountID := s.seedWinter10(t)
	ctx := context.Background()

	// burn both uses with other dealers
	for i := 0; i < 2; i++ {
		err := s.tracker.Record(ctx, discounts.RecordParams{
			DiscountID: discountID, UserID: uuid.New(), DealerID: uuid.New(),
			OrderID: uuid.New(), DiscountAmount: mustDec(t, "50"),
			OrderTotal: mustDec(t, "550"), OrderStatus: enums.OrderStatusPending,
		})
		if err != nil {
			t.Fatalf("record usage %d: %v", i, err)
		}
	}

	quote, err := s.svc.Quote(ctx, CreateInput{
		UserID:     s.userID,
		DealerID:   s.dealerID,
		DiscountID: &discountID,
		Items:      []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("quote must soft-fail, got error: %v", err)
	}
	if !quote.DiscountAmount.IsZero() {
		t.Fatalf("expected zero discount, got %s", quote.DiscountAmount)
	}
	if quote.DiscountAdvisory == "" {
		t.Fatal("expected an advisory message")
	}
	if !quote.Total.Equal(mustDec(t, "600")) {
		t.Fatalf("expected undiscounted total 600, got %s", quote.Total)
	}

	// and the hard path refuses outright
	_, err = s.svc.Create(ctx, CreateInput{
		UserID:     s.userID,
		DealerID:   s.dealerID,
		DiscountID: &discountID,
		Items:      []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 4}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := typed.Details().(map[string]any)
	if details["reason"] != string(discounts.RejectionUsageLimit) {
		t.Fatalf("expected usage_limit reason, got %v", typed.Details())
	}
}

func TestQuoteReportsStockShortfall(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 2, "10")

	quote, err := s.svc.Quote(context.Background(), CreateInput{
		UserID:   s.userID,
		DealerID: s.dealerID,
		Items:    []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if len(quote.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(quote.Lines))
	}
	line := quote.Lines[0]
	if line.StockOK || line.StockAvailable != 2 {
		t.Fatalf("expected shortfall with 2 available, got %+v", line)
	}
	if got := s.stockOf(t, productID); got != 2 {
		t.Fatalf("quote must not reserve, got stock %d", got)
	}
}

func TestCancelRestoresStockAndReversesUsage(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 20, "150")
	discountID := s.seedWinter10(t)
	ctx := context.Background()

	order, err := s.svc.Create(ctx, CreateInput{
		UserID:     s.userID,
		DealerID:   s.dealerID,
		DiscountID: &discountID,
		Items:      []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	usage, err := s.tracker.FindByOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("expected usage row before cancel: %v", err)
	}
	if usage.DiscountID != discountID {
		t.Fatalf("usage row points at discount %s, want %s", usage.DiscountID, discountID)
	}

	cancelled, err := s.svc.CancelByUser(ctx, order.ID, Actor{UserID: s.userID, DealerID: s.dealerID}, "changed my mind")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if got := s.stockOf(t, productID); got != 20 {
		t.Fatalf("expected stock restored to 20, got %d", got)
	}
	if _, err := s.tracker.FindByOrder(ctx, order.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected usage row reversed, got %v", err)
	}
	n, err := s.tracker.CountGlobal(ctx, discountID)
	if err != nil {
		t.Fatalf("count usage: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected usage reversed, got %d rows", n)
	}
}

func TestCancelByOtherUserForbidden(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 20, "10")
	ctx := context.Background()

	order, err := s.svc.Create(ctx, CreateInput{
		UserID:   s.userID,
		DealerID: s.dealerID,
		Items:    []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = s.svc.CancelByUser(ctx, order.ID, Actor{UserID: uuid.New()}, "not mine")
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestApproveRequiresPending(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 20, "10")
	ctx := context.Background()
	admin := Actor{UserID: uuid.New(), Admin: true}

	order, err := s.svc.Create(ctx, CreateInput{
		UserID:   s.userID,
		DealerID: s.dealerID,
		Items:    []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	approved, err := s.svc.Approve(ctx, order.ID, admin, "looks good")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != enums.OrderStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.AdminNote == nil || !strings.Contains(*approved.AdminNote, "looks good") {
		t.Fatalf("expected note appended, got %v", approved.AdminNote)
	}

	_, err = s.svc.Approve(ctx, order.ID, admin, "again")
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

// An edited order awaiting the customer is not approvable through the
// admin path; the customer acceptance travels through UpdateStatus.
func TestApproveRejectsEditedOrder(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 20, "10")
	ctx := context.Background()

	order, err := s.svc.Create(ctx, CreateInput{
		UserID:   s.userID,
		DealerID: s.dealerID,
		Items:    []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = s.db.Model(&models.Order{}).Where("id = ?", order.ID).
		UpdateColumn("status", enums.OrderStatusEditedPendingApproval).Error
	if err != nil {
		t.Fatalf("edit order: %v", err)
	}

	_, err = s.svc.Approve(ctx, order.ID, Actor{UserID: uuid.New(), Admin: true}, "approving edit")
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict approving edited order, got %v", err)
	}

	updated, err := s.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusApproved, Actor{UserID: s.userID, DealerID: s.dealerID}, "accepting changes")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != enums.OrderStatusApproved {
		t.Fatalf("expected approved via status update, got %s", updated.Status)
	}
}

func TestRejectReleasesStock(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 10, "10")
	ctx := context.Background()

	order, err := s.svc.Create(ctx, CreateInput{
		UserID:   s.userID,
		DealerID: s.dealerID,
		Items:    []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := s.stockOf(t, productID); got != 6 {
		t.Fatalf("expected stock 6 after create, got %d", got)
	}

	rejected, err := s.svc.Reject(ctx, order.ID, Actor{UserID: uuid.New(), Admin: true}, "out of season")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != enums.OrderStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if got := s.stockOf(t, productID); got != 10 {
		t.Fatalf("expected stock restored to 10, got %d", got)
	}
}

func TestUpdateStatusHonorsTransitionTable(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 10, "10")
	ctx := context.Background()
	admin := Actor{UserID: uuid.New(), Admin: true}

	order, err := s.svc.Create(ctx, CreateInput{
		UserID:   s.userID,
		DealerID: s.dealerID,
		Items:    []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, to := range []enums.OrderStatus{
		enums.OrderStatusApproved,
		enums.OrderStatusShipped,
		enums.OrderStatusCompleted,
	} {
		if _, err := s.svc.UpdateStatus(ctx, order.ID, to, admin, ""); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}

	// completed is terminal
	_, err = s.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, admin, "")
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	// no stock movement through any of those transitions
	if got := s.stockOf(t, productID); got != 9 {
		t.Fatalf("expected stock 9, got %d", got)
	}
}

func TestAutoCancelStampsSystemNote(t *testing.T) {
	t.Parallel()

	s := newSuite(t)
	productID, entryID := s.seedProduct(t, 10, "10")
	ctx := context.Background()

	order, err := s.svc.Create(ctx, CreateInput{
		UserID:   s.userID,
		DealerID: s.dealerID,
		Items:    []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stale := frozenNow.Add(-50 * time.Hour)
	err = s.db.Model(&models.Order{}).Where("id = ?", order.ID).
		UpdateColumns(map[string]any{
			"status":     enums.OrderStatusEditedPendingApproval,
			"updated_at": stale,
		}).Error
	if err != nil {
		t.Fatalf("backdate order: %v", err)
	}

	cancelled, err := s.svc.AutoCancel(ctx, order.ID)
	if err != nil {
		t.Fatalf("auto cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.AdminNote == nil || !strings.Contains(*cancelled.AdminNote, "auto-cancelled after waiting 50h") {
		t.Fatalf("expected elapsed-wait note, got %v", cancelled.AdminNote)
	}
	if got := s.stockOf(t, productID); got != 10 {
		t.Fatalf("expected stock restored to 10, got %d", got)
	}

	// a pending order does not qualify
	fresh, err := s.svc.Create(ctx, CreateInput{
		UserID:   s.userID,
		DealerID: s.dealerID,
		Items:    []ItemInput{{ProductID: productID, PriceListEntryID: entryID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create second order: %v", err)
	}
	_, err = s.svc.AutoCancel(ctx, fresh.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
