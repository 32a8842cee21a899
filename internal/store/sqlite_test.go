package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(MemoryPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleOrder(id string, created time.Time) *models.LedgerOrder {
	return &models.LedgerOrder{
		ID:              id,
		BranchNo:        "00950",
		AssetClass:      models.DomesticEquity,
		Environment:     models.Paper,
		Symbol:          "005930",
		Side:            models.Buy,
		Kind:            models.Limit,
		Quantity:        10,
		Price:           decimal.NewFromInt(70000),
		Status:          models.StatusSubmitted,
		TransactionCode: "VTTC0802U",
		CreatedAt:       created,
	}
}

// Property: an order saved to the ledger is read back with the same
// identity, instrument, quantity, price and status.
func TestProperty_OrderRoundTrip(t *testing.T) {
	store := newTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	classes := models.AssetClasses()
	exchanges := append(models.Exchanges(), "")
	n := 0

	properties.Property("save then get returns the same order", prop.ForAll(
		func(ci, xi int, qty int64, cents int64, sell bool) bool {
			ctx := context.Background()
			n++
			side := models.Buy
			if sell {
				side = models.Sell
			}
			in := &models.LedgerOrder{
				ID:          fmt.Sprintf("%010d", n),
				AssetClass:  classes[ci],
				Environment: models.Live,
				Exchange:    exchanges[xi],
				Symbol:      "SYM",
				Side:        side,
				Kind:        models.Limit,
				Quantity:    qty,
				Price:       decimal.New(cents, -2),
				Status:      models.StatusSubmitted,
			}
			if err := store.SaveOrder(ctx, in); err != nil {
				t.Logf("SaveOrder: %v", err)
				return false
			}
			out, err := store.GetOrder(ctx, in.ID)
			if err != nil {
				t.Logf("GetOrder: %v", err)
				return false
			}
			return out.AssetClass == in.AssetClass &&
				out.Exchange == in.Exchange &&
				out.Side == in.Side &&
				out.Quantity == in.Quantity &&
				out.Price.Equal(in.Price) &&
				out.Status == in.Status &&
				out.CreatedAt.Equal(in.CreatedAt)
		},
		gen.IntRange(0, len(classes)-1),
		gen.IntRange(0, len(exchanges)-1),
		gen.Int64Range(1, 1000000),
		gen.Int64Range(0, 100000000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestGetOrder_NotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetOrder(context.Background(), "missing"); !errors.Is(err, errors.ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound, got %v", err)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return created.Add(time.Minute) }

	if err := store.SaveOrder(ctx, sampleOrder("0000117057", created)); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}
	if err := store.UpdateOrderStatus(ctx, "0000117057", models.StatusCancelled, "주문취소 완료"); err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}

	o, err := store.GetOrder(ctx, "0000117057")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if o.Status != models.StatusCancelled || o.Message != "주문취소 완료" {
		t.Errorf("status = %s %q", o.Status, o.Message)
	}
	if !o.UpdatedAt.Equal(created.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v", o.UpdatedAt)
	}
	if ref := o.Ref(); ref.BranchNo != "00950" || ref.Kind != models.Limit || ref.Symbol != "005930" {
		t.Errorf("Ref() = %+v", ref)
	}

	if err := store.UpdateOrderStatus(ctx, "nope", models.StatusCancelled, ""); !errors.Is(err, errors.ErrOrderNotFound) {
		t.Errorf("update of a missing order: got %v", err)
	}
}

func TestListOrders_FiltersAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		o := sampleOrder(fmt.Sprintf("A%d", i), base.Add(time.Duration(i)*time.Minute))
		if i%2 == 1 {
			o.AssetClass = models.Bond
			o.Status = models.StatusRejected
		}
		if err := store.SaveOrder(ctx, o); err != nil {
			t.Fatalf("SaveOrder: %v", err)
		}
	}

	all, err := store.ListOrders(ctx, OrderFilter{})
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(all) != 5 || all[0].ID != "A4" || all[4].ID != "A0" {
		t.Errorf("unexpected order of %d results", len(all))
	}

	bonds, err := store.ListOrders(ctx, OrderFilter{AssetClass: models.Bond})
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(bonds) != 2 {
		t.Errorf("bond orders = %d, want 2", len(bonds))
	}

	recent, err := store.ListOrders(ctx, OrderFilter{Since: base.Add(3 * time.Minute), Limit: 1})
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "A4" {
		t.Errorf("recent = %+v", recent)
	}

	none, err := store.ListOrders(ctx, OrderFilter{Symbol: "000660"})
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("empty filter result = %v, %v", none, err)
	}
}

func TestNewSQLiteStore_FileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.SaveOrder(ctx, sampleOrder("X1", time.Time{})); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s.Close()
	if _, err := s.GetOrder(ctx, "X1"); err != nil {
		t.Errorf("order lost across reopen: %v", err)
	}
}

func TestSaveOrder_RequiresID(t *testing.T) {
	store := newTestStore(t)
	if err := store.SaveOrder(context.Background(), &models.LedgerOrder{}); !errors.Is(err, errors.ErrInputValidation) {
		t.Errorf("want validation error, got %v", err)
	}
}
