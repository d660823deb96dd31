package storage_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/rl1809/gold-inventory/internal/adapter/storage"
	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/port"
)

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(
			"migrations/postgres/001_init.up.sql"),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("pc.ConnectionString: %w", err)
	}

	return postgresContainer, connStr, nil
}

type postgresAdapterSuite struct {
	suite.Suite

	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	adapter   *storage.PostgresAdapter
}

func TestPostgresAdapterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres container tests skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	suite.Run(t, new(postgresAdapterSuite))
}

func (suite *postgresAdapterSuite) SetupSuite() {
	ctx := suite.T().Context()

	container, connStr, err := startPostgres(ctx)
	if err != nil {
		suite.T().Skipf("Docker not available: %v", err)
	}
	suite.container = container

	suite.pool, err = pgxpool.New(ctx, connStr)
	suite.Require().NoError(err)

	suite.adapter = storage.NewPostgresAdapter(suite.pool)

	// schema is already applied by the init script; Migrate must be idempotent
	suite.Require().NoError(suite.adapter.Migrate(ctx))
}

func (suite *postgresAdapterSuite) TearDownSuite() {
	if suite.pool != nil {
		suite.pool.Close()
	}
	if suite.container != nil {
		if err := testcontainers.TerminateContainer(suite.container); err != nil {
			suite.T().Logf("terminate postgres container: %v", err)
		}
	}
}

func (suite *postgresAdapterSuite) deleteAll() {
	ctx := context.Background()
	_, err := suite.pool.Exec(ctx, `TRUNCATE sales, gold_items RESTART IDENTITY`)
	suite.NoError(err)
}

func randomItem(qty int) domain.Item {
	weight := decimal.NewFromFloat(gofakeit.Float64Range(1, 50)).Round(3)
	ppg := decimal.NewFromInt(int64(gofakeit.IntRange(4000, 8000)))
	return domain.Item{
		Name:         gofakeit.ProductName(),
		WeightGrams:  weight,
		PurityKarat:  domain.PurityGrades[gofakeit.IntRange(0, len(domain.PurityGrades)-1)],
		PricePerGram: ppg,
		UnitPrice:    domain.UnitPriceOf(weight, ppg),
		Quantity:     qty,
	}
}

var itemCmpOpts = []cmp.Option{
	cmpopts.IgnoreFields(domain.Item{}, "ID", "CreatedAt", "UpdatedAt"),
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
}

func (suite *postgresAdapterSuite) TestSaveAndGetItem() {
	defer suite.deleteAll()

	tests := []struct {
		name    string
		item    domain.Item
		wantErr error
	}{
		{
			name: "insert new item: ok",
			item: randomItem(5),
		},
		{
			name: "insert sold-out item: ok",
			item: randomItem(0),
		},
		{
			name: "update missing item: not found",
			item: func() domain.Item {
				it := randomItem(1)
				it.ID = 987654
				return it
			}(),
			wantErr: port.ErrNotFound,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			saved, err := suite.adapter.SaveItem(ctx, tt.item)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, saved.ID)
			assert.False(t, saved.CreatedAt.IsZero())

			got, err := suite.adapter.GetItem(ctx, saved.ID)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.item, got, itemCmpOpts...); diff != "" {
				t.Errorf("item mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func (suite *postgresAdapterSuite) TestListAndDeleteItems() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	a := randomItem(2)
	a.Name = "Anklet"
	b := randomItem(0)
	b.Name = "Bangle"

	savedB, err := suite.adapter.SaveItem(ctx, b)
	require.NoError(t, err)
	savedA, err := suite.adapter.SaveItem(ctx, a)
	require.NoError(t, err)

	all, err := suite.adapter.ListItems(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, savedA.ID, all[0].ID)
	assert.Equal(t, savedB.ID, all[1].ID)

	inStock, err := suite.adapter.ListItems(ctx, true)
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	assert.Equal(t, savedA.ID, inStock[0].ID)

	deleted, err := suite.adapter.DeleteItem(ctx, savedB.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = suite.adapter.DeleteItem(ctx, savedB.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = suite.adapter.ReadQuantity(ctx, savedB.ID)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func (suite *postgresAdapterSuite) TestSettlement() {
	defer suite.deleteAll()

	saleDay := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		stock     int
		requested int
		wantRows  int64
		wantStock int
		wantSales int
	}{
		{name: "enough stock: committed", stock: 5, requested: 3, wantRows: 1, wantStock: 2, wantSales: 1},
		{name: "exact stock: committed", stock: 2, requested: 2, wantRows: 1, wantStock: 0, wantSales: 1},
		{name: "short stock: rolled back", stock: 1, requested: 2, wantRows: 0, wantStock: 1, wantSales: 0},
	}

	errShort := errors.New("short")

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()
			ctx := t.Context()

			item, err := suite.adapter.SaveItem(ctx, randomItem(tt.stock))
			require.NoError(t, err)
			customerID := int64(gofakeit.IntRange(1, 1_000_000))

			var rows int64
			err = suite.adapter.WithinTx(ctx, func(tx port.SettlementTx) error {
				if err := tx.AppendSale(ctx, domain.SaleRecord{
					CheckoutID: uuid.New(),
					CustomerID: customerID,
					ItemID:     item.ID,
					Quantity:   tt.requested,
					Amount:     item.UnitPrice.Mul(decimal.NewFromInt(int64(tt.requested))),
					SaleDate:   saleDay,
				}); err != nil {
					return err
				}
				rows, err = tx.ConditionalDecrement(ctx, item.ID, tt.requested)
				if err != nil {
					return err
				}
				if rows == 0 {
					return errShort
				}
				return nil
			})
			assert.Equal(t, tt.wantRows, rows)
			if tt.wantRows == 0 {
				require.ErrorIs(t, err, errShort)
			} else {
				require.NoError(t, err)
			}

			qty, err := suite.adapter.ReadQuantity(ctx, item.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStock, qty)

			sales, err := suite.adapter.ListSalesByCustomer(ctx, customerID)
			require.NoError(t, err)
			require.Len(t, sales, tt.wantSales)
			if tt.wantSales > 0 {
				assert.Equal(t, item.Name, sales[0].ItemName)
				assert.True(t, sales[0].SaleDate.Equal(saleDay))
			}
		})
	}
}

func (suite *postgresAdapterSuite) TestListSalesByDate() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	item, err := suite.adapter.SaveItem(ctx, randomItem(10))
	require.NoError(t, err)

	days := []time.Time{
		time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	for _, day := range days {
		err := suite.adapter.WithinTx(ctx, func(tx port.SettlementTx) error {
			if _, err := tx.ConditionalDecrement(ctx, item.ID, 1); err != nil {
				return err
			}
			return tx.AppendSale(ctx, domain.SaleRecord{
				CheckoutID: uuid.New(),
				CustomerID: 77,
				ItemID:     item.ID,
				Quantity:   1,
				Amount:     item.UnitPrice,
				SaleDate:   day,
			})
		})
		require.NoError(t, err)
	}

	sales, err := suite.adapter.ListSalesByDate(ctx, time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Less(t, sales[0].ID, sales[1].ID)

	history, err := suite.adapter.ListSalesByCustomer(ctx, 77)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].SaleDate.Equal(days[2]))
}
