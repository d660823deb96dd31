package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/port"
)

const pgItemColumns = `item_id, name, weight_grams, purity_karat, price_per_gram, total_price, quantity, created_at, updated_at`

const pgSaleSelect = `
	SELECT s.sale_id, s.checkout_id, s.customer_id, s.item_id, COALESCE(g.name, ''),
	       s.quantity, s.total_amount, s.sale_date
	FROM sales s
	LEFT JOIN gold_items g ON s.item_id = g.item_id`

type PostgresAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

func (p *PostgresAdapter) ReadQuantity(ctx context.Context, itemID int64) (int, error) {
	var qty int
	err := p.pool.QueryRow(ctx, `SELECT quantity FROM gold_items WHERE item_id = $1`, itemID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, port.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("pool.QueryRow: %w", err)
	}
	return qty, nil
}

func (p *PostgresAdapter) WithinTx(ctx context.Context, fn func(tx port.SettlementTx) error) error {
	return withPgxTx(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(&pgSettlement{tx: tx})
	})
}

type pgSettlement struct {
	tx pgx.Tx
}

func (s *pgSettlement) ConditionalDecrement(ctx context.Context, itemID int64, amount int) (int64, error) {
	tag, err := s.tx.Exec(ctx, `
		UPDATE gold_items
		SET quantity = quantity - $1, updated_at = now()
		WHERE item_id = $2 AND quantity >= $1`,
		amount, itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("tx.Exec update quantity: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *pgSettlement) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO sales (checkout_id, customer_id, item_id, sale_date, total_amount, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sale.CheckoutID, sale.CustomerID, sale.ItemID, domain.SaleDay(sale.SaleDate), sale.Amount, sale.Quantity,
	)
	if err != nil {
		return fmt.Errorf("tx.Exec insert sale: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) GetItem(ctx context.Context, itemID int64) (domain.Item, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+pgItemColumns+` FROM gold_items WHERE item_id = $1`, itemID)

	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, port.ErrNotFound
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("scanItem: %w", err)
	}
	return item, nil
}

func (p *PostgresAdapter) ListItems(ctx context.Context, inStockOnly bool) ([]domain.Item, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+pgItemColumns+`
		FROM gold_items
		WHERE (NOT $1 OR quantity > 0)
		ORDER BY name, item_id`, inStockOnly)
	if err != nil {
		return nil, fmt.Errorf("pool.Query: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanItem: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (p *PostgresAdapter) SaveItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	var row pgx.Row
	if item.ID == 0 {
		row = p.pool.QueryRow(ctx, `
			INSERT INTO gold_items (name, weight_grams, purity_karat, price_per_gram, total_price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+pgItemColumns,
			item.Name, item.WeightGrams, item.PurityKarat, item.PricePerGram, item.UnitPrice, item.Quantity,
		)
	} else {
		row = p.pool.QueryRow(ctx, `
			UPDATE gold_items
			SET name = $1, weight_grams = $2, purity_karat = $3, price_per_gram = $4,
			    total_price = $5, quantity = $6, updated_at = now()
			WHERE item_id = $7
			RETURNING `+pgItemColumns,
			item.Name, item.WeightGrams, item.PurityKarat, item.PricePerGram, item.UnitPrice, item.Quantity, item.ID,
		)
	}

	saved, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Item{}, port.ErrNotFound
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("scanItem: %w", err)
	}
	return saved, nil
}

func (p *PostgresAdapter) DeleteItem(ctx context.Context, itemID int64) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM gold_items WHERE item_id = $1`, itemID)
	if err != nil {
		return false, fmt.Errorf("pool.Exec: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PostgresAdapter) ListSalesByCustomer(ctx context.Context, customerID int64) ([]domain.SaleRecord, error) {
	return p.querySales(ctx, pgSaleSelect+`
		WHERE s.customer_id = $1
		ORDER BY s.sale_date DESC, s.sale_id DESC`, customerID)
}

func (p *PostgresAdapter) ListSalesByDate(ctx context.Context, day time.Time) ([]domain.SaleRecord, error) {
	return p.querySales(ctx, pgSaleSelect+`
		WHERE s.sale_date = $1
		ORDER BY s.sale_id`, domain.SaleDay(day))
}

func (p *PostgresAdapter) querySales(ctx context.Context, query string, args ...any) ([]domain.SaleRecord, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pool.Query: %w", err)
	}
	defer rows.Close()

	var sales []domain.SaleRecord
	for rows.Next() {
		var s domain.SaleRecord
		if err := rows.Scan(&s.ID, &s.CheckoutID, &s.CustomerID, &s.ItemID, &s.ItemName,
			&s.Quantity, &s.Amount, &s.SaleDate); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		s.SaleDate = domain.SaleDay(s.SaleDate)
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// Migrate applies the embedded schema.
func (p *PostgresAdapter) Migrate(ctx context.Context) error {
	stmts, err := migrationStatements("postgres")
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pool.Exec migration: %w", err)
		}
	}
	return nil
}

func (p *PostgresAdapter) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresAdapter) Close() error {
	p.pool.Close()
	return nil
}
