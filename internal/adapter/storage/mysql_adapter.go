package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/port"
)

const mysqlItemColumns = `item_id, name, weight_grams, purity_karat, price_per_gram, total_price, quantity, created_at, updated_at`

const mysqlSaleSelect = `
	SELECT s.sale_id, s.checkout_id, s.customer_id, s.item_id, COALESCE(g.name, ''),
	       s.quantity, s.total_amount, s.sale_date
	FROM sales s
	LEFT JOIN gold_items g ON s.item_id = g.item_id`

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) ReadQuantity(ctx context.Context, itemID int64) (int, error) {
	var qty int
	err := m.db.QueryRowContext(ctx, `SELECT quantity FROM gold_items WHERE item_id = ?`, itemID).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, port.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query quantity: %w", err)
	}
	return qty, nil
}

func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(tx port.SettlementTx) error) error {
	return withSQLTx(ctx, m.db, func(tx *sql.Tx) error {
		return fn(&mysqlSettlement{tx: tx})
	})
}

type mysqlSettlement struct {
	tx *sql.Tx
}

func (s *mysqlSettlement) ConditionalDecrement(ctx context.Context, itemID int64, amount int) (int64, error) {
	result, err := s.tx.ExecContext(ctx, `
		UPDATE gold_items
		SET quantity = quantity - ?, updated_at = NOW()
		WHERE item_id = ? AND quantity >= ?`,
		amount, itemID, amount,
	)
	if err != nil {
		return 0, fmt.Errorf("update quantity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return rows, nil
}

func (s *mysqlSettlement) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO sales (checkout_id, customer_id, item_id, sale_date, total_amount, quantity)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sale.CheckoutID.String(), sale.CustomerID, sale.ItemID,
		sale.SaleDate.Format(time.DateOnly), sale.Amount, sale.Quantity,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetItem(ctx context.Context, itemID int64) (domain.Item, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+mysqlItemColumns+` FROM gold_items WHERE item_id = ?`, itemID)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, port.ErrNotFound
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

func (m *MySQLAdapter) ListItems(ctx context.Context, inStockOnly bool) ([]domain.Item, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+mysqlItemColumns+`
		FROM gold_items
		WHERE (? = FALSE OR quantity > 0)
		ORDER BY name, item_id`, inStockOnly)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) SaveItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	if item.ID == 0 {
		result, err := m.db.ExecContext(ctx, `
			INSERT INTO gold_items (name, weight_grams, purity_karat, price_per_gram, total_price, quantity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			item.Name, item.WeightGrams, item.PurityKarat, item.PricePerGram, item.UnitPrice, item.Quantity,
		)
		if err != nil {
			return domain.Item{}, fmt.Errorf("insert item: %w", err)
		}
		if item.ID, err = result.LastInsertId(); err != nil {
			return domain.Item{}, fmt.Errorf("last insert id: %w", err)
		}
		return m.GetItem(ctx, item.ID)
	}

	// RowsAffected is 0 for unchanged rows in MySQL, so existence is checked by re-reading
	_, err := m.db.ExecContext(ctx, `
		UPDATE gold_items
		SET name = ?, weight_grams = ?, purity_karat = ?, price_per_gram = ?, total_price = ?, quantity = ?
		WHERE item_id = ?`,
		item.Name, item.WeightGrams, item.PurityKarat, item.PricePerGram, item.UnitPrice, item.Quantity, item.ID,
	)
	if err != nil {
		return domain.Item{}, fmt.Errorf("update item: %w", err)
	}
	return m.GetItem(ctx, item.ID)
}

func (m *MySQLAdapter) DeleteItem(ctx context.Context, itemID int64) (bool, error) {
	result, err := m.db.ExecContext(ctx, `DELETE FROM gold_items WHERE item_id = ?`, itemID)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

func (m *MySQLAdapter) ListSalesByCustomer(ctx context.Context, customerID int64) ([]domain.SaleRecord, error) {
	return m.querySales(ctx, mysqlSaleSelect+`
		WHERE s.customer_id = ?
		ORDER BY s.sale_date DESC, s.sale_id DESC`, customerID)
}

func (m *MySQLAdapter) ListSalesByDate(ctx context.Context, day time.Time) ([]domain.SaleRecord, error) {
	return m.querySales(ctx, mysqlSaleSelect+`
		WHERE s.sale_date = ?
		ORDER BY s.sale_id`, domain.SaleDay(day).Format(time.DateOnly))
}

func (m *MySQLAdapter) querySales(ctx context.Context, query string, args ...any) ([]domain.SaleRecord, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.SaleRecord
	for rows.Next() {
		var s domain.SaleRecord
		if err := rows.Scan(&s.ID, &s.CheckoutID, &s.CustomerID, &s.ItemID, &s.ItemName,
			&s.Quantity, &s.Amount, &s.SaleDate); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		s.SaleDate = domain.SaleDay(s.SaleDate)
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// Migrate applies the embedded schema.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	stmts, err := migrationStatements("mysql")
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQLAdapter) Close() error {
	return m.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var item domain.Item
	err := row.Scan(&item.ID, &item.Name, &item.WeightGrams, &item.PurityKarat,
		&item.PricePerGram, &item.UnitPrice, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}
