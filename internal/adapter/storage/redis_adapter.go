package storage

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/port"
)

const (
	itemKeyPrefix       = "item:"
	stockKeyPrefix      = "stock:"
	itemIDSeqKey        = "item:next_id"
	itemSetKey          = "items"
	saleIDSeqKey        = "sale:next_id"
	customerSalesPrefix = "sales:customer:"
	dailySalesPrefix    = "sales:date:"
)

// settleScript applies a whole settlement atomically.
// KEYS: n stock keys, the sale id sequence, then a customer and a date list key per sale.
// ARGV: n, n decrement amounts, then one JSON document per sale.
// Returns the number of sales written, or -i when the i-th stock key is short.
var settleScript = redis.NewScript(`
local n = tonumber(ARGV[1])

for i = 1, n do
	local current = redis.call('GET', KEYS[i])
	if not current or tonumber(current) < tonumber(ARGV[1 + i]) then
		return -i
	end
end

for i = 1, n do
	redis.call('DECRBY', KEYS[i], ARGV[1 + i])
end

local seq = KEYS[n + 1]
local written = 0
for j = n + 2, #ARGV do
	local id = redis.call('INCR', seq)
	local doc = string.format('{"id":%d,', id) .. string.sub(ARGV[j], 2)
	local k = n + 2 + 2 * (j - n - 2)
	redis.call('RPUSH', KEYS[k], doc)
	redis.call('RPUSH', KEYS[k + 1], doc)
	written = written + 1
end

return written
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func itemKey(itemID int64) string {
	return itemKeyPrefix + strconv.FormatInt(itemID, 10)
}

func stockKey(itemID int64) string {
	return stockKeyPrefix + strconv.FormatInt(itemID, 10)
}

func customerSalesKey(customerID int64) string {
	return customerSalesPrefix + strconv.FormatInt(customerID, 10)
}

func dailySalesKey(day time.Time) string {
	return dailySalesPrefix + domain.SaleDay(day).Format(time.DateOnly)
}

func (r *RedisAdapter) ReadQuantity(ctx context.Context, itemID int64) (int, error) {
	qty, err := r.client.Get(ctx, stockKey(itemID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, port.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// SetStock overwrites an item's stock counter.
func (r *RedisAdapter) SetStock(ctx context.Context, itemID int64, quantity int) error {
	return r.client.Set(ctx, stockKey(itemID), quantity, 0).Err()
}

// WithinTx buffers the settlement and applies it with a single script call.
// A decrement that became unsatisfiable since it was buffered surfaces as
// *port.StockConflictError.
func (r *RedisAdapter) WithinTx(ctx context.Context, fn func(tx port.SettlementTx) error) error {
	tx := &redisSettlement{client: r.client, pending: make(map[int64]int)}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.order) == 0 && len(tx.sales) == 0 {
		return nil
	}

	keys := make([]string, 0, len(tx.order)+1+2*len(tx.sales))
	args := make([]any, 0, 1+len(tx.order)+len(tx.sales))
	args = append(args, len(tx.order))
	for _, id := range tx.order {
		keys = append(keys, stockKey(id))
		args = append(args, tx.pending[id])
	}
	keys = append(keys, saleIDSeqKey)
	for _, sale := range tx.sales {
		doc, err := json.Marshal(toRedisSale(sale))
		if err != nil {
			return fmt.Errorf("marshal sale: %w", err)
		}
		keys = append(keys, customerSalesKey(sale.CustomerID), dailySalesKey(sale.SaleDate))
		args = append(args, string(doc))
	}

	result, err := settleScript.Run(ctx, r.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("settle script: %w", err)
	}
	if result < 0 {
		return &port.StockConflictError{ItemID: tx.order[-result-1]}
	}
	return nil
}

type redisSettlement struct {
	client  *redis.Client
	pending map[int64]int
	order   []int64
	sales   []domain.SaleRecord
}

func (s *redisSettlement) ConditionalDecrement(ctx context.Context, itemID int64, amount int) (int64, error) {
	current, err := s.client.Get(ctx, stockKey(itemID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if current-s.pending[itemID] < amount {
		return 0, nil
	}

	if _, ok := s.pending[itemID]; !ok {
		s.order = append(s.order, itemID)
	}
	s.pending[itemID] += amount
	return 1, nil
}

func (s *redisSettlement) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	s.sales = append(s.sales, sale)
	return nil
}

type redisSale struct {
	ID         int64  `json:"id,omitempty"`
	CheckoutID string `json:"checkout_id"`
	CustomerID int64  `json:"customer_id"`
	ItemID     int64  `json:"item_id"`
	Quantity   int    `json:"quantity"`
	Amount     string `json:"amount"`
	SaleDate   string `json:"sale_date"`
}

func toRedisSale(s domain.SaleRecord) redisSale {
	return redisSale{
		CheckoutID: s.CheckoutID.String(),
		CustomerID: s.CustomerID,
		ItemID:     s.ItemID,
		Quantity:   s.Quantity,
		Amount:     s.Amount.String(),
		SaleDate:   domain.SaleDay(s.SaleDate).Format(time.DateOnly),
	}
}

func (rs redisSale) toDomain() (domain.SaleRecord, error) {
	checkoutID, err := uuid.Parse(rs.CheckoutID)
	if err != nil {
		return domain.SaleRecord{}, fmt.Errorf("checkout id: %w", err)
	}
	amount, err := decimal.NewFromString(rs.Amount)
	if err != nil {
		return domain.SaleRecord{}, fmt.Errorf("amount: %w", err)
	}
	day, err := time.Parse(time.DateOnly, rs.SaleDate)
	if err != nil {
		return domain.SaleRecord{}, fmt.Errorf("sale date: %w", err)
	}
	return domain.SaleRecord{
		ID:         rs.ID,
		CheckoutID: checkoutID,
		CustomerID: rs.CustomerID,
		ItemID:     rs.ItemID,
		Quantity:   rs.Quantity,
		Amount:     amount,
		SaleDate:   day,
	}, nil
}

func (r *RedisAdapter) GetItem(ctx context.Context, itemID int64) (domain.Item, error) {
	items, err := r.loadItems(ctx, []int64{itemID})
	if err != nil {
		return domain.Item{}, err
	}
	if len(items) == 0 {
		return domain.Item{}, port.ErrNotFound
	}
	return items[0], nil
}

func (r *RedisAdapter) ListItems(ctx context.Context, inStockOnly bool) ([]domain.Item, error) {
	members, err := r.client.SMembers(ctx, itemSetKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("item set member %q: %w", m, err)
		}
		ids = append(ids, id)
	}

	all, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := all[:0]
	for _, item := range all {
		if !inStockOnly || item.InStock() {
			items = append(items, item)
		}
	}
	slices.SortFunc(items, func(a, b domain.Item) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return items, nil
}

// loadItems reads item hashes and stock counters in one round trip, skipping missing ids.
func (r *RedisAdapter) loadItems(ctx context.Context, ids []int64) ([]domain.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	fields := make([]*redis.MapStringStringCmd, len(ids))
	stocks := make([]*redis.StringCmd, len(ids))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			fields[i] = pipe.HGetAll(ctx, itemKey(id))
			stocks[i] = pipe.Get(ctx, stockKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	items := make([]domain.Item, 0, len(ids))
	for i, id := range ids {
		h := fields[i].Val()
		if len(h) == 0 {
			continue
		}
		qty, err := stocks[i].Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		item, err := itemFromHash(id, h, qty)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", id, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func itemFromHash(id int64, h map[string]string, qty int) (domain.Item, error) {
	item := domain.Item{ID: id, Name: h["name"], Quantity: qty}

	var err error
	if item.WeightGrams, err = decimal.NewFromString(h["weight_grams"]); err != nil {
		return item, fmt.Errorf("weight_grams: %w", err)
	}
	if item.PricePerGram, err = decimal.NewFromString(h["price_per_gram"]); err != nil {
		return item, fmt.Errorf("price_per_gram: %w", err)
	}
	if item.UnitPrice, err = decimal.NewFromString(h["unit_price"]); err != nil {
		return item, fmt.Errorf("unit_price: %w", err)
	}
	if item.PurityKarat, err = strconv.Atoi(h["purity_karat"]); err != nil {
		return item, fmt.Errorf("purity_karat: %w", err)
	}
	if item.CreatedAt, err = time.Parse(time.RFC3339Nano, h["created_at"]); err != nil {
		return item, fmt.Errorf("created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339Nano, h["updated_at"]); err != nil {
		return item, fmt.Errorf("updated_at: %w", err)
	}
	return item, nil
}

func itemHash(item domain.Item) map[string]any {
	return map[string]any{
		"name":           item.Name,
		"weight_grams":   item.WeightGrams.String(),
		"purity_karat":   item.PurityKarat,
		"price_per_gram": item.PricePerGram.String(),
		"unit_price":     item.UnitPrice.String(),
		"created_at":     item.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":     item.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (r *RedisAdapter) SaveItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	now := time.Now().UTC()

	if item.ID == 0 {
		id, err := r.client.Incr(ctx, itemIDSeqKey).Result()
		if err != nil {
			return domain.Item{}, err
		}
		item.ID = id
		item.CreatedAt = now
		item.UpdatedAt = now

		_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, itemKey(id), itemHash(item))
			pipe.Set(ctx, stockKey(id), item.Quantity, 0)
			pipe.SAdd(ctx, itemSetKey, id)
			return nil
		})
		if err != nil {
			return domain.Item{}, err
		}
		return item, nil
	}

	key := itemKey(item.ID)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		created, err := tx.HGet(ctx, key, "created_at").Result()
		if errors.Is(err, redis.Nil) {
			return port.ErrNotFound
		}
		if err != nil {
			return err
		}
		if item.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return fmt.Errorf("created_at: %w", err)
		}
		item.UpdatedAt = now

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, itemHash(item))
			pipe.Set(ctx, stockKey(item.ID), item.Quantity, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (r *RedisAdapter) DeleteItem(ctx context.Context, itemID int64) (bool, error) {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, itemKey(itemID))
		pipe.Del(ctx, stockKey(itemID))
		pipe.SRem(ctx, itemSetKey, itemID)
		return nil
	})
	if err != nil {
		return false, err
	}
	return del.Val() > 0, nil
}

func (r *RedisAdapter) ListSalesByCustomer(ctx context.Context, customerID int64) ([]domain.SaleRecord, error) {
	sales, err := r.readSales(ctx, customerSalesKey(customerID))
	if err != nil {
		return nil, err
	}
	slices.Reverse(sales)
	return sales, nil
}

func (r *RedisAdapter) ListSalesByDate(ctx context.Context, day time.Time) ([]domain.SaleRecord, error) {
	return r.readSales(ctx, dailySalesKey(day))
}

func (r *RedisAdapter) readSales(ctx context.Context, key string) ([]domain.SaleRecord, error) {
	docs, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	sales := make([]domain.SaleRecord, 0, len(docs))
	for _, doc := range docs {
		var rs redisSale
		if err := json.Unmarshal([]byte(doc), &rs); err != nil {
			return nil, fmt.Errorf("unmarshal sale: %w", err)
		}
		sale, err := rs.toDomain()
		if err != nil {
			return nil, fmt.Errorf("sale %d: %w", rs.ID, err)
		}
		sales = append(sales, sale)
	}

	names := make([]*redis.StringCmd, len(sales))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, s := range sales {
			names[i] = pipe.HGet(ctx, itemKey(s.ItemID), "name")
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for i := range sales {
		sales[i].ItemName = names[i].Val()
	}
	return sales, nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisAdapter) Close() error {
	return r.client.Close()
}
