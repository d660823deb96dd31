package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

type CartLine struct {
	ItemID      int64
	Name        string
	WeightGrams decimal.Decimal
	PurityKarat int
	UnitPrice   decimal.Decimal // snapshot taken when the line was created
	Quantity    int
}

func (l CartLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds one customer session's lines keyed by item ID. It is not safe
// for concurrent use; its owner mutates it sequentially.
type Cart struct {
	lines map[int64]*CartLine
}

func NewCart() *Cart {
	return &Cart{lines: make(map[int64]*CartLine)}
}

func (c *Cart) Line(itemID int64) (CartLine, bool) {
	l, ok := c.lines[itemID]
	if !ok {
		return CartLine{}, false
	}
	return *l, true
}

func (c *Cart) QuantityOf(itemID int64) int {
	if l, ok := c.lines[itemID]; ok {
		return l.Quantity
	}
	return 0
}

// Lines returns copies of all lines ordered by item ID.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Put stores line, replacing any line for the same item. Lines with a
// non-positive quantity are removed instead.
func (c *Cart) Put(line CartLine) {
	if line.Quantity <= 0 {
		delete(c.lines, line.ItemID)
		return
	}
	l := line
	c.lines[line.ItemID] = &l
}

func (c *Cart) Remove(itemID int64) bool {
	if _, ok := c.lines[itemID]; !ok {
		return false
	}
	delete(c.lines, itemID)
	return true
}

func (c *Cart) Clear() {
	clear(c.lines)
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}
