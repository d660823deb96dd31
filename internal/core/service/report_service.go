package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/port"
)

type DailyReport struct {
	Day   time.Time
	Sales []domain.SaleRecord
	Total domain.Money
	Units int
}

type ReportService struct {
	ledger   port.SalesLedger
	currency currency.Unit
}

func NewReportService(ledger port.SalesLedger, unit currency.Unit) *ReportService {
	return &ReportService{ledger: ledger, currency: unit}
}

func (s *ReportService) PurchaseHistory(ctx context.Context, customerID int64) ([]domain.SaleRecord, error) {
	if customerID <= 0 {
		return nil, ErrInvalidCustomer
	}

	sales, err := s.ledger.ListSalesByCustomer(ctx, customerID)
	if err != nil {
		return nil, storageError("list customer sales", err)
	}
	return sales, nil
}

func (s *ReportService) DailySales(ctx context.Context, day time.Time) (*DailyReport, error) {
	day = domain.SaleDay(day)

	sales, err := s.ledger.ListSalesByDate(ctx, day)
	if err != nil {
		return nil, storageError("list daily sales", err)
	}

	total := decimal.Zero
	units := 0
	for _, sale := range sales {
		total = total.Add(sale.Amount)
		units += sale.Quantity
	}

	return &DailyReport{
		Day:   day,
		Sales: sales,
		Total: domain.NewMoney(total, s.currency),
		Units: units,
	}, nil
}
