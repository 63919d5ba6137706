package utils

import (
	"time"

	"rental-ledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Date represents a calendar date in the ledger's reference time zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateIn returns the calendar date of t as seen in loc
func DateIn(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// daysSinceEpoch counts whole days from 1970-01-01 so dates subtract cleanly
// across month and DST boundaries.
func (d Date) daysSinceEpoch() int {
	return int(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// ElapsedDays counts billable days between start and now. Both ends are
// included, so a rental started and checked on the same date bills 1 day and
// one checked three dates later bills 4.
func ElapsedDays(start, now time.Time, loc *time.Location) int {
	days := DateIn(now, loc).daysSinceEpoch() - DateIn(start, loc).daysSinceEpoch() + 1
	if days < 1 {
		return 1
	}
	return days
}

// LineCost is price x quantity x days, rounded to minor units.
func LineCost(price decimal.Decimal, quantity int32, days int) decimal.Decimal {
	return domain.RoundMoney(price.Mul(decimal.NewFromInt32(quantity)).Mul(decimal.NewFromInt(int64(days))))
}

// RentalCost values every unreturned unit of the given items.
func RentalCost(items []domain.RentalItem, days int) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(LineCost(item.DailyPrice, item.Outstanding(), days))
	}
	return domain.RoundMoney(total)
}

// ReturnCost prices a batch of return lines against a snapshot of the
// rental's items. Each line is clamped to what is still outstanding on its
// item after earlier lines in the same batch, and lines naming unknown items
// are skipped. The clamped lines are returned alongside the total.
func ReturnCost(items []domain.RentalItem, lines []domain.ReturnLine, days int) ([]domain.AppliedReturn, decimal.Decimal) {
	remaining := make(map[int32]int32, len(items))
	byID := make(map[int32]domain.RentalItem, len(items))
	for _, item := range items {
		remaining[item.ID] = item.Outstanding()
		byID[item.ID] = item
	}

	var applied []domain.AppliedReturn
	total := decimal.Zero
	for _, line := range lines {
		item, ok := byID[line.ItemID]
		if !ok || line.Quantity <= 0 {
			continue
		}
		qty := line.Quantity
		if qty > remaining[item.ID] {
			qty = remaining[item.ID]
		}
		if qty <= 0 {
			continue
		}
		remaining[item.ID] -= qty

		cost := LineCost(item.DailyPrice, qty, days)
		applied = append(applied, domain.AppliedReturn{
			ItemID:     item.ID,
			ToolID:     item.ToolID,
			Quantity:   qty,
			DailyPrice: item.DailyPrice,
			Cost:       cost,
		})
		total = total.Add(cost)
	}
	return applied, domain.RoundMoney(total)
}
