package jobs

import (
	"context"

	"rental-ledger-backend/internal/domain"
	"rental-ledger-backend/internal/logger"

	"github.com/shopspring/decimal"
)

// DailyLedgerSummary logs, per active account, how many rentals are out,
// what they are worth so far and how much debt is open.
func (jr *JobRunner) DailyLedgerSummary() {
	jr.runWithRecovery("DailyLedgerSummary", func() {
		summaries, err := jr.ledgerSummaries(context.Background())
		if err != nil {
			logger.Error("Failed to build ledger summaries", "error", err)
			return
		}

		totalValuation := decimal.Zero
		totalDebt := decimal.Zero
		for _, s := range summaries {
			totalValuation = totalValuation.Add(s.Valuation)
			totalDebt = totalDebt.Add(s.OpenDebt)
		}
		logger.Info("Ledger summary", "accounts", len(summaries), "valuation", totalValuation, "open_debt", totalDebt)
	})
}

// ledgerSummaries skips accounts whose summary fails so one bad account does
// not hide the rest.
func (jr *JobRunner) ledgerSummaries(ctx context.Context) ([]domain.LedgerSummary, error) {
	log := logger.WithJob("DailyLedgerSummary")

	accounts, err := jr.services.Account.ListActiveAccounts(ctx)
	if err != nil {
		return nil, err
	}

	var summaries []domain.LedgerSummary
	for _, account := range accounts {
		summary, err := jr.services.Ledger.Summary(ctx, account.ID)
		if err != nil {
			log.Error("Failed to summarize account", "account_id", account.ID, "error", err)
			continue
		}
		log.Info("Account summary",
			"account_id", account.ID,
			"shop", account.ShopName,
			"active_rentals", summary.ActiveRentals,
			"valuation", summary.Valuation,
			"open_debt", summary.OpenDebt)
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// StaleRental is an active rental that has been out longer than the
// configured age, with its cost so far.
type StaleRental struct {
	AccountID int32
	Rental    domain.Rental
	Cost      decimal.Decimal
}

// StaleRentalReport lists active rentals older than the configured age.
func (jr *JobRunner) StaleRentalReport() {
	jr.runWithRecovery("StaleRentalReport", func() {
		stale, err := jr.staleRentals(context.Background())
		if err != nil {
			logger.Error("Failed to list stale rentals", "error", err)
			return
		}
		logger.Info("Stale rentals found", "count", len(stale), "older_than_days", jr.config.Ledger.StaleRentalDays)
	})
}

func (jr *JobRunner) staleRentals(ctx context.Context) ([]StaleRental, error) {
	log := logger.WithJob("StaleRentalReport")

	accounts, err := jr.services.Account.ListActiveAccounts(ctx)
	if err != nil {
		return nil, err
	}

	var out []StaleRental
	for _, account := range accounts {
		rentals, err := jr.services.Rental.ListStaleRentals(ctx, account.ID, jr.config.StaleRentalAge())
		if err != nil {
			log.Error("Failed to list stale rentals", "account_id", account.ID, "error", err)
			continue
		}
		for _, r := range rentals {
			cost, err := jr.services.Rental.ComputeRentalCost(ctx, account.ID, r.ID)
			if err != nil {
				log.Warn("Failed to value stale rental", "account_id", account.ID, "rental_id", r.ID, "error", err)
				continue
			}
			log.Info("Stale rental",
				"account_id", account.ID,
				"rental_id", r.ID,
				"customer", r.Customer.Name,
				"phone", r.Customer.Phone,
				"started_at", r.StartedAt,
				"cost", cost)
			out = append(out, StaleRental{AccountID: account.ID, Rental: r, Cost: cost})
		}
	}
	return out, nil
}
