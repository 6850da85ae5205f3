package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/service"
)

// LoadLocals reads the manual local accounts, plus any account already linked to one
// of the feeds, with their transactions within window days of the feeds' earliest and
// latest candidate dates.
func LoadLocals(ctx context.Context, store service.Storage, feeds []ExternalFeed, window int) ([]LocalAccount, error) {
	accounts, err := store.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	from, to, ok := dateSpan(feeds)
	if ok {
		from = from.AddDate(0, 0, -window)
		to = to.AddDate(0, 0, window)
	}

	linked := make(map[string]bool, len(feeds))
	for _, feed := range feeds {
		if feed.Account.ExternalID != "" {
			linked[feed.Account.ExternalID] = true
		}
	}

	var locals []LocalAccount
	for _, account := range accounts {
		if !account.IsManual && !linked[account.ExternalID] {
			continue
		}
		local := LocalAccount{Account: account}
		if ok {
			local.History, err = store.GetTransactions(ctx, service.TransactionFilter{
				AccountID: account.ID,
				StartDate: &from,
				EndDate:   &to,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to load history for %s: %w", account.ID, err)
			}
		}
		locals = append(locals, local)
	}
	return locals, nil
}

func dateSpan(feeds []ExternalFeed) (from, to time.Time, ok bool) {
	for _, feed := range feeds {
		for _, c := range feed.Candidates {
			d := model.DayOf(c.Date)
			if !ok || d.Before(from) {
				from = d
			}
			if !ok || d.After(to) {
				to = d
			}
			ok = true
		}
	}
	return from, to, ok
}
