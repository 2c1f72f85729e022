package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradejournal/src/export"
	"tradejournal/src/ledger"
	"tradejournal/src/repository"
)

var ErrUnknownUser = errors.New("unknown user")

// Maintenance runs operator tasks against the journal database.
type Maintenance struct {
	Log    *logger.Entry
	DB     *gorm.DB
	Ledger *ledger.Ledger

	users  *repository.GormUserRepository
	trades *repository.JournalRepository
}

func New(log *logger.Entry, db *gorm.DB, cfg ledger.Config) *Maintenance {
	trades := repository.NewJournalRepository(db)
	return &Maintenance{
		Log:    log,
		DB:     db,
		Ledger: ledger.New(trades, cfg),
		users:  repository.NewUserRepository(db),
		trades: trades,
	}
}

func (m *Maintenance) userID(ctx context.Context, username string) (uint, error) {
	u, err := m.users.GetUserByUserName(ctx, username)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	return u.ID, nil
}

// Recompute replays the equity chain of one user, or of every user with trades when username is empty.
// It returns the number of trades whose stored equity changed.
func (m *Maintenance) Recompute(ctx context.Context, username string) (int, error) {
	var owners []uint
	if username != "" {
		id, err := m.userID(ctx, username)
		if err != nil {
			return 0, err
		}
		owners = []uint{id}
	} else {
		ids, err := m.trades.OwnersWithTrades(ctx)
		if err != nil {
			return 0, fmt.Errorf("list owners: %w", err)
		}
		owners = ids
	}

	total := 0
	for _, owner := range owners {
		updated, err := m.Ledger.Repair(ctx, owner)
		if errors.Is(err, ledger.ErrNoBaseline) {
			m.Log.WithField("user_id", owner).Warn("no starting equity, skipped")
			continue
		}
		if err != nil {
			return total, fmt.Errorf("recompute user %d: %w", owner, err)
		}

		m.Log.WithFields(map[string]interface{}{
			"user_id": owner,
			"updated": updated,
		}).Info("Equity chain recomputed")
		total += updated
	}

	return total, nil
}

// SetEquity records a new starting equity for username and recomputes their trades.
func (m *Maintenance) SetEquity(ctx context.Context, username, amount string) error {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	id, err := m.userID(ctx, username)
	if err != nil {
		return err
	}

	if _, err := m.Ledger.SetBaseline(ctx, id, d); err != nil {
		return err
	}

	m.Log.WithFields(map[string]interface{}{
		"user_id": id,
		"amount":  d.String(),
	}).Info("Starting equity set")
	return nil
}

// Export writes the user's journal as CSV, newest trade first.
func (m *Maintenance) Export(ctx context.Context, username string, w io.Writer) error {
	id, err := m.userID(ctx, username)
	if err != nil {
		return err
	}

	trades, err := m.Ledger.Trades(ctx, id, ledger.ListOptions{NewestFirst: true})
	if err != nil {
		return err
	}
	return export.WriteTradesCSV(w, trades)
}

// Stats writes the user's statistics as indented JSON. from and to are optional YYYY-MM-DD days.
func (m *Maintenance) Stats(ctx context.Context, username, from, to string, w io.Writer) error {
	id, err := m.userID(ctx, username)
	if err != nil {
		return err
	}

	var opts ledger.ListOptions
	if from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		opts.From = &t
	}
	if to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		end := t.Add(24*time.Hour - time.Microsecond)
		opts.To = &end
	}

	stats, err := m.Ledger.Statistics(ctx, id, opts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// Users writes one line per account: id, username and trade count.
func (m *Maintenance) Users(ctx context.Context, w io.Writer) error {
	users, err := m.users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	for _, u := range users {
		trades, err := m.Ledger.Trades(ctx, u.ID, ledger.ListOptions{})
		if err != nil {
			return fmt.Errorf("list trades of user %d: %w", u.ID, err)
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%d\n", u.ID, u.Username, len(trades)); err != nil {
			return err
		}
	}
	return nil
}
