package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradejournal/src/ledger"
	"tradejournal/src/model"
)

// JournalRepository persists trades and equity baselines. It implements ledger.Store.
type JournalRepository struct {
	db *gorm.DB
}

var _ ledger.Store = (*JournalRepository)(nil)

// NewJournalRepository creates a repository on the main read/write database.
func NewJournalRepository(db *gorm.DB) *JournalRepository {
	logger.WithField("component", "JournalRepository").
		Debug("Creating new JournalRepository")

	return &JournalRepository{db: db}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *JournalRepository) WithDB(db *gorm.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// ---------------------------------------------------
// Trade methods
// ---------------------------------------------------

// ListTrades returns the owner's trades in ledger order.
func (r *JournalRepository) ListTrades(
	ctx context.Context,
	q ledger.TradeQuery,
) ([]model.Trade, error) {

	logger.WithFields(map[string]interface{}{
		"repo":    "JournalRepository",
		"op":      "ListTrades",
		"user_id": q.OwnerID,
	}).Debug("Listing trades")

	query := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("user_id = ?", q.OwnerID)

	if q.From != nil {
		query = query.Where("recorded_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("recorded_at <= ?", *q.To)
	}

	if q.NewestFirst {
		query = query.Order("recorded_at DESC, created_at DESC, id DESC")
	} else {
		query = query.Order("recorded_at ASC, created_at ASC, id ASC")
	}

	var trades []model.Trade
	if err := query.Find(&trades).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "JournalRepository",
			"op":      "ListTrades",
			"user_id": q.OwnerID,
		}).WithError(err).Error("Failed to list trades")

		return nil, err
	}

	return trades, nil
}

// FindTrade fetches a trade by id scoped to its owner.
// Returns (nil, nil) if the trade is not found.
func (r *JournalRepository) FindTrade(
	ctx context.Context,
	id string,
	ownerID uint,
) (*model.Trade, error) {

	var trade model.Trade
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&trade).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo":     "JournalRepository",
				"op":       "FindTrade",
				"trade_id": id,
				"user_id":  ownerID,
			}).Info("Trade not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "JournalRepository",
			"op":       "FindTrade",
			"trade_id": id,
		}).WithError(err).Error("Failed to fetch trade")

		return nil, err
	}

	return &trade, nil
}

// CreateTrade inserts a new trade. The id is assigned by the model hook.
func (r *JournalRepository) CreateTrade(
	ctx context.Context,
	trade *model.Trade,
) error {

	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "JournalRepository",
			"op":      "CreateTrade",
			"user_id": trade.UserID,
		}).WithError(err).Error("Failed to create trade")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "JournalRepository",
		"op":       "CreateTrade",
		"trade_id": trade.ID,
	}).Debug("Trade created")

	return nil
}

// SaveTrade writes every column of an existing trade.
func (r *JournalRepository) SaveTrade(
	ctx context.Context,
	trade *model.Trade,
) error {

	res := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("id = ? AND user_id = ?", trade.ID, trade.UserID).
		Select("*").
		Omit("id", "user_id", "created_at").
		Updates(trade)

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "JournalRepository",
			"op":       "SaveTrade",
			"trade_id": trade.ID,
		}).WithError(res.Error).Error("Failed to save trade")

		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// UpdateTradeEquity writes only the derived columns.
func (r *JournalRepository) UpdateTradeEquity(
	ctx context.Context,
	trade *model.Trade,
) error {

	res := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("id = ? AND user_id = ?", trade.ID, trade.UserID).
		Updates(map[string]interface{}{
			"pnl":           trade.PnL,
			"equity_before": trade.EquityBefore,
			"equity_after":  trade.EquityAfter,
		})

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "JournalRepository",
			"op":       "UpdateTradeEquity",
			"trade_id": trade.ID,
		}).WithError(res.Error).Error("Failed to update trade equity")

		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// DeleteTrade removes a trade owned by ownerID and reports whether a row was deleted.
func (r *JournalRepository) DeleteTrade(
	ctx context.Context,
	id string,
	ownerID uint,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&model.Trade{})

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "JournalRepository",
			"op":       "DeleteTrade",
			"trade_id": id,
		}).WithError(res.Error).Error("Failed to delete trade")

		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// ---------------------------------------------------
// Baseline methods
// ---------------------------------------------------

// LatestBaseline returns the most recently created baseline.
// Returns (nil, nil) if the owner never set one.
func (r *JournalRepository) LatestBaseline(
	ctx context.Context,
	ownerID uint,
) (*model.EquityBaseline, error) {

	var baseline model.EquityBaseline
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		First(&baseline).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":    "JournalRepository",
			"op":      "LatestBaseline",
			"user_id": ownerID,
		}).WithError(err).Error("Failed to fetch latest baseline")

		return nil, err
	}

	return &baseline, nil
}

// CreateBaseline inserts a new baseline.
func (r *JournalRepository) CreateBaseline(
	ctx context.Context,
	baseline *model.EquityBaseline,
) error {

	if err := r.db.WithContext(ctx).Create(baseline).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "JournalRepository",
			"op":      "CreateBaseline",
			"user_id": baseline.UserID,
		}).WithError(err).Error("Failed to create baseline")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":    "JournalRepository",
		"op":      "CreateBaseline",
		"user_id": baseline.UserID,
		"amount":  baseline.Amount.String(),
	}).Info("Baseline created")

	return nil
}

// Transaction runs fn with a repository bound to a single database transaction.
func (r *JournalRepository) Transaction(
	ctx context.Context,
	fn func(ledger.Store) error,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithDB(tx))
	})
}

// OwnersWithTrades lists every user id that has at least one trade.
func (r *JournalRepository) OwnersWithTrades(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Distinct().
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
