// Package ledger stores assets and operations and computes the ledger aggregates.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tradeledger/backend/src/apperrors"
	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/security/validation"
	"github.com/username/tradeledger/backend/src/utils"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Ledger struct {
	db DBTX
}

func New(db DBTX) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a ledger whose statements run inside tx.
func (l *Ledger) WithTx(tx *sql.Tx) *Ledger {
	return &Ledger{db: tx}
}

const selectOperations = `
	SELECT o.id, a.code, o.kind, o.quantity, o.price, o.date, o.fee, o.value,
	       o.sell_price, o.buy_price, o.broker, o.note_number, o.market
	FROM operations o
	JOIN assets a ON a.id = o.asset_id`

// Register validates op, resolves or creates its asset and inserts the row.
func (l *Ledger) Register(ctx context.Context, op models.Operation) error {
	log := logger.FromContext(ctx)

	if err := validation.ValidateOperation(op); err != nil {
		log.Warn("Rejected invalid operation", "asset", op.AssetCode, "error", err)
		return err
	}

	assetID, err := l.AssetID(ctx, op.AssetCode)
	if errors.Is(err, apperrors.ErrAssetNotFound) {
		assetID, err = l.CreateAsset(ctx, op.AssetCode)
	}
	if err != nil {
		log.Error("Failed to resolve asset for operation", "asset", op.AssetCode, "error", err)
		return err
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO operations
			(asset_id, kind, quantity, price, date, fee, value, sell_price, buy_price, broker, note_number, market)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		assetID, string(op.Kind), op.Quantity, op.Price.InexactFloat64(), op.DateString(),
		op.Fee.InexactFloat64(), op.Value.InexactFloat64(),
		op.SellPrice.InexactFloat64(), op.BuyPrice.InexactFloat64(),
		nullString(op.Broker), nullString(op.NoteNumber), nullString(string(op.Market)),
	)
	if err != nil {
		log.Error("Failed to insert operation", "asset", op.AssetCode, "date", op.DateString(), "error", err)
		return apperrors.Storage("insert operation", err)
	}

	log.Debug("Operation registered", "asset", op.AssetCode, "kind", op.Kind, "quantity", op.Quantity)
	return nil
}

// AssetID returns the id of code, or ErrAssetNotFound.
func (l *Ledger) AssetID(ctx context.Context, code string) (int64, error) {
	var id int64
	err := l.db.QueryRowContext(ctx, `SELECT id FROM assets WHERE code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrAssetNotFound, code)
	}
	if err != nil {
		return 0, apperrors.Storage("lookup asset", err)
	}
	return id, nil
}

// CreateAsset inserts code. It is not idempotent: an existing code yields ErrDuplicateAsset.
func (l *Ledger) CreateAsset(ctx context.Context, code string) (int64, error) {
	res, err := l.db.ExecContext(ctx, `INSERT INTO assets (code) VALUES (?)`, code)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", apperrors.ErrDuplicateAsset, code)
		}
		return 0, apperrors.Storage("create asset", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.Storage("create asset", err)
	}
	logger.FromContext(ctx).Info("Asset created", "code", code, "id", id)
	return id, nil
}

// ListOperations returns operations dated within [from, to], both ends inclusive.
func (l *Ledger) ListOperations(ctx context.Context, from, to time.Time) ([]models.Operation, error) {
	return l.query(ctx, selectOperations+` WHERE o.date BETWEEN ? AND ? ORDER BY o.id`,
		from.Format(models.DateFormat), to.Format(models.DateFormat))
}

// ListAllOperations returns every operation in insertion order.
func (l *Ledger) ListAllOperations(ctx context.Context) ([]models.Operation, error) {
	return l.query(ctx, selectOperations+` ORDER BY o.id`)
}

// ListOperationsByDateDesc returns every operation, most recent trade date first.
func (l *Ledger) ListOperationsByDateDesc(ctx context.Context) ([]models.Operation, error) {
	return l.query(ctx, selectOperations+` ORDER BY o.date DESC, o.id DESC`)
}

// TotalBalance is the raw signed sum of the value column; 0 when the ledger is empty.
// Rows are summed as decimals so REAL storage does not leak float error into the total.
func (l *Ledger) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	err := l.eachRow(ctx, "total balance", `SELECT value FROM operations`, func(row []decimal.Decimal) {
		total = total.Add(row[0])
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// RealizedProfitLoss sums (sell_price - buy_price) * quantity over all operations.
func (l *Ledger) RealizedProfitLoss(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	err := l.eachRow(ctx, "realized profit/loss", `SELECT sell_price, buy_price, quantity FROM operations`, func(row []decimal.Decimal) {
		total = total.Add(row[0].Sub(row[1]).Mul(row[2]))
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// CountAssets returns the number of known assets.
func (l *Ledger) CountAssets(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`).Scan(&n); err != nil {
		return 0, apperrors.Storage("count assets", err)
	}
	return n, nil
}

// eachRow hands fn every row of query with its numeric columns converted to decimals.
func (l *Ledger) eachRow(ctx context.Context, what, query string, fn func(row []decimal.Decimal)) error {
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to compute aggregate", "aggregate", what, "error", err)
		return apperrors.Storage(what, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return apperrors.Storage(what, err)
	}
	raw := make([]float64, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	row := make([]decimal.Decimal, len(cols))

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			logger.FromContext(ctx).Error("Failed to scan aggregate row", "aggregate", what, "error", err)
			return apperrors.Storage(what, err)
		}
		for i, f := range raw {
			row[i] = utils.DecimalFromDB(f)
		}
		fn(row)
	}
	if err := rows.Err(); err != nil {
		return apperrors.Storage(what, err)
	}
	return nil
}

func (l *Ledger) query(ctx context.Context, query string, args ...any) ([]models.Operation, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to query operations", "error", err)
		return nil, apperrors.Storage("list operations", err)
	}
	defer rows.Close()

	ops := []models.Operation{}
	for rows.Next() {
		var (
			op                                     models.Operation
			kind, date                             string
			price, fee, value, sellPrice, buyPrice float64
			broker, noteNumber, market             sql.NullString
		)
		if err := rows.Scan(&op.ID, &op.AssetCode, &kind, &op.Quantity, &price, &date, &fee, &value,
			&sellPrice, &buyPrice, &broker, &noteNumber, &market); err != nil {
			return nil, apperrors.Storage("scan operation", err)
		}
		op.Kind = models.OperationKind(kind)
		op.Date, err = time.Parse(models.DateFormat, date)
		if err != nil {
			return nil, apperrors.Storage("parse operation date", err)
		}
		op.Price = utils.DecimalFromDB(price)
		op.Fee = utils.DecimalFromDB(fee)
		op.Value = utils.DecimalFromDB(value)
		op.SellPrice = utils.DecimalFromDB(sellPrice)
		op.BuyPrice = utils.DecimalFromDB(buyPrice)
		op.Broker = broker.String
		op.NoteNumber = noteNumber.String
		op.Market = models.Market(market.String)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("iterate operations", err)
	}
	return ops, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
