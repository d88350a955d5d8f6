package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/username/tradeledger/backend/src/apperrors"
	"github.com/username/tradeledger/backend/src/ledger"
	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/parsers"
	"github.com/username/tradeledger/backend/src/pdftext"
	"github.com/username/tradeledger/backend/src/processors"
)

type noteServiceImpl struct {
	db             *sql.DB
	ledger         *ledger.Ledger
	extractor      pdftext.Extractor
	feeProcessor   processors.FeeProcessor
	cache          CacheInvalidator
	enabledBrokers []string
}

func NewNoteService(
	db *sql.DB,
	l *ledger.Ledger,
	extractor pdftext.Extractor,
	feeProcessor processors.FeeProcessor,
	cache CacheInvalidator,
	enabledBrokers []string,
) NoteService {
	return &noteServiceImpl{
		db:             db,
		ledger:         l,
		extractor:      extractor,
		feeProcessor:   feeProcessor,
		cache:          cache,
		enabledBrokers: enabledBrokers,
	}
}

// ProcessNote rejects an unknown or disabled broker before reading pdf, then extracts and parses it.
func (s *noteServiceImpl) ProcessNote(ctx context.Context, pdf io.Reader, rawBroker string) (*models.Note, error) {
	log := logger.FromContext(ctx)

	broker, parser, err := parsers.Resolve(rawBroker, s.enabledBrokers)
	if err != nil {
		log.Warn("Note rejected: broker not supported", "broker", rawBroker, "error", err)
		return nil, err
	}

	start := time.Now()
	text, err := s.extractor.Extract(ctx, pdf)
	if err != nil {
		log.Warn("Note rejected: document unreadable", "broker", broker, "error", err)
		return nil, err
	}

	note, err := parser.Parse(ctx, text)
	if err != nil {
		return nil, err
	}
	log.Info("Note processed", "broker", broker, "operations", len(note.Operations), "fees", len(note.Fees), "duration", time.Since(start))
	return note, nil
}

// SaveNote stores every operation of note in one transaction: either all rows are kept or none.
func (s *noteServiceImpl) SaveNote(ctx context.Context, note *models.Note) error {
	log := logger.FromContext(ctx)

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("Failed to begin transaction for note", "error", err)
		return apperrors.Storage("begin note transaction", err)
	}
	defer dbTx.Rollback()

	txLedger := s.ledger.WithTx(dbTx)
	for i, op := range note.Operations {
		if err := txLedger.Register(ctx, op); err != nil {
			log.Error("Note not saved: operation failed", "index", i, "asset", op.AssetCode, "error", err)
			return fmt.Errorf("operation %d (%s): %w", i+1, op.AssetCode, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		log.Error("Failed to commit note", "error", err)
		return apperrors.Storage("commit note", err)
	}

	log.Info("Note saved", "broker", note.Broker, "operations", len(note.Operations))
	s.cache.InvalidateCache()
	return nil
}

// RegisterNote registers each operation on its own and reports every outcome.
func (s *noteServiceImpl) RegisterNote(ctx context.Context, note *models.Note) []RegistrationResult {
	results := make([]RegistrationResult, 0, len(note.Operations))
	registered := 0
	for i, op := range note.Operations {
		res := RegistrationResult{Index: i, AssetCode: op.AssetCode, Kind: op.Kind, Quantity: op.Quantity}
		if err := s.ledger.Register(ctx, op); err != nil {
			res.Error = err.Error()
		} else {
			res.Registered = true
			registered++
		}
		results = append(results, res)
	}
	if registered > 0 {
		s.cache.InvalidateCache()
	}
	return results
}

func (s *noteServiceImpl) UploadNote(ctx context.Context, pdf io.Reader, broker string, atomic bool) (*NoteUploadResult, error) {
	note, err := s.ProcessNote(ctx, pdf, broker)
	if err != nil {
		return nil, err
	}

	result := &NoteUploadResult{
		Broker:     note.Broker,
		Operations: make([]models.OperationView, 0, len(note.Operations)),
		Fees:       s.feeProcessor.Process(note),
		TotalFees:  note.TotalFees(),
		Atomic:     atomic,
	}
	if note.NoteNumber != nil {
		result.NoteNumber = *note.NoteNumber
	}
	if note.TradeDate != nil {
		result.TradeDate = note.TradeDate.Format(models.DateFormat)
	}
	for _, op := range note.Operations {
		result.Operations = append(result.Operations, op.View())
	}

	if atomic {
		if err := s.SaveNote(ctx, note); err != nil {
			return nil, err
		}
		result.Registered = len(note.Operations)
		result.Results = make([]RegistrationResult, 0, len(note.Operations))
		for i, op := range note.Operations {
			result.Results = append(result.Results, RegistrationResult{
				Index: i, AssetCode: op.AssetCode, Kind: op.Kind, Quantity: op.Quantity, Registered: true,
			})
		}
		return result, nil
	}

	result.Results = s.RegisterNote(ctx, note)
	for _, r := range result.Results {
		if r.Registered {
			result.Registered++
		} else {
			result.Failed++
		}
	}
	return result, nil
}
