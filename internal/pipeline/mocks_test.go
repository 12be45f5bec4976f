package pipeline_test

import (
	"context"
	"sync"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/pipeline"
)

// MockLedger implements LedgerSource and LedgerWriter.
type MockLedger struct {
	ListAccountsFunc      func(ctx context.Context) ([]domain.Account, error)
	ListCategoriesFunc    func(ctx context.Context) ([]domain.Category, error)
	InsertTransactionFunc func(ctx context.Context, rec domain.TransactionRecord) (int64, error)
	SetStatusFunc         func(ctx context.Context, id int64, status string) error

	mu       sync.Mutex
	inserted []domain.TransactionRecord
	statuses map[int64]string
}

func (m *MockLedger) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx)
	}
	return []domain.Account{{ID: 1, Label: "Cash"}}, nil
}

func (m *MockLedger) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx)
	}
	return nil, nil
}

func (m *MockLedger) InsertTransaction(ctx context.Context, rec domain.TransactionRecord) (int64, error) {
	m.mu.Lock()
	m.inserted = append(m.inserted, rec)
	m.mu.Unlock()

	if m.InsertTransactionFunc != nil {
		return m.InsertTransactionFunc(ctx, rec)
	}
	return 1001, nil
}

func (m *MockLedger) SetStatus(ctx context.Context, id int64, status string) error {
	m.mu.Lock()
	if m.statuses == nil {
		m.statuses = make(map[int64]string)
	}
	m.statuses[id] = status
	m.mu.Unlock()

	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *MockLedger) Inserted() []domain.TransactionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TransactionRecord(nil), m.inserted...)
}

// MockExtractor returns a canned result.
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, text string, hints pipeline.ExtractionContext) (domain.ExtractionResult, error)

	LastHints pipeline.ExtractionContext
}

func (m *MockExtractor) Extract(ctx context.Context, text string, hints pipeline.ExtractionContext) (domain.ExtractionResult, error) {
	m.LastHints = hints
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, text, hints)
	}
	return domain.ExtractionResult{"payee": "Shop", "amount": 1.0}, nil
}

func (m *MockExtractor) ModelName() string { return "mock-model" }

func fixedResult(res domain.ExtractionResult) *MockExtractor {
	return &MockExtractor{
		ExtractFunc: func(ctx context.Context, text string, hints pipeline.ExtractionContext) (domain.ExtractionResult, error) {
			return res, nil
		},
	}
}

// MockRecorder captures extraction records.
type MockRecorder struct {
	Records []pipeline.ExtractionRecord
	Err     error
}

func (m *MockRecorder) RecordExtraction(ctx context.Context, rec pipeline.ExtractionRecord) error {
	m.Records = append(m.Records, rec)
	return m.Err
}

// MockMirror captures confirmed transactions.
type MockMirror struct {
	Confirmed []pipeline.ConfirmedTransaction
	Err       error
}

func (m *MockMirror) Name() string { return "mock" }

func (m *MockMirror) MirrorConfirmed(ctx context.Context, tx pipeline.ConfirmedTransaction) error {
	m.Confirmed = append(m.Confirmed, tx)
	return m.Err
}
