package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
	"github.com/dvloznov/manual-tx-bot/internal/matching"
	"github.com/dvloznov/manual-tx-bot/internal/pending"
)

// Settings are the user-level defaults of the service.
type Settings struct {
	Timezone         string
	DefaultCurrency  string
	DefaultAccountID *int64
	TokenMap         map[string]int64

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service drives a transaction from free text to the ledger.
type Service struct {
	source    LedgerSource
	writer    LedgerWriter
	extractor Extractor
	store     pending.Store
	settings  Settings

	recorder ExtractionRecorder
	mirrors  []ConfirmationMirror

	draft   *Pipeline
	preview *Pipeline
}

// Option configures optional collaborators.
type Option func(*Service)

// WithExtractionRecorder stores every raw model answer.
func WithExtractionRecorder(r ExtractionRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithMirrors copies confirmed transactions to each mirror.
func WithMirrors(mirrors ...ConfirmationMirror) Option {
	return func(s *Service) { s.mirrors = append(s.mirrors, mirrors...) }
}

// NewService wires the draft pipeline.
func NewService(source LedgerSource, writer LedgerWriter, extractor Extractor, store pending.Store, settings Settings, opts ...Option) *Service {
	if settings.Now == nil {
		settings.Now = time.Now
	}
	settings.Timezone = defaultString(settings.Timezone, DefaultTimezone)
	settings.DefaultCurrency = defaultString(settings.DefaultCurrency, DefaultCurrency)

	s := &Service{
		source:    source,
		writer:    writer,
		extractor: extractor,
		store:     store,
		settings:  settings,
	}
	for _, opt := range opts {
		opt(s)
	}

	resolver := matching.NewAccountResolver(settings.TokenMap, settings.DefaultAccountID)
	steps := []DraftStep{
		&LoadReferenceDataStep{Source: source},
		&ExtractStep{
			Extractor:       extractor,
			Recorder:        s.recorder,
			Timezone:        settings.Timezone,
			DefaultCurrency: settings.DefaultCurrency,
			Now:             settings.Now,
		},
		&SanitizeStep{
			Timezone:        settings.Timezone,
			DefaultCurrency: settings.DefaultCurrency,
			Now:             settings.Now,
		},
		&ResolveAccountStep{Resolver: resolver},
		&ResolveCategoryStep{},
		&BuildPendingStep{Now: settings.Now},
	}
	s.preview = NewPipeline(steps...)
	s.draft = NewPipeline(append(steps, &StorePendingStep{Store: store})...)

	return s
}

// Draft turns text into the conversation's pending transaction.
func (s *Service) Draft(ctx context.Context, conversationID int64, text string) (*domain.PendingTransaction, error) {
	state := &DraftState{ConversationID: conversationID, Text: text}
	if err := s.draft.Execute(ctx, state); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("draft_id", state.Pending.DraftID).
		Int64("account_id", state.Pending.AccountID).
		Float64("amount", state.Pending.Amount).
		Msg("Draft stored")
	return state.Pending, nil
}

// Preview runs the draft pipeline without storing anything.
func (s *Service) Preview(ctx context.Context, text string) (*domain.PendingTransaction, error) {
	state := &DraftState{Text: text}
	if err := s.preview.Execute(ctx, state); err != nil {
		return nil, err
	}
	return state.Pending, nil
}

// ConfirmResult is the outcome of a successful confirm.
type ConfirmResult struct {
	TransactionID int64
	Record        domain.TransactionRecord
	Pending       *domain.PendingTransaction

	// Warning is set when the status could not be enforced.
	Warning *PostProcessingWarning
}

// Confirm writes the pending draft to the ledger. On a failed insert the
// draft stays in place and a *PersistenceError is returned.
func (s *Service) Confirm(ctx context.Context, conversationID int64) (*ConfirmResult, error) {
	log := logger.FromContext(ctx)

	p, found, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("Confirm: load draft: %w", err)
	}
	if !found {
		return nil, ErrNoPending
	}

	rec := Assemble(p)
	id, err := s.writer.InsertTransaction(ctx, rec)
	if err == nil && id <= 0 {
		err = errors.New("ledger did not return a transaction id")
	}
	if err != nil {
		log.Error().Err(err).Str("draft_id", p.DraftID).Msg("Failed to insert transaction")
		return nil, &PersistenceError{Err: err}
	}

	if _, err := s.store.Clear(ctx, conversationID); err != nil {
		log.Warn().Err(err).Str("draft_id", p.DraftID).Msg("Failed to clear confirmed draft")
	}

	result := &ConfirmResult{TransactionID: id, Record: rec, Pending: p}
	if err := s.writer.SetStatus(ctx, id, domain.StatusUncleared); err != nil {
		result.Warning = &PostProcessingWarning{TransactionID: id, Err: err}
		log.Warn().Err(err).Int64("transaction_id", id).Msg("Failed to enforce transaction status")
	}

	log.Info().Int64("transaction_id", id).Str("draft_id", p.DraftID).Msg("Transaction saved")

	s.mirror(ctx, ConfirmedTransaction{
		Pending:        p,
		Record:         rec,
		LedgerID:       id,
		StatusEnforced: result.Warning == nil,
		ConfirmedAt:    s.settings.Now(),
	})

	return result, nil
}

func (s *Service) mirror(ctx context.Context, tx ConfirmedTransaction) {
	log := logger.FromContext(ctx)
	for _, m := range s.mirrors {
		if err := m.MirrorConfirmed(ctx, tx); err != nil {
			log.Warn().Err(err).Str("mirror", m.Name()).Int64("transaction_id", tx.LedgerID).Msg("Mirror failed")
		}
	}
}

// Cancel discards the pending draft and reports whether there was one.
func (s *Service) Cancel(ctx context.Context, conversationID int64) (bool, error) {
	existed, err := s.store.Clear(ctx, conversationID)
	if err != nil {
		return false, fmt.Errorf("Cancel: %w", err)
	}
	return existed, nil
}

// Accounts lists the manual accounts.
func (s *Service) Accounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.source.ListAccounts(ctx)
	if err != nil {
		return nil, &LedgerError{Op: "list accounts", Err: err}
	}
	return accounts, nil
}

// Categories lists the assignable categories.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.source.ListCategories(ctx)
	if err != nil {
		return nil, &LedgerError{Op: "list categories", Err: err}
	}
	return categories, nil
}

// Settings returns the effective settings.
func (s *Service) Settings() Settings {
	return s.settings
}
