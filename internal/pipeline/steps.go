package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
	"github.com/dvloznov/manual-tx-bot/internal/logger"
	"github.com/dvloznov/manual-tx-bot/internal/matching"
	"github.com/dvloznov/manual-tx-bot/internal/pending"
)

// DraftStep is one stage of turning a message into a pending draft.
type DraftStep interface {
	Execute(ctx context.Context, state *DraftState) error
}

// DraftState is shared by all steps of one draft run.
type DraftState struct {
	ConversationID int64
	Text           string

	Accounts   []domain.Account
	Categories []domain.Category

	Raw      domain.ExtractionResult
	Fields   Fields
	Account  domain.Account
	Category *domain.Category

	Pending *domain.PendingTransaction
}

// LoadReferenceDataStep fetches accounts and categories concurrently.
type LoadReferenceDataStep struct {
	Source LedgerSource
}

func (s *LoadReferenceDataStep) Execute(ctx context.Context, state *DraftState) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		accounts, err := s.Source.ListAccounts(gctx)
		if err != nil {
			return &LedgerError{Op: "list accounts", Err: err}
		}
		state.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		categories, err := s.Source.ListCategories(gctx)
		if err != nil {
			return &LedgerError{Op: "list categories", Err: err}
		}
		state.Categories = categories
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if len(state.Accounts) == 0 {
		return ErrNoAccounts
	}
	return nil
}

// ExtractStep asks the model for the transaction fields.
type ExtractStep struct {
	Extractor       Extractor
	Recorder        ExtractionRecorder
	Timezone        string
	DefaultCurrency string
	Now             func() time.Time
}

func (s *ExtractStep) Execute(ctx context.Context, state *DraftState) error {
	now := s.Now()
	hints := ExtractionContext{
		Timezone:        defaultString(s.Timezone, DefaultTimezone),
		Today:           now.In(LoadLocation(ctx, s.Timezone)).Format(DateLayout),
		DefaultCurrency: defaultString(s.DefaultCurrency, DefaultCurrency),
		AccountLabels:   make([]string, 0, len(state.Accounts)),
		CategoryNames:   make([]string, 0, len(state.Categories)),
	}
	for _, a := range state.Accounts {
		hints.AccountLabels = append(hints.AccountLabels, a.Label)
	}
	for _, c := range state.Categories {
		hints.CategoryNames = append(hints.CategoryNames, c.Name)
	}

	raw, err := s.Extractor.Extract(ctx, state.Text, hints)
	if err != nil {
		return &ExtractionError{Err: err}
	}
	if raw == nil {
		return &ExtractionError{Err: fmt.Errorf("model returned no fields")}
	}
	state.Raw = raw

	if s.Recorder != nil {
		rec := ExtractionRecord{
			ConversationID: state.ConversationID,
			Text:           state.Text,
			Raw:            raw,
			CreatedAt:      now,
		}
		if n, ok := s.Extractor.(modelNamer); ok {
			rec.Model = n.ModelName()
		}
		if err := s.Recorder.RecordExtraction(ctx, rec); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("Failed to record model output")
		}
	}
	return nil
}

// SanitizeStep validates the model output.
type SanitizeStep struct {
	Timezone        string
	DefaultCurrency string
	Now             func() time.Time
}

func (s *SanitizeStep) Execute(ctx context.Context, state *DraftState) error {
	fields, err := SanitizeExtraction(ctx, state.Raw, SanitizeOptions{
		Timezone:        s.Timezone,
		DefaultCurrency: s.DefaultCurrency,
		Now:             s.Now(),
	})
	if err != nil {
		return err
	}
	state.Fields = fields

	log := logger.FromContext(ctx)
	ev := log.Debug().Strs("missing_fields", fields.Missing)
	if fields.Confidence != nil {
		ev = ev.Float64("confidence", *fields.Confidence)
	}
	ev.Msg("Model output sanitized")
	return nil
}

// ResolveAccountStep picks the account.
type ResolveAccountStep struct {
	Resolver *matching.AccountResolver
}

func (s *ResolveAccountStep) Execute(ctx context.Context, state *DraftState) error {
	acct, ok := s.Resolver.Resolve(state.Fields.Account, state.Text, state.Accounts)
	if !ok {
		return &ResolutionAmbiguousError{RawName: state.Fields.Account, Accounts: state.Accounts}
	}
	state.Account = acct
	return nil
}

// ResolveCategoryStep picks the category, if any.
type ResolveCategoryStep struct{}

func (s *ResolveCategoryStep) Execute(ctx context.Context, state *DraftState) error {
	if c, ok := matching.ResolveCategory(state.Fields.Category, state.Categories); ok {
		state.Category = &c
	}
	return nil
}

// BuildPendingStep assembles the draft from the resolved fields.
type BuildPendingStep struct {
	Now func() time.Time
}

func (s *BuildPendingStep) Execute(ctx context.Context, state *DraftState) error {
	p := &domain.PendingTransaction{
		DraftID:        uuid.NewString(),
		ConversationID: state.ConversationID,
		OriginalText:   state.Text,
		Date:           state.Fields.Date,
		Amount:         state.Fields.Amount,
		Currency:       state.Fields.Currency,
		Payee:          state.Fields.Payee,
		AccountID:      state.Account.ID,
		AccountLabel:   state.Account.Label,
		IsReceived:     state.Fields.IsReceived,
		CreatedAt:      s.Now(),
	}
	if state.Category != nil {
		id, name := state.Category.ID, state.Category.Name
		p.CategoryID = &id
		p.CategoryName = &name
	}
	state.Pending = p
	return nil
}

// StorePendingStep saves the draft, replacing any earlier one.
type StorePendingStep struct {
	Store pending.Store
}

func (s *StorePendingStep) Execute(ctx context.Context, state *DraftState) error {
	if err := s.Store.Set(ctx, state.ConversationID, state.Pending); err != nil {
		return fmt.Errorf("StorePendingStep: %w", err)
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []DraftStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...DraftStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *DraftState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("draft step %d failed: %w", i+1, err)
		}
	}
	return nil
}
