package extraction

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jonathan/competition-radar/internal/types"
)

// States of one item's extraction.
const (
	StateInit                   = "INIT"
	StateTextExtracted          = "TEXT_EXTRACTED"
	StateImageExtractedPrimary  = "IMAGE_EXTRACTED_PRIMARY"
	StateImageExtractedFallback = "IMAGE_EXTRACTED_FALLBACK"
	StateValidated              = "VALIDATED"
)

// Validator checks canonical fields against the competition schema.
type Validator interface {
	Validate(doc any) error
	ValidateField(field string, value any) error
}

// Orchestrator runs the fixed provider sequence for one item: text, primary image, then the
// fallback image provider only when the primary answer is unusable.
type Orchestrator struct {
	text      Provider
	primary   Provider
	fallback  Provider
	validator Validator
	logger    *slog.Logger
}

// NewOrchestrator wires the three providers. text and fallback may be nil.
func NewOrchestrator(text, primary, fallback Provider, validator Validator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		text:      text,
		primary:   primary,
		fallback:  fallback,
		validator: validator,
		logger:    logger.With("component", "extraction"),
	}
}

// accumulator collects fields with first-writer-wins precedence.
type accumulator struct {
	fields     types.Fields
	provenance map[types.Field]types.ProviderID
}

func (a *accumulator) merge(src types.Fields, from types.ProviderID) []types.Field {
	filled := a.fields.FillFrom(&src)
	for _, field := range filled {
		a.provenance[field] = from
	}
	return filled
}

// Extract never fails; provider failures are logged and the item keeps whatever the other
// providers supplied.
func (o *Orchestrator) Extract(ctx context.Context, in Input) types.ExtractionResult {
	acc := &accumulator{provenance: map[types.Field]types.ProviderID{}}
	state := StateInit
	log := o.logger.With("record_id", in.RecordID)

	if o.text != nil && strings.TrimSpace(in.Text) != "" {
		if f, err := o.call(ctx, o.text, in); err != nil {
			o.logFailure(log, err)
		} else {
			filled := acc.merge(f, o.text.ID())
			log.Debug("merged provider output", "provider", o.text.ID(), "filled", filled)
		}
		state = StateTextExtracted
	}

	needFallback := true
	if o.primary != nil {
		f, err := o.call(ctx, o.primary, in)
		if err == nil {
			err = o.check(o.primary.ID(), in.RecordID, f)
		}
		if err != nil {
			o.logFailure(log, err)
		} else {
			needFallback = false
			filled := acc.merge(f, o.primary.ID())
			log.Debug("merged provider output", "provider", o.primary.ID(), "filled", filled)
			state = StateImageExtractedPrimary
		}
	}

	if needFallback && o.fallback != nil {
		if f, err := o.call(ctx, o.fallback, in); err != nil {
			o.logFailure(log, err)
		} else {
			filled := acc.merge(f, o.fallback.ID())
			log.Debug("merged provider output", "provider", o.fallback.ID(), "filled", filled)
			state = StateImageExtractedFallback
		}
	}

	partial := o.settle(log, acc)
	log.Info("extraction finished", "last_state", state, "fields", len(acc.fields.Present()), "partial", partial)

	return types.ExtractionResult{
		RecordID:   in.RecordID,
		Fields:     acc.fields,
		Provenance: acc.provenance,
		FinalState: StateValidated,
		Partial:    partial,
	}
}

func (o *Orchestrator) call(ctx context.Context, p Provider, in Input) (types.Fields, error) {
	raw, err := p.Extract(ctx, in)
	if err != nil {
		return types.Fields{}, &ProviderError{Provider: string(p.ID()), RecordID: in.RecordID, Message: "call failed", Cause: err}
	}
	return raw.Normalize(), nil
}

func (o *Orchestrator) check(id types.ProviderID, recordID int64, f types.Fields) error {
	if o.validator == nil {
		return nil
	}
	if err := o.validator.Validate(f); err != nil {
		return &ProviderError{Provider: string(id), RecordID: recordID, Message: "output failed schema validation", Cause: err}
	}
	return nil
}

// settle validates the accumulator as a whole. When that fails, every field is checked on its
// own and the failing ones are dropped. Reports whether the whole-record check failed.
func (o *Orchestrator) settle(log *slog.Logger, acc *accumulator) bool {
	if o.validator == nil || acc.fields.IsEmpty() {
		return false
	}
	err := o.validator.Validate(acc.fields)
	if err == nil {
		return false
	}

	var dropped []types.Field
	for _, field := range acc.fields.Present() {
		if ferr := o.validator.ValidateField(string(field), acc.fields.Value(field)); ferr != nil {
			acc.fields.Clear(field)
			delete(acc.provenance, field)
			dropped = append(dropped, field)
		}
	}
	log.Warn("keeping individually valid fields", "dropped", dropped, "error", err)
	return true
}

func (o *Orchestrator) logFailure(log *slog.Logger, err error) {
	provider := ""
	var pe *ProviderError
	if errors.As(err, &pe) {
		provider = pe.Provider
	}
	log.Warn("provider contributed nothing", "provider", provider, "category", "ProviderError", "error", err)
}
