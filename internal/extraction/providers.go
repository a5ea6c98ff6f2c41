package extraction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonathan/competition-radar/internal/llm"
	"github.com/jonathan/competition-radar/internal/types"
)

// Input is what the orchestrator knows about one record before extraction.
type Input struct {
	RecordID  int64
	Text      string
	PosterURL string
}

// Provider extracts raw fields for one record.
type Provider interface {
	ID() types.ProviderID
	Extract(ctx context.Context, in Input) (RawOutput, error)
}

// TextProvider asks a language model to read the post body.
type TextProvider struct {
	Client llm.Client
	Tier   llm.ModelTier
	Schema llm.ExtractionSchema
	Now    func() time.Time
}

// NewTextProvider creates the text provider on the standard tier.
func NewTextProvider(client llm.Client) *TextProvider {
	return &TextProvider{Client: client, Tier: llm.TierStandard, Schema: llm.CompetitionSchema(), Now: time.Now}
}

func (p *TextProvider) ID() types.ProviderID { return types.ProviderText }

func (p *TextProvider) Extract(ctx context.Context, in Input) (RawOutput, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, errors.New("no body text")
	}
	prompt := llm.BuildExtractionPrompt(p.Schema, in.Text, p.Now())
	resp, err := p.Client.GenerateJSON(ctx, prompt, p.Tier)
	if err != nil {
		return nil, err
	}
	return Decode(p.ID(), resp)
}

// ImageProvider asks a vision model to read the poster.
type ImageProvider struct {
	Kind   types.ProviderID
	Client llm.VisionClient
	Tier   llm.ModelTier
	Schema llm.ExtractionSchema
	Now    func() time.Time
}

// NewImageProvider creates a poster reader registered under id, using the vision tier.
func NewImageProvider(id types.ProviderID, client llm.VisionClient) *ImageProvider {
	return &ImageProvider{Kind: id, Client: client, Tier: llm.TierVision, Schema: llm.CompetitionSchema(), Now: time.Now}
}

func (p *ImageProvider) ID() types.ProviderID { return p.Kind }

func (p *ImageProvider) Extract(ctx context.Context, in Input) (RawOutput, error) {
	if strings.TrimSpace(in.PosterURL) == "" {
		return nil, errors.New("no poster url")
	}
	prompt := llm.BuildImagePrompt(p.Schema, p.Now())
	resp, err := p.Client.GenerateJSONFromImage(ctx, prompt, in.PosterURL, p.Tier)
	if err != nil {
		return nil, err
	}
	return Decode(p.ID(), resp)
}
