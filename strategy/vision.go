// ABOUTME: Tier 2 strategy backed by a vision-capable model.
// ABOUTME: Attaches a screenshot and the failure history, sampling warmer to break out of repeated misses.
package strategy

import (
	"context"
	"log"

	"github.com/2389-research/gauntlet/llm"
	"github.com/2389-research/gauntlet/solver"
)

const visionTemperature = 0.7

// Screenshotter captures the current surface as an image. The browser session
// implements this; tests substitute a closure-backed fake.
type Screenshotter interface {
	Screenshot(ctx context.Context) (data []byte, mediaType string, err error)
}

// Vision is the tier-2 strategy for steps the cheaper tiers could not crack.
// It sends the page image alongside the accumulated failure history and samples
// at a higher temperature so consecutive proposals actually differ. When the
// screenshot call fails the tier still proposes from text alone.
type Vision struct {
	client  Completer
	model   string
	shooter Screenshotter
	logf    func(format string, args ...any)
}

// NewVision creates the tier-2 strategy. A nil shooter disables image input
// and the tier runs text-only.
func NewVision(client Completer, model string, shooter Screenshotter) *Vision {
	return &Vision{client: client, model: model, shooter: shooter, logf: log.Printf}
}

// Tier identifies this strategy as tier 2.
func (v *Vision) Tier() solver.Tier {
	return solver.TierVision
}

// Propose asks the vision model for actions, attaching a screenshot when one
// can be captured.
func (v *Vision) Propose(ctx context.Context, state solver.PageState, hist *solver.History) ([]solver.Action, error) {
	parts := []llm.ContentPart{llm.TextPart(buildRetryPrompt(state, hist))}

	if v.shooter != nil {
		data, mediaType, err := v.shooter.Screenshot(ctx)
		if err != nil {
			v.logf("component=strategy tier=vision step=%d screenshot=failed err=%v", state.Step, err)
		} else if len(data) > 0 {
			parts = append(parts, llm.ImageDataPart(data, mediaType))
		}
	}

	req := llm.Request{
		Model: v.model,
		Messages: []llm.Message{
			llm.SystemMessage(actionSystemPrompt),
			llm.UserMessageWithParts(parts...),
		},
		Temperature: llm.Float64Ptr(visionTemperature),
		MaxTokens:   llm.IntPtr(proposalMaxTokens),
	}

	resp, err := v.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	actions := ParseActions(resp.TextContent(), state)
	v.logf("component=strategy tier=vision step=%d instr=%s elements=%d history=%d image=%t actions=%d",
		state.Step, instructionHash(state.Instruction), len(state.Elements), histLen(hist), len(parts) > 1, len(actions))
	return actions, nil
}
