// ABOUTME: Tier 1 strategy backed by a cheap text model.
// ABOUTME: Builds a text-only prompt, requests a JSON action array at temperature 0, and parses tolerantly.
package strategy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"

	"github.com/2389-research/gauntlet/llm"
	"github.com/2389-research/gauntlet/solver"
)

const proposalMaxTokens = 512

// Completer is the slice of llm.Client the tiers need.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Model is the tier-1 strategy. It asks a fast text model for an action list
// given the instruction and the observed elements. Unparseable or empty
// replies produce an empty proposal so the engine can escalate; only
// transport failures surface as errors.
type Model struct {
	client Completer
	model  string
	logf   func(format string, args ...any)
}

// NewModel creates the tier-1 strategy on the given client and model name.
func NewModel(client Completer, model string) *Model {
	return &Model{client: client, model: model, logf: log.Printf}
}

// Tier identifies this strategy as tier 1.
func (m *Model) Tier() solver.Tier {
	return solver.TierModel
}

// Propose asks the model for actions. Temperature is pinned to 0 so a retry
// on the same page state reproduces the same proposal.
func (m *Model) Propose(ctx context.Context, state solver.PageState, hist *solver.History) ([]solver.Action, error) {
	req := llm.Request{
		Model: m.model,
		Messages: []llm.Message{
			llm.SystemMessage(actionSystemPrompt),
			llm.UserMessage(buildStepPrompt(state)),
		},
		Temperature: llm.Float64Ptr(0),
		MaxTokens:   llm.IntPtr(proposalMaxTokens),
	}

	resp, err := m.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	actions := ParseActions(resp.TextContent(), state)
	m.logf("component=strategy tier=model step=%d instr=%s elements=%d history=%d actions=%d",
		state.Step, instructionHash(state.Instruction), len(state.Elements), histLen(hist), len(actions))
	return actions, nil
}

// instructionHash is a short stable digest so log lines can be correlated
// with recorded attempts without reprinting the full instruction.
func instructionHash(instruction string) string {
	sum := sha256.Sum256([]byte(instruction))
	return hex.EncodeToString(sum[:4])
}

func histLen(hist *solver.History) int {
	if hist == nil {
		return 0
	}
	return hist.Len()
}
