package agent

import (
	"context"
)

// SequentialAgent runs its children in declaration order. Child N+1
// never starts before child N has returned, which also means child N's
// output slot is written by then. The composition's final response is
// the last child's.
type SequentialAgent struct {
	name        string
	description string
	subAgents   []Agent
}

func NewSequential(name, description string, subAgents ...Agent) *SequentialAgent {
	return &SequentialAgent{
		name:        name,
		description: description,
		subAgents:   subAgents,
	}
}

func (a *SequentialAgent) Name() string        { return a.name }
func (a *SequentialAgent) Description() string { return a.description }
func (a *SequentialAgent) SubAgents() []Agent  { return a.subAgents }

func (a *SequentialAgent) Run(ctx context.Context, inv *Invocation) (string, error) {
	var final string

	for _, sub := range a.subAgents {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := sub.Run(ctx, inv)
		if err != nil {
			return "", err
		}

		final = out
	}

	return final, nil
}
