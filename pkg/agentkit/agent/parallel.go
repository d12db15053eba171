package agent

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ParallelAgent runs all children concurrently against the same input
// and joins on completion: the composition finishes only once every
// child has finished. Children must write disjoint output slots and
// must not read each other's slots; ValidateSlots enforces both at
// build time. The joined response labels each child's output by name.
type ParallelAgent struct {
	name        string
	description string
	subAgents   []Agent
}

func NewParallel(name, description string, subAgents ...Agent) *ParallelAgent {
	return &ParallelAgent{
		name:        name,
		description: description,
		subAgents:   subAgents,
	}
}

func (a *ParallelAgent) Name() string        { return a.name }
func (a *ParallelAgent) Description() string { return a.description }
func (a *ParallelAgent) SubAgents() []Agent  { return a.subAgents }

func (a *ParallelAgent) Run(ctx context.Context, inv *Invocation) (string, error) {
	results := make([]string, len(a.subAgents))

	g, gctx := errgroup.WithContext(ctx)

	for i, sub := range a.subAgents {
		g.Go(func() error {
			out, err := sub.Run(gctx, inv)
			if err != nil {
				return err
			}

			results[i] = out

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	var joined strings.Builder
	for i, sub := range a.subAgents {
		if i > 0 {
			joined.WriteString("\n\n")
		}
		fmt.Fprintf(&joined, "%s: %s", sub.Name(), results[i])
	}

	return joined.String(), nil
}
