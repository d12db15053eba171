// Package gate implements the human-in-the-loop confirmation checkpoint.
package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tinselworks/elfagent/pkg/agentkit/session"
	"github.com/tinselworks/elfagent/pkg/agentkit/tool"
)

// ToolName is the key confirmation decisions are recorded under.
const ToolName = "ask_confirmation"

// ErrEmptyQuery is returned when the gate is invoked without a query.
var ErrEmptyQuery = errors.New("no query available")

type confirmArgs struct {
	Query string `json:"query"`
}

type confirmResult struct {
	Status  string `json:"status"`
	Query   string `json:"query,omitempty"`
	Message string `json:"message"`
}

// NewConfirmationTool builds the ask_confirmation tool. First call with
// no recorded decision records a pending request and returns a pending
// status without performing anything; once an external actor resolves
// the request, the next call consumes the decision and reports it. The
// calling agent must not re-ask after a resolution.
func NewConfirmationTool() tool.Tool {
	parameters := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The query or product list to show the user for approval",
			},
		},
		"required": []string{"query"},
	}

	return tool.Define(
		ToolName,
		"Ask the user to confirm the pending search before it runs. The conversation pauses until the user decides.",
		parameters,
		execute,
	)
}

func execute(ctx context.Context, tctx *tool.Context, args string) (string, error) {
	var parsed confirmArgs
	if args != "" {
		if err := json.Unmarshal([]byte(args), &parsed); err != nil {
			return "", fmt.Errorf("invalid confirmation arguments: %w", err)
		}
	}

	if parsed.Query == "" {
		return "", ErrEmptyQuery
	}

	conf, resolved := tctx.Confirmation()
	if !resolved {
		tctx.RequestConfirmation(
			fmt.Sprintf("Can I search offers for these products?: %s", parsed.Query),
			parsed.Query,
		)

		return marshal(confirmResult{
			Status:  string(session.ConfirmationPending),
			Message: "Waiting for user confirmation",
		})
	}

	// A resolved decision is consumed exactly once.
	tctx.Session.ClearConfirmation(tctx.ToolName)

	if conf.Status == session.ConfirmationApproved {
		return marshal(confirmResult{
			Status:  string(session.ConfirmationApproved),
			Query:   parsed.Query,
			Message: "User confirmed the query.",
		})
	}

	return marshal(confirmResult{
		Status:  string(session.ConfirmationRejected),
		Message: "User rejected the query.",
	})
}

func marshal(result confirmResult) (string, error) {
	out, err := json.Marshal(result)
	if err != nil {
		return "", err
	}

	return string(out), nil
}
