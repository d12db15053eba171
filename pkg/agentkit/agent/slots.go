package agent

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/tinselworks/elfagent/pkg/agentkit/session"
)

var slotPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandSlots substitutes {slot_name} references in an instruction with
// the current session state. A slot that has no value yet expands to
// the empty string; ValidateSlots catches the statically detectable
// cases at build time, but an upstream agent that produced no output
// still leaves its slot unset at render time.
func ExpandSlots(instruction string, sess *session.Session) string {
	return slotPattern.ReplaceAllStringFunc(instruction, func(match string) string {
		name := match[1 : len(match)-1]

		if val, ok := sess.State(name); ok {
			return val
		}

		log.Warn().Str("slot", name).Msg("Instruction references an unset output slot")

		return ""
	})
}

// SlotRefs lists the slot names an instruction references, sorted and
// deduplicated.
func SlotRefs(instruction string) []string {
	seen := map[string]bool{}
	var refs []string

	for _, match := range slotPattern.FindAllStringSubmatch(instruction, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			refs = append(refs, match[1])
		}
	}

	sort.Strings(refs)

	return refs
}

// ValidateSlots checks, at build time, that every {slot} reference in
// the graph has exactly one producer positioned earlier in topological
// order. Within a sequential composition a node may read the slots of
// earlier siblings; parallel siblings may not read each other's slots
// and must declare disjoint output keys. An agent may also read slots
// produced by agents wrapped as its own tools, since those run within
// its turn and instructions are re-expanded per model call.
func ValidateSlots(root Agent) error {
	producers := map[string]string{}
	if err := collectProducers(root, producers); err != nil {
		return err
	}

	_, err := walkSlots(root, map[string]bool{})

	return err
}

// collectProducers rejects graphs where two agents write the same slot.
func collectProducers(node Agent, producers map[string]string) error {
	switch n := node.(type) {
	case *LLMAgent:
		if key := n.OutputKey(); key != "" {
			if prev, ok := producers[key]; ok {
				return fmt.Errorf("output slot %q has two producers: %s and %s", key, prev, n.Name())
			}
			producers[key] = n.Name()
		}
		for _, t := range n.Tools() {
			if at, ok := t.(*AgentTool); ok {
				if err := collectProducers(at.Agent(), producers); err != nil {
					return err
				}
			}
		}
	case *SequentialAgent:
		for _, sub := range n.SubAgents() {
			if err := collectProducers(sub, producers); err != nil {
				return err
			}
		}
	case *ParallelAgent:
		for _, sub := range n.SubAgents() {
			if err := collectProducers(sub, producers); err != nil {
				return err
			}
		}
	}

	return nil
}

// walkSlots returns the set of slots the subtree produces, validating
// references against the slots available when the subtree starts.
func walkSlots(node Agent, available map[string]bool) (map[string]bool, error) {
	produced := map[string]bool{}

	switch n := node.(type) {
	case *LLMAgent:
		// Slots written by wrapped agent tools become readable by this
		// agent mid-turn.
		visible := cloneSet(available)
		for _, t := range n.Tools() {
			if at, ok := t.(*AgentTool); ok {
				childProduced, err := walkSlots(at.Agent(), cloneSet(available))
				if err != nil {
					return nil, err
				}
				for key := range childProduced {
					visible[key] = true
					produced[key] = true
				}
			}
		}

		for _, ref := range SlotRefs(n.Instruction()) {
			if !visible[ref] {
				return nil, fmt.Errorf("agent %s references output slot %q with no earlier producer", n.Name(), ref)
			}
		}

		if key := n.OutputKey(); key != "" {
			produced[key] = true
		}

	case *SequentialAgent:
		current := cloneSet(available)
		for _, sub := range n.SubAgents() {
			childProduced, err := walkSlots(sub, current)
			if err != nil {
				return nil, err
			}
			for key := range childProduced {
				current[key] = true
				produced[key] = true
			}
		}

	case *ParallelAgent:
		// Each sibling sees only the slots available before the group
		// started; sibling outputs must be disjoint.
		owners := map[string]string{}
		for _, sub := range n.SubAgents() {
			childProduced, err := walkSlots(sub, cloneSet(available))
			if err != nil {
				return nil, err
			}
			for key := range childProduced {
				if owner, ok := owners[key]; ok {
					return nil, fmt.Errorf("parallel group %s: slot %q written by both %s and %s", n.Name(), key, owner, sub.Name())
				}
				owners[key] = sub.Name()
				produced[key] = true
			}
		}
	}

	return produced, nil
}

func cloneSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
