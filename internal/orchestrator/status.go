package orchestrator

import (
	"errors"
	"path/filepath"
	"sort"

	"github.com/fulmenhq/md2tex/pkg/guard"
	"github.com/fulmenhq/md2tex/pkg/registry"
	"github.com/fulmenhq/md2tex/pkg/work"
)

// Status describes one source document as the next build would see it.
type Status struct {
	Name          string     `json:"name"`
	State         work.State `json:"state"`
	Target        string     `json:"target,omitempty"`
	LastConverted string     `json:"last_converted,omitempty"`
	// Refused is set when the target lies in the protected zone and force is off.
	Refused bool `json:"refused,omitempty"`
}

func statuses(sources []string, reg *registry.Registry, planner *work.Planner) ([]Status, error) {
	seen := make(map[string]bool, len(sources))
	var out []Status
	for _, src := range sources {
		name := filepath.Base(src)
		seen[name] = true

		d := planner.Decide(src, reg)
		switch d.Kind {
		case work.DecisionExcluded:
			continue
		case work.DecisionFatal:
			return nil, d.Err
		}

		entry := d.Inspection.Entry
		st := Status{Name: name, State: d.Inspection.State, Target: entry.TexFilepath, LastConverted: entry.LastConverted}
		switch d.Kind {
		case work.DecisionBuild:
			st.Target = d.Item.Target
		case work.DecisionRecoverable:
			var violation *guard.ViolationError
			if errors.As(d.Err, &violation) {
				st.Refused = true
				st.Target = violation.Target
			}
		}
		out = append(out, st)
	}

	// Entries whose source disappeared stay in the registry until rebuilt.
	for _, name := range reg.Names() {
		if seen[name] {
			continue
		}
		entry, _ := reg.Lookup(name)
		out = append(out, Status{
			Name:          name,
			State:         work.StateSourceMissing,
			Target:        entry.TexFilepath,
			LastConverted: entry.LastConverted,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
