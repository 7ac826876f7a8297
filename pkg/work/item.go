package work

import "fmt"

// Reason tags why a source file needs converting.
type Reason string

const (
	// ReasonNew marks a source with no registry entry.
	ReasonNew Reason = "new"
	// ReasonChanged marks a source whose entry no longer matches the files on disk.
	ReasonChanged Reason = "changed"
)

// Item is one planned conversion. Items live for a single run and are never persisted.
type Item struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Target string `json:"target"`
	Reason Reason `json:"reason"`
}

func (i Item) String() string {
	return fmt.Sprintf("%s -> %s", i.Name, i.Target)
}

// DecisionKind classifies the outcome of planning one candidate.
type DecisionKind int

const (
	// DecisionBuild means the candidate produced a work item.
	DecisionBuild DecisionKind = iota
	// DecisionSkip means the candidate is up to date.
	DecisionSkip
	// DecisionExcluded means an exclusion glob matched the candidate.
	DecisionExcluded
	// DecisionRecoverable means the candidate was dropped with a diagnostic; planning continues.
	DecisionRecoverable
	// DecisionFatal means planning cannot continue.
	DecisionFatal
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionBuild:
		return "build"
	case DecisionSkip:
		return "skip"
	case DecisionExcluded:
		return "excluded"
	case DecisionRecoverable:
		return "recoverable"
	case DecisionFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Decision is the result of planning one candidate source file. Recoverable and
// Fatal outcomes both carry an error; only Fatal aborts the plan.
type Decision struct {
	Kind DecisionKind
	Name string
	Item Item
	Err  error
	// Inspection is the staleness check behind the decision; zero for excluded
	// candidates and for fatal inspection errors.
	Inspection Inspection
}

// Build wraps a planned item.
func Build(item Item) Decision { return Decision{Kind: DecisionBuild, Name: item.Name, Item: item} }

// Skip records an up-to-date candidate.
func Skip(name string) Decision { return Decision{Kind: DecisionSkip, Name: name} }

// Excluded records a candidate filtered by an exclusion glob.
func Excluded(name string) Decision { return Decision{Kind: DecisionExcluded, Name: name} }

// Recoverable drops a candidate with a diagnostic.
func Recoverable(name string, err error) Decision {
	return Decision{Kind: DecisionRecoverable, Name: name, Err: err}
}

// Fatal aborts planning.
func Fatal(name string, err error) Decision {
	return Decision{Kind: DecisionFatal, Name: name, Err: err}
}

// Diagnostic is a recoverable problem reported for one candidate.
type Diagnostic struct {
	Name string
	Err  error
}

func (d Diagnostic) String() string {
	return d.Err.Error()
}

// Plan is the ordered result of planning a source directory.
type Plan struct {
	// Items are the conversions to perform, in lexicographic source-name order.
	Items []Item
	// Candidates counts sources left after exclusions.
	Candidates int
	// Skipped lists up-to-date source names.
	Skipped []string
	// Excluded lists source names matched by an exclusion glob.
	Excluded []string
	// Diagnostics holds recoverable per-item problems such as guard refusals.
	Diagnostics []Diagnostic
}

// Empty reports whether nothing needs converting.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Items) == 0
}
