package work

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/md2tex/pkg/logger"
	"github.com/fulmenhq/md2tex/pkg/registry"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SourceExt is the extension of convertible source documents.
const SourceExt = ".md"

// TargetExt is the extension of generated artifacts.
const TargetExt = ".tex"

// ErrSourceMissing is reported for a tracked source that disappeared while planning.
var ErrSourceMissing = errors.New("source file disappeared")

// Guard decides whether a target may be written. It returns a non-nil error for
// targets that must be refused.
type Guard interface {
	Check(path string, force bool) error
}

// PlannerConfig configures the work planner
type PlannerConfig struct {
	// Exclude holds file-name globs; a match drops the candidate.
	Exclude []string
	// OutDir is where targets of untracked sources are placed.
	OutDir string
	// Force permits targets inside the protected zone.
	Force bool
	// Guard is consulted for every resolved target; nil allows everything.
	Guard Guard
}

// Planner computes the minimal set of conversions for a source directory.
type Planner struct {
	config PlannerConfig
	lower  cases.Caser
}

// NewPlanner creates a new work planner
func NewPlanner(config PlannerConfig) *Planner {
	return &Planner{config: config, lower: cases.Lower(language.Und)}
}

// Discover lists convertible sources directly inside dir (non-recursive), sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	// os.ReadDir returns entries sorted by file name.
	var sources []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) != SourceExt {
			continue
		}
		path := filepath.Join(dir, e.Name())
		st, err := os.Stat(path)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		sources = append(sources, path)
	}
	return sources, nil
}

// Plan evaluates every source in order and collects the resulting decisions.
// A fatal decision aborts the plan and is returned as the error.
func (p *Planner) Plan(sources []string, reg *registry.Registry) (*Plan, error) {
	plan := &Plan{}
	for _, src := range sources {
		d := p.Decide(src, reg)
		switch d.Kind {
		case DecisionBuild:
			plan.Candidates++
			plan.Items = append(plan.Items, d.Item)
		case DecisionSkip:
			plan.Candidates++
			plan.Skipped = append(plan.Skipped, d.Name)
		case DecisionExcluded:
			plan.Excluded = append(plan.Excluded, d.Name)
		case DecisionRecoverable:
			plan.Candidates++
			plan.Diagnostics = append(plan.Diagnostics, Diagnostic{Name: d.Name, Err: d.Err})
			logger.Debug("candidate dropped", logger.String("source", d.Name), logger.Err(d.Err))
		case DecisionFatal:
			return nil, d.Err
		}
	}
	logger.Debug("plan computed",
		logger.Int("items", len(plan.Items)),
		logger.Int("skipped", len(plan.Skipped)),
		logger.Int("excluded", len(plan.Excluded)),
		logger.Int("diagnostics", len(plan.Diagnostics)))
	return plan, nil
}

// Decide plans a single source file.
func (p *Planner) Decide(source string, reg *registry.Registry) Decision {
	name := filepath.Base(source)
	if p.excluded(name) {
		return Excluded(name)
	}

	entry, hasEntry := reg.Lookup(name)
	insp, err := Inspect(source, entry, hasEntry)
	if err != nil {
		return Fatal(name, err)
	}
	d := p.decide(source, name, insp)
	d.Inspection = insp
	return d
}

func (p *Planner) decide(source, name string, insp Inspection) Decision {
	hasEntry := insp.HasEntry
	switch insp.State {
	case StateUpToDate:
		return Skip(name)
	case StateSourceMissing:
		// Removed after discovery; there is nothing to convert and no target to write.
		return Recoverable(name, fmt.Errorf("%w: %s", ErrSourceMissing, source))
	}

	var target string
	if hasEntry {
		// Keep a previously chosen location even if the defaults moved since.
		target = insp.ArtifactAbs
	} else {
		outDir, err := filepath.Abs(p.config.OutDir)
		if err != nil {
			return Fatal(name, fmt.Errorf("resolve output dir %s: %w", p.config.OutDir, err))
		}
		target = filepath.Join(outDir, p.NormalizeName(name)+TargetExt)
	}

	if p.config.Guard != nil {
		if err := p.config.Guard.Check(target, p.config.Force); err != nil {
			return Recoverable(name, err)
		}
	}

	reason := ReasonNew
	if hasEntry {
		reason = ReasonChanged
	}
	return Build(Item{Name: name, Source: source, Target: target, Reason: reason})
}

// NormalizeName maps a source file name to its artifact stem: extension removed,
// spaces replaced with hyphens, lower-cased.
func (p *Planner) NormalizeName(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return p.lower.String(strings.ReplaceAll(stem, " ", "-"))
}

// excluded matches the bare file name against the exclusion globs, case-sensitively.
func (p *Planner) excluded(name string) bool {
	for _, pat := range p.config.Exclude {
		ok, err := doublestar.Match(pat, name)
		if err != nil {
			logger.Warn(fmt.Sprintf("ignoring invalid exclude pattern %q: %v", pat, err))
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
