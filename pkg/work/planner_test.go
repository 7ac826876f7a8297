package work

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/md2tex/pkg/digest"
	"github.com/fulmenhq/md2tex/pkg/guard"
	"github.com/fulmenhq/md2tex/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	root   string
	src    string
	outDir string
	reg    *registry.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "docs", "ADR")
	require.NoError(t, os.MkdirAll(src, 0o750))
	defaults := registry.DefaultsFor(root, src)
	return &fixture{root: root, src: src, outDir: defaults.OutDir, reg: registry.New(defaults)}
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.src, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// convert simulates a successful conversion and records it.
func (f *fixture) convert(t *testing.T, name, target, output string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o750))
	require.NoError(t, os.WriteFile(target, []byte(output), 0o600))
	in, err := digest.File(filepath.Join(f.src, name))
	require.NoError(t, err)
	f.reg.Record(name, registry.Entry{
		TexFilepath:   target,
		InputHash:     in,
		OutputHash:    digest.Bytes([]byte(output)),
		LastConverted: "1700000000",
	})
}

func (f *fixture) planner(t *testing.T, force bool) *Planner {
	t.Helper()
	zone, err := guard.NewZone(filepath.Join(f.root, guard.SourcesDir))
	require.NoError(t, err)
	return NewPlanner(PlannerConfig{
		Exclude: f.reg.Defaults.Exclude,
		OutDir:  f.outDir,
		Force:   force,
		Guard:   zone,
	})
}

func (f *fixture) plan(t *testing.T, force bool) *Plan {
	t.Helper()
	sources, err := Discover(f.src)
	require.NoError(t, err)
	plan, err := f.planner(t, force).Plan(sources, f.reg)
	require.NoError(t, err)
	return plan
}

func TestDiscover_FiltersAndSorts(t *testing.T) {
	f := newFixture(t)
	f.write(t, "b.md", "b")
	f.write(t, "a.md", "a")
	f.write(t, "notes.txt", "x")
	f.write(t, "UPPER.MD", "x")
	require.NoError(t, os.MkdirAll(filepath.Join(f.src, "dir.md"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(f.src, "nested"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(f.src, "nested", "c.md"), []byte("c"), 0o600))

	sources, err := Discover(f.src)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(f.src, "a.md"), filepath.Join(f.src, "b.md")}, sources)
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPlan_NewFilesUseNormalizedDefaultTarget(t *testing.T) {
	f := newFixture(t)
	f.write(t, "0002 Second Decision.md", "two")
	f.write(t, "0001-first.md", "one")

	plan := f.plan(t, false)
	require.Len(t, plan.Items, 2)
	assert.Equal(t, Item{
		Name:   "0001-first.md",
		Source: filepath.Join(f.src, "0001-first.md"),
		Target: filepath.Join(f.outDir, "0001-first.tex"),
		Reason: ReasonNew,
	}, plan.Items[0])
	assert.Equal(t, filepath.Join(f.outDir, "0002-second-decision.tex"), plan.Items[1].Target)
	assert.Equal(t, ReasonNew, plan.Items[1].Reason)
	assert.Equal(t, 2, plan.Candidates)
}

func TestPlan_UpToDateProducesNothing(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.md", "alpha")
	f.convert(t, "a.md", filepath.Join(f.outDir, "a.tex"), "\\section{alpha}")

	plan := f.plan(t, false)
	assert.True(t, plan.Empty())
	assert.Equal(t, []string{"a.md"}, plan.Skipped)
	assert.Equal(t, 1, plan.Candidates)
}

func TestPlan_ChangeDetection(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		f.write(t, name, "content of "+name)
		f.convert(t, name, filepath.Join(f.outDir, name+".tex"), "out "+name)
	}
	f.write(t, "b.md", "content of b.mD")

	plan := f.plan(t, false)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, "b.md", plan.Items[0].Name)
	assert.Equal(t, ReasonChanged, plan.Items[0].Reason)
	assert.Equal(t, []string{"a.md", "c.md"}, plan.Skipped)
}

func TestPlan_ArtifactTamperedOrMissing(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.md", "alpha")
	f.write(t, "b.md", "beta")
	targetA := filepath.Join(f.outDir, "a.tex")
	targetB := filepath.Join(f.outDir, "b.tex")
	f.convert(t, "a.md", targetA, "A")
	f.convert(t, "b.md", targetB, "B")

	require.NoError(t, os.WriteFile(targetA, []byte("hand edit"), 0o600))
	require.NoError(t, os.Remove(targetB))

	plan := f.plan(t, false)
	require.Len(t, plan.Items, 2)
	for _, item := range plan.Items {
		assert.Equal(t, ReasonChanged, item.Reason)
	}
}

func TestPlan_ReusesRecordedTarget(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.md", "alpha")
	custom := filepath.Join(f.root, "elsewhere", "custom-name.tex")
	f.convert(t, "a.md", custom, "A")
	f.write(t, "a.md", "alpha v2")

	f.outDir = filepath.Join(f.root, "moved")
	plan := f.plan(t, false)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, custom, plan.Items[0].Target)
}

func TestPlan_Exclusions(t *testing.T) {
	f := newFixture(t)
	f.write(t, "README.md", "readme")
	f.write(t, "draft-idea.md", "draft")
	f.write(t, "Draft-upper.md", "case sensitive")
	f.write(t, "final.md", "final")
	f.reg.Defaults.Exclude = append(f.reg.Defaults.Exclude, "[", "")

	plan := f.plan(t, false)
	names := make([]string, 0, len(plan.Items))
	for _, item := range plan.Items {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"Draft-upper.md", "final.md"}, names)
	assert.Equal(t, []string{"README.md", "draft-idea.md"}, plan.Excluded)
	assert.Equal(t, 2, plan.Candidates)
}

func TestPlan_GuardEnforcement(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.md", "alpha")
	f.write(t, "b.md", "beta")
	f.outDir = filepath.Join(f.root, "docs", "tex", "sources", "adr")

	refused := f.plan(t, false)
	assert.Empty(t, refused.Items)
	require.Len(t, refused.Diagnostics, 2)
	assert.Equal(t, "a.md", refused.Diagnostics[0].Name)
	assert.ErrorIs(t, refused.Diagnostics[0].Err, guard.ErrGuardViolation)
	assert.Contains(t, refused.Diagnostics[0].String(), filepath.Join(f.outDir, "a.tex"))

	forced := f.plan(t, true)
	require.Len(t, forced.Items, 2)
	assert.Empty(t, forced.Diagnostics)
}

func TestPlan_GuardRefusalDoesNotStopOtherItems(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.md", "alpha")
	f.write(t, "b.md", "beta")
	f.convert(t, "a.md", filepath.Join(f.root, "docs", "tex", "sources", "a.tex"), "A")
	f.write(t, "a.md", "alpha changed")

	plan := f.plan(t, false)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, "b.md", plan.Items[0].Name)
	require.Len(t, plan.Diagnostics, 1)
	assert.Equal(t, "a.md", plan.Diagnostics[0].Name)
}

func TestPlan_UnreadableSourceIsFatal(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.md", "alpha")

	_, err := f.planner(t, false).Plan([]string{filepath.Join(f.src, "ghost.md")}, f.reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost.md")
}

func TestDecide_SourceRemovedAfterDiscovery(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "a.md", "alpha")
	f.convert(t, "a.md", filepath.Join(f.outDir, "a.tex"), "A")
	require.NoError(t, os.Remove(path))

	d := f.planner(t, false).Decide(path, f.reg)
	assert.Equal(t, DecisionRecoverable, d.Kind)
	assert.ErrorIs(t, d.Err, ErrSourceMissing)
	assert.Equal(t, StateSourceMissing, d.Inspection.State)
	assert.Empty(t, d.Item.Target)

	plan, err := f.planner(t, false).Plan([]string{path}, f.reg)
	require.NoError(t, err)
	assert.True(t, plan.Empty())
	require.Len(t, plan.Diagnostics, 1)
	assert.Contains(t, plan.Diagnostics[0].String(), path)
}

func TestDecide_CarriesInspection(t *testing.T) {
	f := newFixture(t)
	f.write(t, "fresh.md", "fresh")
	f.write(t, "done.md", "done")
	f.write(t, "edited.md", "before")
	f.write(t, "README.md", "readme")
	f.convert(t, "done.md", filepath.Join(f.outDir, "done.tex"), "D")
	f.convert(t, "edited.md", filepath.Join(f.outDir, "edited.tex"), "E")
	f.write(t, "edited.md", "after")

	tests := []struct {
		name  string
		kind  DecisionKind
		state State
	}{
		{"fresh.md", DecisionBuild, StateUntracked},
		{"done.md", DecisionSkip, StateUpToDate},
		{"edited.md", DecisionBuild, StateSourceChanged},
		{"README.md", DecisionExcluded, ""},
	}
	planner := f.planner(t, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := planner.Decide(filepath.Join(f.src, tt.name), f.reg)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.state, d.Inspection.State)
			if tt.state != "" {
				assert.Equal(t, digest.Bytes([]byte(mustRead(t, filepath.Join(f.src, tt.name)))), d.Inspection.InputHash)
			}
		})
	}
}

func TestPlan_ExclusionGlobSyntax(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"draft-*", "draft-idea.md", true},
		{"{wip,tmp}-*.md", "wip-notes.md", true},
		{"{wip,tmp}-*.md", "tmp-notes.md", true},
		{"{wip,tmp}-*.md", "final-notes.md", false},
		{"0?-*.md", "01-intro.md", true},
		{"[!0-9]*.md", "01-intro.md", false},
		{"*.MD", "a.md", false},
		{`\*.md`, "*.md", true},
		{`\*.md`, "a.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			p := NewPlanner(PlannerConfig{Exclude: []string{tt.pattern}})
			assert.Equal(t, tt.want, p.excluded(tt.name))
		})
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path) // #nosec G304 -- test fixture
	require.NoError(t, err)
	return string(b)
}

func TestNormalizeName(t *testing.T) {
	p := NewPlanner(PlannerConfig{})
	tests := map[string]string{
		"Intro.md":              "intro",
		"My Great Chapter.md":   "my-great-chapter",
		"0001-ADR.v2.md":        "0001-adr.v2",
		"Ärger Über Umlaute.md": "ärger-über-umlaute",
	}
	for in, want := range tests {
		assert.Equal(t, want, p.NormalizeName(in), in)
	}
}

func TestDecisionKindString(t *testing.T) {
	assert.Equal(t, "recoverable", DecisionRecoverable.String())
	assert.Equal(t, "fatal", DecisionFatal.String())
	assert.Equal(t, "unknown", DecisionKind(99).String())
}
