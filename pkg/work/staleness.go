package work

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/md2tex/pkg/digest"
	"github.com/fulmenhq/md2tex/pkg/registry"
)

// State describes how a source file relates to its registry entry.
type State string

const (
	StateUpToDate        State = "up-to-date"
	StateUntracked       State = "untracked"
	StateSourceChanged   State = "source-changed"
	StateArtifactMissing State = "artifact-missing"
	StateArtifactChanged State = "artifact-changed"
	StateSourceMissing   State = "source-missing"
)

// Stale reports whether the state requires a conversion.
func (s State) Stale() bool {
	return s != StateUpToDate && s != StateSourceMissing
}

// Inspection is the staleness verdict for one source file.
type Inspection struct {
	State       State
	InputHash   string
	HasEntry    bool
	Entry       registry.Entry
	ArtifactAbs string
}

// Inspect compares a source file and its recorded artifact against the registry
// entry. An entry is trusted only while the source digest equals the recorded input
// hash and the artifact exists with a digest equal to the recorded output hash.
func Inspect(sourcePath string, entry registry.Entry, hasEntry bool) (Inspection, error) {
	insp := Inspection{HasEntry: hasEntry, Entry: entry}

	sum, err := digest.File(sourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && hasEntry {
			insp.State = StateSourceMissing
			return insp, nil
		}
		return insp, err
	}
	insp.InputHash = sum

	if !hasEntry {
		insp.State = StateUntracked
		return insp, nil
	}

	artifact, err := filepath.Abs(entry.TexFilepath)
	if err != nil {
		return insp, fmt.Errorf("resolve artifact %s: %w", entry.TexFilepath, err)
	}
	insp.ArtifactAbs = artifact

	if entry.InputHash != sum {
		insp.State = StateSourceChanged
		return insp, nil
	}

	outSum, err := digest.File(artifact)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			insp.State = StateArtifactMissing
			return insp, nil
		}
		return insp, err
	}
	if outSum != entry.OutputHash {
		insp.State = StateArtifactChanged
		return insp, nil
	}

	insp.State = StateUpToDate
	return insp, nil
}
