package golden

import "sort"

// Status classifies one artifact in a verification.
type Status string

const (
	StatusMatch           Status = "match"
	StatusContentMismatch Status = "content_mismatch"
	StatusMissing         Status = "missing"
	StatusUnexpected      Status = "unexpected"
)

// ArtifactOutcome is the verdict for one artifact path.
type ArtifactOutcome struct {
	Path          string `json:"path"`
	Status        Status `json:"status"`
	GoldenHash    string `json:"golden_hash,omitempty"`
	CandidateHash string `json:"candidate_hash,omitempty"`
}

// Verification records every artifact's outcome.
type Verification struct {
	Passed   bool              `json:"passed"`
	Outcomes []ArtifactOutcome `json:"outcomes"`
}

// Compare classifies each path in either set. Passed is true iff every path
// matches.
func Compare(golden, candidate map[string]string) Verification {
	paths := make(map[string]struct{}, len(golden)+len(candidate))
	for path := range golden {
		paths[path] = struct{}{}
	}
	for path := range candidate {
		paths[path] = struct{}{}
	}
	sorted := make([]string, 0, len(paths))
	for path := range paths {
		sorted = append(sorted, path)
	}
	sort.Strings(sorted)

	result := Verification{Passed: true, Outcomes: make([]ArtifactOutcome, 0, len(sorted))}
	for _, path := range sorted {
		want, inGolden := golden[path]
		got, inCandidate := candidate[path]
		outcome := ArtifactOutcome{Path: path, GoldenHash: want, CandidateHash: got}
		switch {
		case inGolden && !inCandidate:
			outcome.Status = StatusMissing
		case !inGolden && inCandidate:
			outcome.Status = StatusUnexpected
		case want != got:
			outcome.Status = StatusContentMismatch
		default:
			outcome.Status = StatusMatch
		}
		if outcome.Status != StatusMatch {
			result.Passed = false
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result
}

// Paths returns the artifact paths with the given status.
func (v Verification) Paths(status Status) []string {
	var out []string
	for _, outcome := range v.Outcomes {
		if outcome.Status == status {
			out = append(out, outcome.Path)
		}
	}
	return out
}
