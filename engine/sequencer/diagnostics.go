package sequencer

import (
	"github.com/synapz-learn/signavatar/engine/signs"
)

// maxIssues bounds the recent-issue log kept alongside the counters.
const maxIssues = 64

// IssueKind classifies a content problem absorbed during submission or playback.
type IssueKind string

const (
	IssueMissingJoint    IssueKind = "missing_joint"
	IssueMissingProperty IssueKind = "missing_property"
	IssueMalformed       IssueKind = "malformed_instruction"
	IssueUnmappedToken   IssueKind = "unmapped_token"
	IssueUnmappedChar    IssueKind = "unmapped_character"
)

// Issue records one absorbed problem.
type Issue struct {
	Kind        IssueKind          `json:"kind"`
	Token       string             `json:"token,omitempty"`
	Instruction *signs.Instruction `json:"instruction,omitempty"`
	Detail      string             `json:"detail,omitempty"`
}

// Diagnostics counts problems that playback absorbed instead of failing.
// Counters accumulate until ResetDiagnostics is called.
type Diagnostics struct {
	MissingJoints     int     `json:"missing_joints"`
	MissingProperties int     `json:"missing_properties"`
	Malformed         int     `json:"malformed_instructions"`
	UnmappedTokens    int     `json:"unmapped_tokens"`
	UnmappedChars     int     `json:"unmapped_characters"`
	Preempted         int     `json:"preempted_sequences"`
	Issues            []Issue `json:"issues,omitempty"`
}

// Degraded reports whether any signing content was skipped.
func (d Diagnostics) Degraded() bool {
	return d.MissingJoints+d.MissingProperties+d.Malformed+d.UnmappedTokens+d.UnmappedChars > 0
}

func (d *Diagnostics) record(issue Issue) {
	switch issue.Kind {
	case IssueMissingJoint:
		d.MissingJoints++
	case IssueMissingProperty:
		d.MissingProperties++
	case IssueMalformed:
		d.Malformed++
	case IssueUnmappedToken:
		d.UnmappedTokens++
	case IssueUnmappedChar:
		d.UnmappedChars++
	}

	if len(d.Issues) == maxIssues {
		copy(d.Issues, d.Issues[1:])
		d.Issues = d.Issues[:maxIssues-1]
	}
	d.Issues = append(d.Issues, issue)
}

func (d Diagnostics) clone() Diagnostics {
	d.Issues = append([]Issue(nil), d.Issues...)
	return d
}

// Report summarizes one Submit call.
type Report struct {
	// Ignored is true when the text held no tokens and nothing changed.
	Ignored bool `json:"ignored"`

	// Preempted is true when the submission replaced a sequence still in progress.
	Preempted bool `json:"preempted"`

	Tokens int `json:"tokens"`
	Units  int `json:"units"`

	// UnmappedTokens lists tokens with no word entry and no letter entry for any character.
	UnmappedTokens []string `json:"unmapped_tokens,omitempty"`

	// UnmappedChars lists characters of fingerspelled tokens with no letter entry.
	UnmappedChars []string `json:"unmapped_characters,omitempty"`
}
