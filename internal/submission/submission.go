// Package submission models raw competitor uploads and performs the static
// checks that gate compilation: size ceilings, the import allow-list, the
// unsafe-API deny-list, and the exactly-one-implementation rule.
package submission

// File is one named source file of a submission.
type File struct {
	Name   string
	Source string
}

// Submission is a team's raw, not-yet-validated source. Immutable once
// handed to the validator.
type Submission struct {
	TeamName string
	Files    []File
}

// TotalBytes returns the combined source size.
func (s Submission) TotalBytes() int {
	total := 0
	for _, f := range s.Files {
		total += len(f.Source)
	}
	return total
}

// Limits bounds what a submission may contain.
type Limits struct {
	// MaxTotalBytes caps the combined size of all files.
	MaxTotalBytes int
}

// DefaultLimits allows up to 64 KiB of source per submission.
func DefaultLimits() Limits {
	return Limits{MaxTotalBytes: 64 * 1024}
}

// Result is the validator verdict: a flag plus ordered human-readable
// errors. A submission is never partially accepted.
type Result struct {
	Valid  bool
	Errors []string

	// TypeName is the single type implementing the capability contract,
	// set only when Valid.
	TypeName string
}
