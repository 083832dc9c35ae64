package store

import "github.com/roach88/rxnenum/internal/ir"

// Run describes one enumeration run.
//
// Library holds the serialized library the run started from, positioned at
// StartStep. EndStep is exclusive; zero means the run walks until the
// library is exhausted. Worker and Workers record the partition the run
// owns when the range was split across processes.
type Run struct {
	ID        string
	Seq       int64
	Name      string
	Template  string
	Strategy  string
	Sizes     []int
	Library   []byte
	StartStep uint64
	EndStep   uint64
	Worker    int
	Workers   int
}

// Bounded reports whether the run stops at EndStep.
func (r Run) Bounded() bool {
	return r.EndStep > 0
}

// Checkpoint is a cursor state blob recorded at Step.
type Checkpoint struct {
	RunID     string
	Step      uint64
	State     []byte
	Exhausted bool
}

// ResultRecord is one stored enumeration step. Error is non-empty when the
// template failed at this step.
type ResultRecord struct {
	RunID  string
	Result ir.Result
	Digest string
	Error  string
}
