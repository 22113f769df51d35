package core

import "fmt"

// Fact is an immutable subject-predicate-object triple of long-term
// knowledge. Facts have no identity beyond their content; the fact store
// is append-only and permits duplicates.
type Fact struct {
	Subject   string `yaml:"subject" json:"subject"`
	Predicate string `yaml:"predicate" json:"predicate"`
	Object    string `yaml:"object" json:"object"`
}

// MemoryString serializes the fact to the "subject predicate object" form
// used for embedding. The text form is discarded after indexing; retrieval
// reconstructs facts from metadata only.
func (f Fact) MemoryString() string {
	return fmt.Sprintf("%s %s %s", f.Subject, f.Predicate, f.Object)
}
