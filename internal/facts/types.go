// Package facts extracts structured facts from assistant turns and persists
// them per session, so later turns can recall what was built without
// replaying the full conversation history.
package facts

import "time"

// Type classifies what kind of fact was extracted.
type Type string

const (
	TypeFileCreated   Type = "file_created"
	TypeFunctionAdded Type = "function_added"
	TypeClassAdded    Type = "class_added"
	TypeErrorFixed    Type = "error_fixed"
	TypeDecisionMade  Type = "decision_made"
)

// Fact is one structured observation pulled out of an assistant message.
type Fact struct {
	Type      Type
	Content   string
	Metadata  map[string]string
	Timestamp time.Time
}

// FileChange records that a file was touched during a session, independent
// of whether a Fact was also extracted for it.
type FileChange struct {
	FilePath   string
	ChangeType string
	Timestamp  time.Time
}
