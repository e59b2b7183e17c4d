package model

// FileChange represents a planned rewrite of one file.
type FileChange struct {
	Path string
	// Content holds the new lines. Terminators may be kept or dropped.
	Content []string
}

// Summary holds the results of an operation for display.
type Summary struct {
	Modified []string
	Failed   []string
	// Moved lists hoisted block names.
	Moved      []string
	InsertedAt int
	Replaced   int
	Warnings   []string
	Message    string
}
