package localfs

// ListOptions configures List.
type ListOptions struct {
	// IncludeHidden includes dot files. The file service lists everything;
	// the CLI hides them unless asked.
	IncludeHidden bool
}

// WalkOptions configures Walk.
type WalkOptions struct {
	// IncludeHidden includes hidden files and descends into hidden directories.
	IncludeHidden bool
}
