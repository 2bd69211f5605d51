package tasks

// Phase identifies the stage of a sync operation in progress updates.
type Phase int

const (
	PhaseResolveSegments Phase = iota
	PhaseFetchWindow
	PhaseFetchPlaylist
	PhaseRemoveDuplicates
	PhaseRemoveStale
	PhaseAddMissing
	PhaseReorder
	PhaseVerify
	PhaseComplete
)

// String returns a human-readable name for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseResolveSegments:
		return "Resolving playlists"
	case PhaseFetchWindow:
		return "Fetching saved tracks"
	case PhaseFetchPlaylist:
		return "Fetching playlist tracks"
	case PhaseRemoveDuplicates:
		return "Removing duplicates"
	case PhaseRemoveStale:
		return "Removing stale tracks"
	case PhaseAddMissing:
		return "Adding missing tracks"
	case PhaseReorder:
		return "Reordering tracks"
	case PhaseVerify:
		return "Verifying playlist"
	case PhaseComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// ProgressUpdate carries sync progress through a channel to the caller.
type ProgressUpdate struct {
	Phase   Phase
	Segment string
	Step    int
	Total   int
	Message string
}

// newProgress builds an update for the named segment and phase.
func newProgress(phase Phase, segment, message string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Segment: segment, Message: message}
}

// newStepProgress builds an update with step counters for batched work.
func newStepProgress(phase Phase, segment string, step, total int, message string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Segment: segment, Step: step, Total: total, Message: message}
}
