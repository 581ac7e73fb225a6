package extract

// Stage is one step of the extraction pipeline.
type Stage int

const (
	// StageDiscover lists the library directory for archives.
	StageDiscover Stage = iota
	// StageLoad parses the primary and library archives into the code tree.
	StageLoad
	// StageClassify selects the primary class names and extracts their records.
	StageClassify
	// StageNormalize strips compiler artifacts and unresolvable references.
	StageNormalize
	// StageConvert maps cleaned class records to metadata.
	StageConvert
	// StageReassemble nests inner classes under their owners.
	StageReassemble
	// StageAssemble builds the final dataset.
	StageAssemble
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageDiscover:
		return "discover"
	case StageLoad:
		return "load"
	case StageClassify:
		return "classify"
	case StageNormalize:
		return "normalize"
	case StageConvert:
		return "convert"
	case StageReassemble:
		return "reassemble"
	case StageAssemble:
		return "assemble"
	default:
		return "unknown"
	}
}

// ProgressReporter provides callbacks for reporting extraction progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnStageStart is called when a pipeline stage begins.
	OnStageStart(stage Stage)

	// OnLibrariesStart is called before library archives are parsed.
	OnLibrariesStart(total int)

	// OnLibraryLoaded is called from worker goroutines after each library archive is parsed.
	OnLibraryLoaded(path string, classes int)

	// OnClassesStart is called before primary classes are normalized and converted.
	OnClassesStart(total int)

	// OnClassProcessed is called after each primary class is converted.
	OnClassProcessed(name string)

	// OnComplete is called when extraction completes successfully.
	OnComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnStageStart(stage Stage)                 {}
func (n *NoOpProgressReporter) OnLibrariesStart(total int)               {}
func (n *NoOpProgressReporter) OnLibraryLoaded(path string, classes int) {}
func (n *NoOpProgressReporter) OnClassesStart(total int)                 {}
func (n *NoOpProgressReporter) OnClassProcessed(name string)             {}
func (n *NoOpProgressReporter) OnComplete(stats *Stats)                  {}
