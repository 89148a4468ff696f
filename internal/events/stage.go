package events

// Event names shared by the grid modules.
const (
	EventRender       = "render"
	EventRemoteParams = "remoteParams"
	EventRefresh      = "refresh"
)

// Stage is a named slot in the render cycle. Stages run in declaration order.
type Stage int

const (
	StageFilter Stage = iota + 1
	StageSort
	StagePage
	StageDraw
	StageObserve
)

// stageSpacing leaves room for explicit priorities between stages.
const stageSpacing = 10

// Priority returns the bus priority of the stage.
func (s Stage) Priority() int {
	return int(s) * stageSpacing
}

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageFilter:
		return "filter"
	case StageSort:
		return "sort"
	case StagePage:
		return "page"
	case StageDraw:
		return "draw"
	case StageObserve:
		return "observe"
	default:
		return "unknown"
	}
}

// Stages lists every stage in execution order.
func Stages() []Stage {
	return []Stage{StageFilter, StageSort, StagePage, StageDraw, StageObserve}
}

// StageOf maps a priority back to the stage it belongs to.
// Priorities between two stages belong to the earlier one.
func StageOf(priority int) (Stage, bool) {
	s := Stage(priority / stageSpacing)
	if s < StageFilter || s > StageObserve {
		return 0, false
	}
	return s, true
}
