package orchestration

// ProgressListener receives progress events during a run.
type ProgressListener func(event ProgressEvent)

// EventType labels a progress event.
type EventType string

const (
	EventRunStart       EventType = "run_start"
	EventEvalStart      EventType = "eval_start"
	EventEvalComplete   EventType = "eval_complete"
	EventExternalLoaded EventType = "external_loaded"
	EventItemFailed     EventType = "item_failed"
	EventJudgeStart     EventType = "judge_start"
	EventJudgeComplete  EventType = "judge_complete"
	EventRunComplete    EventType = "run_complete"
)

// ProgressEvent is one progress update. Version and ModelKey identify the
// work item on item-scoped events; Completed counts items finished so far
// in the current phase out of Total.
type ProgressEvent struct {
	EventType EventType
	SkillID   string
	Version   string
	ModelKey  string
	DocName   string
	Completed int
	Total     int
	Err       error
}
