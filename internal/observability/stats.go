package observability

import (
	"sync"
	"sync/atomic"
)

// StatsSnapshot is the point-in-time view served by the API for diagnosing
// where a pipeline run spent its requests and where it lost data.
type StatsSnapshot struct {
	PagesFetched      uint64            `json:"pages_fetched"`
	JobsCollected     uint64            `json:"jobs_collected"`
	SnapshotsSaved    uint64            `json:"snapshots_saved"`
	AICalls           uint64            `json:"ai_calls"`
	ErrorsTotal       uint64            `json:"errors_total"`
	SourceResults     map[string]uint64 `json:"source_results,omitempty"`
	ErrorsByType      map[string]uint64 `json:"errors_by_type,omitempty"`
	ErrorsByComponent map[string]uint64 `json:"errors_by_component,omitempty"`
}

var (
	pagesFetched   uint64
	jobsCollected  uint64
	snapshotsSaved uint64
	aiCalls        uint64
	errorsTotal    uint64

	statsMu           sync.Mutex
	sourceResults     = map[string]uint64{}
	errorsByType      = map[string]uint64{}
	errorsByComponent = map[string]uint64{}
)

func IncPagesFetched() {
	atomic.AddUint64(&pagesFetched, 1)
}

func AddJobsCollected(n int) {
	if n > 0 {
		atomic.AddUint64(&jobsCollected, uint64(n))
	}
}

func IncSnapshotsSaved() {
	atomic.AddUint64(&snapshotsSaved, 1)
}

func IncAICall() {
	atomic.AddUint64(&aiCalls, 1)
}

// IncSourceResult records a per-source outcome ("greenhouse:hit",
// "levelsfyi:empty", ...) so coverage gaps show up in /stats.
func IncSourceResult(result string) {
	if result == "" {
		result = "unknown"
	}
	statsMu.Lock()
	sourceResults[result]++
	statsMu.Unlock()
}

func IncError(errType, component string) {
	if errType == "" {
		errType = ErrorUnknown
	}
	if component == "" {
		component = "unknown"
	}
	atomic.AddUint64(&errorsTotal, 1)
	statsMu.Lock()
	errorsByType[errType]++
	errorsByComponent[component]++
	statsMu.Unlock()
}

func Snapshot() StatsSnapshot {
	statsMu.Lock()
	sourceCopy := copyMap(sourceResults)
	errorsTypeCopy := copyMap(errorsByType)
	errorsComponentCopy := copyMap(errorsByComponent)
	statsMu.Unlock()

	return StatsSnapshot{
		PagesFetched:      atomic.LoadUint64(&pagesFetched),
		JobsCollected:     atomic.LoadUint64(&jobsCollected),
		SnapshotsSaved:    atomic.LoadUint64(&snapshotsSaved),
		AICalls:           atomic.LoadUint64(&aiCalls),
		ErrorsTotal:       atomic.LoadUint64(&errorsTotal),
		SourceResults:     sourceCopy,
		ErrorsByType:      errorsTypeCopy,
		ErrorsByComponent: errorsComponentCopy,
	}
}

func copyMap(src map[string]uint64) map[string]uint64 {
	if len(src) == 0 {
		return map[string]uint64{}
	}
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
