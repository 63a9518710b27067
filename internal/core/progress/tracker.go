package progress

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Stage labels a progress update.
type Stage string

const (
	StageScanning  Stage = "scanning"
	StageSearching Stage = "searching"
	StageRanking   Stage = "ranking"
)

// DefaultInterval is the minimum gap between delivered progress updates.
const DefaultInterval = 100 * time.Millisecond

// Update reports how far a scan or search has got.
type Update struct {
	FilesProcessed int
	TotalFiles     int
	CurrentFile    string
	Stage          Stage

	// Filled in by the Tracker.
	Elapsed time.Duration
	ETA     time.Duration // zero when unknown
}

// Summary is delivered once when a search finishes.
type Summary struct {
	FilesSearched   int
	MatchesFound    int
	Duration        time.Duration
	AverageFileTime time.Duration
	Errors          []error
}

// Listener receives the three kinds of search events.
type Listener interface {
	OnProgress(Update)
	OnError(error)
	OnComplete(Summary)
}

// Funcs adapts plain functions to a Listener. Nil fields are ignored.
type Funcs struct {
	Progress func(Update)
	Error    func(error)
	Complete func(Summary)
}

func (f Funcs) OnProgress(u Update) {
	if f.Progress != nil {
		f.Progress(u)
	}
}

func (f Funcs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

func (f Funcs) OnComplete(s Summary) {
	if f.Complete != nil {
		f.Complete(s)
	}
}

// Tracker collects timings and errors for one search and fans events out
// to listeners. Progress updates are throttled; errors and the summary are
// always delivered. A panicking listener is recovered and never reaches
// the caller.
type Tracker struct {
	mu        sync.Mutex
	listeners []Listener
	interval  time.Duration
	throttle  *rate.Sometimes
	start     time.Time
	fileTimes []time.Duration
	errors    []error
}

// NewTracker creates a tracker. An interval <= 0 disables throttling.
func NewTracker(interval time.Duration, listeners ...Listener) *Tracker {
	t := &Tracker{listeners: listeners, interval: interval}
	t.Reset()
	return t
}

// Subscribe adds a listener.
func (t *Tracker) Subscribe(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// Reset starts a fresh measurement. The engine calls it at the start of
// every search so a tracker can be reused.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = time.Now()
	t.fileTimes = nil
	t.errors = nil
	t.throttle = &rate.Sometimes{Interval: t.interval}
}

// Report delivers a progress update, subject to throttling.
func (t *Tracker) Report(u Update) {
	t.mu.Lock()
	u.Elapsed = time.Since(t.start)
	u.ETA = estimateRemaining(u)
	throttle := t.throttle
	listeners := t.listeners
	t.mu.Unlock()

	deliver := func() {
		for _, l := range listeners {
			safely(func() { l.OnProgress(u) })
		}
	}

	if t.interval <= 0 {
		deliver()
		return
	}
	throttle.Do(deliver)
}

// ReportError records err and delivers it.
func (t *Tracker) ReportError(err error) {
	t.mu.Lock()
	t.errors = append(t.errors, err)
	listeners := t.listeners
	t.mu.Unlock()

	for _, l := range listeners {
		safely(func() { l.OnError(err) })
	}
}

// FileProcessed records how long one file took.
func (t *Tracker) FileProcessed(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fileTimes = append(t.fileTimes, d)
}

// Complete builds the summary, delivers it and returns it.
func (t *Tracker) Complete(matches int) Summary {
	t.mu.Lock()
	summary := Summary{
		FilesSearched:   len(t.fileTimes),
		MatchesFound:    matches,
		Duration:        time.Since(t.start),
		AverageFileTime: average(t.fileTimes),
		Errors:          append([]error(nil), t.errors...),
	}
	listeners := t.listeners
	t.mu.Unlock()

	for _, l := range listeners {
		safely(func() { l.OnComplete(summary) })
	}
	return summary
}

func estimateRemaining(u Update) time.Duration {
	if u.FilesProcessed == 0 || u.TotalFiles == 0 {
		return 0
	}
	perFile := u.Elapsed / time.Duration(u.FilesProcessed)
	remaining := u.TotalFiles - u.FilesProcessed
	if remaining <= 0 {
		return 0
	}
	return perFile * time.Duration(remaining)
}

func average(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return sum / time.Duration(len(ds))
}

func safely(f func()) {
	defer func() { _ = recover() }()
	f()
}
