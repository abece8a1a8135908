// Package refresh periodically re-fetches dashboard data in the
// background and hands the results to the Bubble Tea runtime.
package refresh

import (
	"context"
	"sort"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/airwatch/internal/api"
)

// Feed names a periodically refreshed data set.
type Feed string

const (
	FeedWeather       Feed = "weather"
	FeedAirQuality    Feed = "air-quality"
	FeedNotifications Feed = "notifications"
)

// FeedState represents the current state of a feed.
type FeedState int

const (
	FeedIdle FeedState = iota
	FeedRunning
	FeedError
)

// FeedStatus holds the refresh state for a single feed.
type FeedStatus struct {
	Feed        Feed
	State       FeedState
	LastRefresh time.Time
	Error       error
}

// ResultMsg is a tea.Msg sent when a fetch completes.
type ResultMsg struct {
	Feed Feed
	Data any
	Err  error

	// Unauthorized is set when the backend rejected the session.
	Unauthorized bool
}

// FetchFunc loads the current data for a feed.
type FetchFunc func(ctx context.Context) (any, error)

// fetchTimeout is the maximum time allowed for a single fetch.
const fetchTimeout = 30 * time.Second

type feedEntry struct {
	feed     Feed
	fetch    FetchFunc
	interval time.Duration
	trigger  chan struct{}
}

// Poller runs one goroutine per registered feed.
type Poller struct {
	feeds    []*feedEntry
	statuses map[Feed]*FeedStatus
	resultCh chan ResultMsg
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// New creates an empty Poller.
func New() *Poller {
	return &Poller{
		statuses: make(map[Feed]*FeedStatus),
		resultCh: make(chan ResultMsg, 16),
	}
}

// Register adds a feed fetched every interval. Feeds registered while
// the poller runs start on the next Start.
func (p *Poller) Register(feed Feed, interval time.Duration, fetch FetchFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if interval <= 0 {
		interval = 60 * time.Second
	}
	p.feeds = append(p.feeds, &feedEntry{
		feed:     feed,
		fetch:    fetch,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	})
	p.statuses[feed] = &FeedStatus{Feed: feed, State: FeedIdle}
}

// Start launches the polling goroutines and returns a command that
// delivers the next ResultMsg.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return p.WaitForNextResult()
	}
	p.running = true
	p.stopCh = make(chan struct{})
	feeds := append([]*feedEntry(nil), p.feeds...)
	stop := p.stopCh
	p.mu.Unlock()

	for _, entry := range feeds {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.poll(entry, stop)
		}()
	}

	return p.WaitForNextResult()
}

// Stop halts all polling goroutines and waits for them to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
}

// Running reports whether the poller has been started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// RefreshAll triggers an immediate fetch of every feed.
func (p *Poller) RefreshAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, entry := range p.feeds {
		entry.kick()
	}
}

// Refresh triggers an immediate fetch of one feed.
func (p *Poller) Refresh(feed Feed) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, entry := range p.feeds {
		if entry.feed == feed {
			entry.kick()
		}
	}
}

// kick queues a trigger unless one is already pending.
func (e *feedEntry) kick() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Statuses returns the state of every feed, sorted by name.
func (p *Poller) Statuses() []FeedStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	statuses := make([]FeedStatus, 0, len(p.statuses))
	for _, s := range p.statuses {
		statuses = append(statuses, *s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Feed < statuses[j].Feed })
	return statuses
}

func (p *Poller) poll(entry *feedEntry, stop <-chan struct{}) {
	ticker := time.NewTicker(entry.interval)
	defer ticker.Stop()

	p.fetch(entry, stop)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.fetch(entry, stop)
		case <-entry.trigger:
			p.fetch(entry, stop)
		}
	}
}

func (p *Poller) fetch(entry *feedEntry, stop <-chan struct{}) {
	p.setStatus(entry.feed, FeedRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	data, err := entry.fetch(ctx)
	select {
	case <-stop:
		return
	default:
	}

	if err != nil {
		p.setStatus(entry.feed, FeedError, err)
		p.sendResult(ResultMsg{Feed: entry.feed, Err: err, Unauthorized: api.IsAuthError(err)})
		return
	}

	p.setStatus(entry.feed, FeedIdle, nil)
	p.sendResult(ResultMsg{Feed: entry.feed, Data: data})
}

func (p *Poller) setStatus(feed Feed, state FeedState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[feed]
	if !ok {
		return
	}
	status.State = state
	status.Error = err
	if state == FeedIdle && err == nil {
		status.LastRefresh = time.Now()
	}
}

// sendResult drops the result if the channel is full.
func (p *Poller) sendResult(msg ResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next result.
// Call it again after handling each ResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		return <-p.resultCh
	}
}
