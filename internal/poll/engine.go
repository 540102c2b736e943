package poll

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reelpick/internal/clock"
	"reelpick/internal/models"
)

const (
	// RefreshInterval is how often a live poll's display is re-rendered
	// in addition to the immediate refresh after every vote.
	RefreshInterval = 30 * time.Second

	MinDuration = 1 * time.Minute
	MaxDuration = 60 * time.Minute
)

var (
	ErrTooFewMovies      = errors.New("a poll needs at least two movies")
	ErrBadDuration       = errors.New("poll duration must be between 1 and 60 minutes")
	ErrBadMovieIndex     = errors.New("movie choice is out of range")
	ErrPollAlreadyActive = errors.New("a poll is already running in this channel")
	ErrPollNotFound      = errors.New("no active poll found")
	ErrNoVotesToRemove   = errors.New("no votes to remove")
	ErrNotAuthorized     = errors.New("only the poll creator or an admin can end the poll")
)

// Publisher pushes engine state outward after a mutation or timer tick.
// Implementations render and edit the chat message; the engine itself
// never formats anything. messageID is snapshotted under the registry
// lock — SetMessageID may run concurrently, so implementations must not
// read p.MessageID themselves.
type Publisher interface {
	PublishRefresh(p *Poll, messageID int, tallies []TallyEntry)
	PublishResult(p *Poll, messageID int, res Result)
}

// Engine drives the poll lifecycle: creation, vote toggling, periodic
// refresh and timed or forced close. All state transitions happen under
// the registry lock, so concurrent handler goroutines cannot lose updates.
type Engine struct {
	reg    *Registry
	clock  clock.Clock
	sched  clock.Scheduler
	pub    Publisher
	admins map[string]struct{}
	logger *logrus.Logger
}

func NewEngine(reg *Registry, clk clock.Clock, sched clock.Scheduler, pub Publisher, adminIDs []string, logger *logrus.Logger) *Engine {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Engine{
		reg:    reg,
		clock:  clk,
		sched:  sched,
		pub:    pub,
		admins: admins,
		logger: logger,
	}
}

// Start creates a live poll in the channel. A channel holds at most one
// live poll; an expired poll whose close timer has not run yet counts as
// absent and is collected here.
func (e *Engine) Start(channelID, creatorID string, movies []models.Movie, duration time.Duration) (*Poll, error) {
	if len(movies) < 2 {
		return nil, ErrTooFewMovies
	}
	if duration < MinDuration || duration > MaxDuration {
		return nil, ErrBadDuration
	}

	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()

	if cur := e.reg.byChannel[channelID]; cur != nil {
		if e.clock.Now().Before(cur.Deadline()) {
			return nil, ErrPollAlreadyActive
		}
		e.collectLocked(cur)
	}

	snapshot := make([]models.Movie, len(movies))
	copy(snapshot, movies)

	p := &Poll{
		ID:        uuid.New(),
		ChannelID: channelID,
		CreatorID: creatorID,
		Movies:    snapshot,
		StartTime: e.clock.Now(),
		Duration:  duration,
		votes:     make(map[string]map[int]struct{}),
	}
	e.reg.insert(p)

	id := p.ID
	p.refresh = e.sched.Every(RefreshInterval, func() { e.refreshTick(id) })
	p.closer = e.sched.After(duration, func() { e.autoClose(id) })

	e.logger.WithFields(logrus.Fields{
		"poll_id":  p.ID,
		"channel":  channelID,
		"movies":   len(snapshot),
		"duration": duration,
	}).Info("Poll started")

	return p, nil
}

// SetMessageID records the id of the live display message once it has
// been posted, so refreshes can edit it in place.
func (e *Engine) SetMessageID(pollID uuid.UUID, messageID int) error {
	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()
	p := e.reg.byID[pollID]
	if p == nil {
		return ErrPollNotFound
	}
	p.MessageID = messageID
	return nil
}

// ByChannel returns the channel's live poll, treating an expired one as
// absent.
func (e *Engine) ByChannel(channelID string) (*Poll, error) {
	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()
	p := e.reg.byChannel[channelID]
	if p == nil || !e.clock.Now().Before(p.Deadline()) {
		return nil, ErrPollNotFound
	}
	return p, nil
}

// ToggleVote adds the movie to the user's vote set, or removes it if
// already present. A user may support any number of distinct movies.
// Returns whether the vote was added and the user's new vote count.
func (e *Engine) ToggleVote(pollID uuid.UUID, userID string, movieIndex int) (added bool, voteCount int, err error) {
	e.reg.mu.Lock()
	p := e.reg.byID[pollID]
	if p == nil || !e.clock.Now().Before(p.Deadline()) {
		e.reg.mu.Unlock()
		return false, 0, ErrPollNotFound
	}
	if movieIndex < 0 || movieIndex >= len(p.Movies) {
		e.reg.mu.Unlock()
		return false, 0, ErrBadMovieIndex
	}

	set := p.votes[userID]
	if set == nil {
		set = make(map[int]struct{})
		p.votes[userID] = set
	}
	if _, ok := set[movieIndex]; ok {
		delete(set, movieIndex)
		added = false
	} else {
		set[movieIndex] = struct{}{}
		added = true
	}
	voteCount = len(set)
	tallies := tally(p)
	messageID := p.MessageID
	e.reg.mu.Unlock()

	// Immediate refresh so the voter sees feedback before the next tick.
	e.pub.PublishRefresh(p, messageID, tallies)
	return added, voteCount, nil
}

// RemoveAllVotes clears the user's entire vote set and returns how many
// votes were dropped.
func (e *Engine) RemoveAllVotes(pollID uuid.UUID, userID string) (int, error) {
	e.reg.mu.Lock()
	p := e.reg.byID[pollID]
	if p == nil || !e.clock.Now().Before(p.Deadline()) {
		e.reg.mu.Unlock()
		return 0, ErrPollNotFound
	}
	removed := len(p.votes[userID])
	if removed == 0 {
		e.reg.mu.Unlock()
		return 0, ErrNoVotesToRemove
	}
	delete(p.votes, userID)
	tallies := tally(p)
	messageID := p.MessageID
	e.reg.mu.Unlock()

	e.pub.PublishRefresh(p, messageID, tallies)
	return removed, nil
}

// Tally computes the current per-movie counts of a live poll.
func (e *Engine) Tally(pollID uuid.UUID) ([]TallyEntry, error) {
	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()
	p := e.reg.byID[pollID]
	if p == nil {
		return nil, ErrPollNotFound
	}
	return tally(p), nil
}

// End closes the poll, cancels its timers, publishes the final ranking
// and removes it from the registry. Forced ends require the creator or an
// admin. Ending an already-absent poll reports ErrPollNotFound; callers
// doing cleanup treat that as benign.
func (e *Engine) End(pollID uuid.UUID, forced bool, requesterID string) (Result, error) {
	e.reg.mu.Lock()
	p := e.reg.byID[pollID]
	if p == nil {
		e.reg.mu.Unlock()
		return Result{}, ErrPollNotFound
	}
	if forced && requesterID != p.CreatorID && !e.isAdmin(requesterID) {
		e.reg.mu.Unlock()
		return Result{}, ErrNotAuthorized
	}

	e.collectLocked(p)
	ranked := Rank(tally(p))
	res := Result{
		Poll:           p,
		Rankings:       ranked,
		Winners:        Winners(ranked),
		TotalVotes:     totalVotes(p),
		Forced:         forced,
		EndedBy:        requesterID,
		EndedByCreator: forced && requesterID == p.CreatorID,
	}
	messageID := p.MessageID
	e.reg.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"poll_id": p.ID,
		"channel": p.ChannelID,
		"forced":  forced,
		"votes":   res.TotalVotes,
	}).Info("Poll ended")

	e.pub.PublishResult(p, messageID, res)
	return res, nil
}

func (e *Engine) isAdmin(userID string) bool {
	_, ok := e.admins[userID]
	return ok
}

// collectLocked cancels timers and removes the poll from the registry.
// Removal and cancellation happen under the same lock the timer callbacks
// take, so a poll can never publish results twice.
func (e *Engine) collectLocked(p *Poll) {
	if p.refresh != nil {
		p.refresh.Cancel()
	}
	if p.closer != nil {
		p.closer.Cancel()
	}
	e.reg.remove(p)
}

// refreshTick runs on the periodic timer. A tick racing a concurrent end
// finds the registry entry gone and exits silently.
func (e *Engine) refreshTick(pollID uuid.UUID) {
	e.reg.mu.Lock()
	p := e.reg.byID[pollID]
	if p == nil {
		e.reg.mu.Unlock()
		return
	}
	tallies := tally(p)
	messageID := p.MessageID
	e.reg.mu.Unlock()

	e.pub.PublishRefresh(p, messageID, tallies)
}

// autoClose runs once when the poll duration elapses.
func (e *Engine) autoClose(pollID uuid.UUID) {
	if _, err := e.End(pollID, false, ""); err != nil && !errors.Is(err, ErrPollNotFound) {
		e.logger.WithError(fmt.Errorf("auto close: %w", err)).Error("Failed to close poll")
	}
}
