package poll

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelpick/internal/clock"
	"reelpick/internal/models"
)

type recordingPublisher struct {
	mu         sync.Mutex
	refreshes  int
	messageIDs []int
	results    []Result
}

func (p *recordingPublisher) PublishRefresh(_ *Poll, messageID int, _ []TallyEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes++
	p.messageIDs = append(p.messageIDs, messageID)
}

func (p *recordingPublisher) PublishResult(_ *Poll, _ int, res Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, res)
}

func (p *recordingPublisher) refreshCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshes
}

func (p *recordingPublisher) resultCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results)
}

type noopScheduler struct{}

type noopHandle struct{}

func (noopHandle) Cancel() {}

func (noopScheduler) After(time.Duration, func()) clock.Handle { return noopHandle{} }
func (noopScheduler) Every(time.Duration, func()) clock.Handle { return noopHandle{} }

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testMovies(titles ...string) []models.Movie {
	movies := make([]models.Movie, len(titles))
	for i, t := range titles {
		movies[i] = models.Movie{ID: i + 1, Title: t}
	}
	return movies
}

func newTestEngine(clk clock.Clock, sched clock.Scheduler, admins ...string) (*Engine, *recordingPublisher) {
	pub := &recordingPublisher{}
	eng := NewEngine(NewRegistry(), clk, sched, pub, admins, testLogger())
	return eng, pub
}

func TestStartValidation(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, _ := newTestEngine(fake, fake)

	testCases := []struct {
		name     string
		movies   []models.Movie
		duration time.Duration
		wantErr  error
	}{
		{"one movie", testMovies("Alien"), 10 * time.Minute, ErrTooFewMovies},
		{"no movies", nil, 10 * time.Minute, ErrTooFewMovies},
		{"zero duration", testMovies("Alien", "Dune"), 0, ErrBadDuration},
		{"too long", testMovies("Alien", "Dune"), 61 * time.Minute, ErrBadDuration},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.Start("chan-1", "creator", tc.movies, tc.duration)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSingleActivePollPerChannel(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, _ := newTestEngine(fake, fake)

	_, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune"), 10*time.Minute)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := eng.Start("chan-1", "someone-else", testMovies("Heat", "Ran"), 5*time.Minute)
		assert.ErrorIs(t, err, ErrPollAlreadyActive)
	}

	// other channels are unaffected
	_, err = eng.Start("chan-2", "creator", testMovies("Heat", "Ran"), 5*time.Minute)
	assert.NoError(t, err)
}

func TestExpiredPollCollectedOnStart(t *testing.T) {
	// no-op scheduler: the auto-close timer never fires, leaving an
	// expired poll in the registry
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, pub := newTestEngine(fake, noopScheduler{})

	_, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune"), 10*time.Minute)
	require.NoError(t, err)

	fake.Advance(11 * time.Minute)

	p, err := eng.Start("chan-1", "creator", testMovies("Heat", "Ran"), 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "Heat", p.Movies[0].Title)
	// collection is silent: no results were published for the stale poll
	assert.Equal(t, 0, pub.resultCount())
}

func TestToggleVotePairing(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, _ := newTestEngine(fake, fake)

	p, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune", "Heat"), 10*time.Minute)
	require.NoError(t, err)

	added, count, err := eng.ToggleVote(p.ID, "user-x", 1)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1, count)

	added, count, err = eng.ToggleVote(p.ID, "user-x", 1)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 0, count)

	tallies, err := eng.Tally(p.ID)
	require.NoError(t, err)
	for _, e := range tallies {
		assert.Equal(t, 0, e.Count)
	}
}

func TestToggleVoteValidation(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, _ := newTestEngine(fake, noopScheduler{})

	p, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune"), 10*time.Minute)
	require.NoError(t, err)

	_, _, err = eng.ToggleVote(p.ID, "user-x", 2)
	assert.ErrorIs(t, err, ErrBadMovieIndex)
	_, _, err = eng.ToggleVote(p.ID, "user-x", -1)
	assert.ErrorIs(t, err, ErrBadMovieIndex)

	// an expired poll counts as absent
	fake.Advance(11 * time.Minute)
	_, _, err = eng.ToggleVote(p.ID, "user-x", 0)
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestTallyConservation(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, _ := newTestEngine(fake, fake)

	p, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune", "Heat", "Ran"), 10*time.Minute)
	require.NoError(t, err)

	// an arbitrary toggle sequence, including un-votes
	ops := []struct {
		user string
		idx  int
	}{
		{"u1", 0}, {"u1", 1}, {"u2", 1}, {"u3", 2},
		{"u1", 0}, // u1 un-votes movie 0
		{"u2", 3}, {"u3", 2}, // u3 un-votes movie 2
		{"u3", 0},
	}
	expected := map[string]int{"u1": 1, "u2": 2, "u3": 1}

	for _, op := range ops {
		_, _, err := eng.ToggleVote(p.ID, op.user, op.idx)
		require.NoError(t, err)
	}

	tallies, err := eng.Tally(p.ID)
	require.NoError(t, err)
	total := 0
	for _, e := range tallies {
		total += e.Count
	}

	want := 0
	for _, n := range expected {
		want += n
	}
	assert.Equal(t, want, total)

	res, err := eng.End(p.ID, true, "creator")
	require.NoError(t, err)
	assert.Equal(t, want, res.TotalVotes)
}

func TestConcurrentVoting(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, _ := newTestEngine(fake, fake)

	p, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune", "Heat"), 10*time.Minute)
	require.NoError(t, err)

	const users = 20
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := "user-" + string(rune('a'+n))
			for idx := 0; idx < 3; idx++ {
				_, _, err := eng.ToggleVote(p.ID, user, idx)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	res, err := eng.End(p.ID, true, "creator")
	require.NoError(t, err)
	assert.Equal(t, users*3, res.TotalVotes)
	for _, e := range res.Rankings {
		assert.Equal(t, users, e.Count)
	}
}

// Votes can land between Start and SetMessageID because the webhook runs
// each update on its own goroutine. The publisher must only ever see a
// message id snapshotted under the engine lock; run with -race.
func TestSetMessageIDConcurrentWithVoting(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, pub := newTestEngine(fake, fake)

	p, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune"), 10*time.Minute)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 100; i++ {
			assert.NoError(t, eng.SetMessageID(p.ID, i))
		}
	}()
	for i := 0; i < 100; i++ {
		_, _, err := eng.ToggleVote(p.ID, "user-x", i%2)
		require.NoError(t, err)
	}
	<-done

	pub.mu.Lock()
	defer pub.mu.Unlock()
	for _, id := range pub.messageIDs {
		assert.GreaterOrEqual(t, id, 0)
		assert.LessOrEqual(t, id, 100)
	}
}

func TestRemoveAllVotes(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, _ := newTestEngine(fake, fake)

	p, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune", "Heat"), 10*time.Minute)
	require.NoError(t, err)

	_, err = eng.RemoveAllVotes(p.ID, "user-x")
	assertNoVotes := func(err error) {
		t.Helper()
		assert.ErrorIs(t, err, ErrNoVotesToRemove)
	}
	assertNoVotes(err)

	for idx := 0; idx < 3; idx++ {
		_, _, err := eng.ToggleVote(p.ID, "user-x", idx)
		require.NoError(t, err)
	}

	removed, err := eng.RemoveAllVotes(p.ID, "user-x")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	_, err = eng.RemoveAllVotes(p.ID, "user-x")
	assertNoVotes(err)
}

func TestForcedEndScenario(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, pub := newTestEngine(fake, fake)

	p, err := eng.Start("chan-c", "creator", testMovies("Movie 1", "Movie 2", "Movie 3"), 10*time.Minute)
	require.NoError(t, err)

	_, _, err = eng.ToggleVote(p.ID, "user-x", 1)
	require.NoError(t, err)
	_, count, err := eng.ToggleVote(p.ID, "user-x", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	tallies, err := eng.Tally(p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 0}, []int{tallies[0].Count, tallies[1].Count, tallies[2].Count})

	res, err := eng.End(p.ID, true, "creator")
	require.NoError(t, err)
	assert.True(t, res.Forced)
	assert.True(t, res.EndedByCreator)
	require.Len(t, res.Winners, 2)
	assert.Equal(t, "Movie 1", res.Winners[0].Title)
	assert.Equal(t, "Movie 2", res.Winners[1].Title)
	assert.Equal(t, 1, pub.resultCount())

	// ending an already-ended poll is benign
	_, err = eng.End(p.ID, true, "creator")
	assert.ErrorIs(t, err, ErrPollNotFound)
	assert.Equal(t, 1, pub.resultCount())
}

func TestForcedEndAuthorization(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, _ := newTestEngine(fake, fake, "admin-1")

	p, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune"), 10*time.Minute)
	require.NoError(t, err)

	_, err = eng.End(p.ID, true, "random-user")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// the poll survives a rejected end
	_, err = eng.ByChannel("chan-1")
	require.NoError(t, err)

	res, err := eng.End(p.ID, true, "admin-1")
	require.NoError(t, err)
	assert.False(t, res.EndedByCreator)
}

func TestAutoCloseFiresExactlyOnce(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, pub := newTestEngine(fake, fake)

	_, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune"), 10*time.Minute)
	require.NoError(t, err)

	fake.Advance(9 * time.Minute)
	assert.Equal(t, 0, pub.resultCount())
	assert.Greater(t, pub.refreshCount(), 0)

	fake.Advance(2 * time.Minute)
	assert.Equal(t, 1, pub.resultCount())
	refreshesAtClose := pub.refreshCount()

	// no stale timer acts on the closed poll
	fake.Advance(30 * time.Minute)
	assert.Equal(t, 1, pub.resultCount())
	assert.Equal(t, refreshesAtClose, pub.refreshCount())

	_, err = eng.ByChannel("chan-1")
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestForcedEndCancelsAutoClose(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, pub := newTestEngine(fake, fake)

	p, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune"), 10*time.Minute)
	require.NoError(t, err)

	_, err = eng.End(p.ID, true, "creator")
	require.NoError(t, err)
	assert.Equal(t, 1, pub.resultCount())

	// the original deadline passing must not publish a second result
	fake.Advance(time.Hour)
	assert.Equal(t, 1, pub.resultCount())
}

func TestRefreshTickPublishes(t *testing.T) {
	fake := clock.NewFake(time.Unix(1700000000, 0))
	eng, pub := newTestEngine(fake, fake)

	_, err := eng.Start("chan-1", "creator", testMovies("Alien", "Dune"), 10*time.Minute)
	require.NoError(t, err)

	fake.Advance(95 * time.Second)
	assert.Equal(t, 3, pub.refreshCount())
}
