package store

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/trio/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "trio.db")
	store, err := New(dbPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func mustProject(t *testing.T, s *Store, title string) *Project {
	t.Helper()
	p, err := s.CreateProject(CreateProjectInput{Title: title, InitialEnthusiasm: 7})
	require.NoError(t, err)
	return p
}

func TestNew_CreatesDB(t *testing.T) {
	store := newTestStore(t)

	tables := []string{"projects", "conversations", "tasks", "insights", "meta"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}

	var version string
	require.NoError(t, store.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version))
	assert.Equal(t, "2", version)
}

func TestNew_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "trio.db")
	s1, err := New(dbPath, zerolog.Nop())
	require.NoError(t, err)
	p := mustProject(t, s1, "Write a novel")
	require.NoError(t, s1.Close())

	s2, err := New(dbPath, zerolog.Nop())
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetProject(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Write a novel", got.Title)
}

func TestMigrateV2_BackfillsTeamMarker(t *testing.T) {
	store := newTestStore(t)
	p := mustProject(t, store, "legacy")

	// Simulate a v1 database holding marker-prefixed rows.
	_, err := store.db.Exec(`INSERT INTO conversations (project_id, speaker, thread, message, created_at)
		VALUES (?, 'user', 'regular', '[TEAM] what next?', 1)`, p.ID)
	require.NoError(t, err)
	_, err = store.db.Exec(`UPDATE meta SET value = '1' WHERE key = 'schema_version'`)
	require.NoError(t, err)

	require.NoError(t, store.migrate())

	entries, err := store.RecentEntries(EntryFilter{ProjectID: p.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ThreadTeam, entries[0].Thread)
	assert.Equal(t, "what next?", entries[0].Message)
}

func TestMigrateV2_VersionReadFailure(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "trio.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s := &Store{db: db}
	err = s.migrateV2()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestProject_CRUD(t *testing.T) {
	store := newTestStore(t)

	p, err := store.CreateProject(CreateProjectInput{
		Title:             "  Write a novel ",
		Description:       "finish chapter 1",
		InitialEnthusiasm: 7,
	})
	require.NoError(t, err)
	assert.Greater(t, p.ID, int64(0))
	assert.Equal(t, "Write a novel", p.Title)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, 0, p.AbandonmentCount)

	got, err := store.GetProject(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, "finish chapter 1", got.Description)
	assert.Equal(t, 7, got.InitialEnthusiasm)
	assert.Equal(t, got.CreatedAt, got.LastActivity)

	missing, err := store.GetProject(9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateProject_Validation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreateProject(CreateProjectInput{Title: "   ", InitialEnthusiasm: 5})
	assert.ErrorIs(t, err, perrors.ErrValidation)

	_, err = store.CreateProject(CreateProjectInput{Title: "x", InitialEnthusiasm: 11})
	assert.ErrorIs(t, err, perrors.ErrValidation)

	projects, err := store.ListProjects(0)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestTouchProject_Monotonic(t *testing.T) {
	store := newTestStore(t)
	clock := time.UnixMilli(10_000)
	store.now = func() time.Time { return clock }

	p := mustProject(t, store, "clock")

	clock = time.UnixMilli(20_000)
	require.NoError(t, store.TouchProject(p.ID))
	got, _ := store.GetProject(p.ID)
	assert.Equal(t, int64(20_000), got.LastActivity)

	// A clock that steps backwards must not rewind last_activity.
	clock = time.UnixMilli(15_000)
	require.NoError(t, store.TouchProject(p.ID))
	got, _ = store.GetProject(p.ID)
	assert.Equal(t, int64(20_000), got.LastActivity)

	assert.ErrorIs(t, store.TouchProject(424242), perrors.ErrNotFound)
}

func TestListProjects_OrderAndLatest(t *testing.T) {
	store := newTestStore(t)
	clock := time.UnixMilli(1_000)
	store.now = func() time.Time { return clock }

	a := mustProject(t, store, "alpha")
	clock = time.UnixMilli(2_000)
	b := mustProject(t, store, "beta")
	clock = time.UnixMilli(3_000)
	require.NoError(t, store.TouchProject(a.ID))

	projects, err := store.ListProjects(0)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, a.ID, projects[0].ID)
	assert.Equal(t, b.ID, projects[1].ID)

	latest, err := store.LatestActiveProject()
	require.NoError(t, err)
	assert.Equal(t, a.ID, latest.ID)

	limited, err := store.ListProjects(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestEntries_RecentFilterAndOrder(t *testing.T) {
	store := newTestStore(t)
	p := mustProject(t, store, "chat")

	write := func(speaker, thread, msg string) *Entry {
		e := &Entry{ProjectID: p.ID, Speaker: speaker, Thread: thread, Message: msg}
		require.NoError(t, store.AppendEntry(e))
		return e
	}
	write(SpeakerSystem, "", "New project started: chat")
	u1 := write(SpeakerUser, "", "hello")
	write("spark", "", "hi from spark")
	write("proto", "", "hi from proto")
	u2 := write(SpeakerUser, ThreadTeam, "team question")

	entries, err := store.RecentEntries(EntryFilter{
		ProjectID: p.ID,
		Speakers:  []string{"spark", SpeakerUser},
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Newest first.
	assert.Equal(t, u2.ID, entries[0].ID)
	assert.True(t, entries[0].IsTeam())
	assert.Equal(t, "hi from spark", entries[1].Message)
	assert.Equal(t, u1.ID, entries[2].ID)
	assert.Equal(t, ThreadRegular, entries[2].Thread)

	limited, err := store.RecentEntries(EntryFilter{ProjectID: p.ID, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	before, err := store.RecentEntries(EntryFilter{ProjectID: p.ID, BeforeID: u2.ID})
	require.NoError(t, err)
	assert.Len(t, before, 4)
}

func TestAppendEntry_Failures(t *testing.T) {
	store := newTestStore(t)

	err := store.AppendEntry(&Entry{ProjectID: 1, Speaker: SpeakerUser, Message: "  "})
	assert.ErrorIs(t, err, perrors.ErrValidation)

	// Unknown project violates the foreign key.
	err = store.AppendEntry(&Entry{ProjectID: 77, Speaker: SpeakerUser, Message: "orphan"})
	assert.ErrorIs(t, err, perrors.ErrPersistence)
}

func TestTask_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	p := mustProject(t, store, "tasks")

	task, err := store.AddTask(p.ID, "outline chapter 1", "")
	require.NoError(t, err)
	assert.Equal(t, SizeTiny, task.Size)
	assert.False(t, task.Completed)

	_, err = store.AddTask(p.ID, "", SizeTiny)
	assert.ErrorIs(t, err, perrors.ErrValidation)
	_, err = store.AddTask(p.ID, "x", "huge")
	assert.ErrorIs(t, err, perrors.ErrValidation)

	open, err := store.ListTasks(p.ID, false)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	assert.ErrorIs(t, store.CompleteTask(task.ID, 0), perrors.ErrValidation)
	require.NoError(t, store.CompleteTask(task.ID, 9))

	done, err := store.GetTask(task.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, 9, done.DopamineScore)
	assert.Greater(t, done.CompletedAt, int64(0))

	// Exactly one transition.
	assert.ErrorIs(t, store.CompleteTask(task.ID, 5), perrors.ErrNotFound)
	assert.ErrorIs(t, store.CompleteTask(12345, 5), perrors.ErrNotFound)

	open, err = store.ListTasks(p.ID, false)
	require.NoError(t, err)
	assert.Empty(t, open)
	all, err := store.ListTasks(p.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestInsights_Recent(t *testing.T) {
	store := newTestStore(t)
	p := mustProject(t, store, "insights")
	other := mustProject(t, store, "other")

	before := time.Now().UnixMilli()
	for i := 0; i < 6; i++ {
		_, err := store.AddInsight(p.ID, "", "note")
		require.NoError(t, err)
	}
	last, err := store.AddInsight(p.ID, InsightCapture, "idea: use spaced repetition")
	require.NoError(t, err)
	_, err = store.AddInsight(other.ID, "reflection", "elsewhere")
	require.NoError(t, err)

	recent, err := store.RecentInsights(p.ID, 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, last.ID, recent[0].ID)
	assert.Equal(t, "idea: use spaced repetition", recent[0].Content)
	assert.GreaterOrEqual(t, recent[0].CreatedAt, before)

	all, err := store.RecentInsights(0, 50)
	require.NoError(t, err)
	assert.Len(t, all, 8)

	_, err = store.AddInsight(p.ID, "", " ")
	assert.ErrorIs(t, err, perrors.ErrValidation)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	p := mustProject(t, store, "stats")
	mustProject(t, store, "another")

	require.NoError(t, store.AppendEntry(&Entry{ProjectID: p.ID, Speaker: SpeakerUser, Message: "a"}))
	require.NoError(t, store.AppendEntry(&Entry{ProjectID: p.ID, Speaker: "proto", Message: "b"}))
	t1, _ := store.AddTask(p.ID, "one", SizeTiny)
	_, _ = store.AddTask(p.ID, "two", SizeSmall)
	require.NoError(t, store.CompleteTask(t1.ID, 8))
	_, _ = store.AddInsight(p.ID, "", "c")

	st, err := store.GetStats(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.ProjectCount)
	assert.Equal(t, 2, st.MessageCount)
	assert.Equal(t, 1, st.OpenTaskCount)
	assert.Equal(t, 1, st.DoneTaskCount)
	assert.Equal(t, 1, st.InsightCount)
}

func TestConcurrentWrites(t *testing.T) {
	store := newTestStore(t)
	p := mustProject(t, store, "race")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.AppendEntry(&Entry{ProjectID: p.ID, Speaker: SpeakerUser, Message: "m"}))
			assert.NoError(t, store.TouchProject(p.ID))
		}()
	}
	wg.Wait()

	st, err := store.GetStats(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, st.MessageCount)
}
