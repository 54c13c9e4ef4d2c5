package evolve_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/minutes-janitor/internal/evolve"
	"github.com/franz/minutes-janitor/internal/store"
	"github.com/franz/minutes-janitor/internal/testutil"
	"github.com/franz/minutes-janitor/internal/util"
)

// countingStep derives nothing but records how often it ran
func countingStep(calls *int) evolve.Step {
	return evolve.Step{
		Table:  "leaders",
		Column: "nickname",
		Type:   "TEXT",
		Derive: func(ctx context.Context, q store.Querier) (int64, error) {
			*calls++
			return 0, nil
		},
	}
}

func TestApplyAddsAndDerivesOnce(t *testing.T) {
	ctx := context.Background()
	a := testutil.NewArchive(t)
	tx := a.Begin(t)
	calls := 0
	step := countingStep(&calls)

	res, err := evolve.New(false).Apply(ctx, tx, step)
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.True(t, res.Recomputed)
	assert.Equal(t, "leaders.nickname", res.Step)
	assert.Equal(t, 1, calls)

	res, err = evolve.New(false).Apply(ctx, tx, step)
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.False(t, res.Recomputed)
	assert.Equal(t, 1, calls)

	res, err = evolve.New(true).Apply(ctx, tx, step)
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.True(t, res.Recomputed)
	assert.Equal(t, 2, calls)
}

func TestApplyMissingTableIsFatal(t *testing.T) {
	ctx := context.Background()
	a := testutil.NewArchive(t)
	tx := a.Begin(t)
	calls := 0
	step := countingStep(&calls)
	step.Table = "choirs"

	_, err := evolve.New(true).Apply(ctx, tx, step)
	assert.ErrorIs(t, err, util.ErrMissingTable)
	assert.Zero(t, calls)
}

func TestApplyPropagatesDeriveError(t *testing.T) {
	ctx := context.Background()
	a := testutil.NewArchive(t)
	tx := a.Begin(t)
	boom := errors.New("boom")

	_, err := evolve.New(false).Apply(ctx, tx, evolve.Step{
		Table: "leaders", Column: "x", Type: "TEXT",
		Derive: func(context.Context, store.Querier) (int64, error) { return 0, boom },
	})
	assert.ErrorIs(t, err, boom)
}

func TestLastNameStep(t *testing.T) {
	ctx := context.Background()
	a := testutil.NewArchive(t)
	a.Exec(t, "INSERT INTO leaders (id, name) VALUES (1, 'Hugh McGraw'), (2, 'Judy Hauff'), (3, ''), (4, NULL)")
	tx := a.Begin(t)

	res, err := evolve.New(false).Apply(ctx, tx, evolve.LastNameStep)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Rows)
	assert.Equal(t, []string{"McGraw", "Hauff", "", ""},
		testutil.Strings(t, tx, "SELECT last_name FROM leaders ORDER BY id"))
	assert.Equal(t, []int64{2}, testutil.Ints(t, tx, "SELECT COUNT(*) FROM leaders WHERE last_name IS NULL"))

	res, err = evolve.New(true).Apply(ctx, tx, evolve.LastNameStep)
	require.NoError(t, err)
	assert.Zero(t, res.Rows, "recomputing unchanged names writes nothing")
}

func TestGroupAndRecordingCountSteps(t *testing.T) {
	ctx := context.Background()
	a := testutil.NewArchive(t)
	a.Exec(t, "INSERT INTO sessions (id, name, year) VALUES (10, 'A', 2000), (11, 'B', 2000)")
	a.Exec(t, `INSERT INTO leading_events (id, song_id, leader_id, session_id, audio_url) VALUES
		(1, 1, 100, 10, 'http://a/1.mp3'),
		(2, 1, 101, 10, 'http://a/1.mp3'),
		(3, 2, 100, 10, NULL),
		(4, 3, 102, 10, 'http://a/3.mp3'),
		(5, 1, 100, 11, NULL)`)
	tx := a.Begin(t)
	ev := evolve.New(false)

	_, err := ev.Apply(ctx, tx, evolve.GroupStep)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 2, 3, 4}, testutil.Ints(t, tx, "SELECT group_id FROM leading_events ORDER BY id"))

	res, err := ev.Apply(ctx, tx, evolve.RecordingCountStep)
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Equal(t, []int64{2, 0}, testutil.Ints(t, tx, "SELECT recording_count FROM sessions ORDER BY id"))

	res, err = evolve.New(true).Apply(ctx, tx, evolve.RecordingCountStep)
	require.NoError(t, err)
	assert.Zero(t, res.Rows)
}

func TestComposerAndPoetSteps(t *testing.T) {
	ctx := context.Background()
	a := testutil.NewArchive(t)
	a.Exec(t, `INSERT INTO songs (id, title,
		composer1_first, composer1_last, composer1_date, composer2_first, composer2_last, composer2_date, composer_book_title,
		poet1_first, poet1_last, poet1_date, poet2_first, poet2_last, poet2_date, poet_book_title) VALUES
		(1, 'A', 'J', 'Bach', '1750', '', '', '', 'Hymnal', 'Isaac', 'Watts', '1707', NULL, NULL, NULL, NULL),
		(2, 'B', 'Lowell', 'Mason', '1830', 'William', 'Walker', '1835', 'Harmony', '', '', '', '', '', '', ''),
		(3, 'C', NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL)`)
	tx := a.Begin(t)
	ev := evolve.New(false)

	_, err := ev.Apply(ctx, tx, evolve.ComposerStep)
	require.NoError(t, err)
	_, err = ev.Apply(ctx, tx, evolve.PoetStep)
	require.NoError(t, err)

	assert.Equal(t, []string{"J Bach & Hymnal, 1750", "Lowell Mason, 1830; William Walker, 1835", ""},
		testutil.Strings(t, tx, "SELECT composer FROM songs ORDER BY id"))
	assert.Equal(t, []string{"Isaac Watts, 1707", "", ""},
		testutil.Strings(t, tx, "SELECT poet FROM songs ORDER BY id"))
	// Empty attributions are stored as empty strings, not NULL
	assert.Equal(t, []int64{0}, testutil.Ints(t, tx, "SELECT COUNT(*) FROM songs WHERE composer IS NULL OR poet IS NULL"))
}

func TestAttributionRequiresSourceColumns(t *testing.T) {
	ctx := context.Background()
	a := testutil.NewArchiveWithSchema(t, "CREATE TABLE songs (id INTEGER PRIMARY KEY, title TEXT)")
	tx := a.Begin(t)

	_, err := evolve.New(false).Apply(ctx, tx, evolve.ComposerStep)
	assert.ErrorIs(t, err, util.ErrMissingColumn)
}
