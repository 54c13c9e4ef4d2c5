package store

// Relations of the minutes archive. Key names the column rows are
// identified by; Columns are the source columns the pipeline reads, and
// Derived the columns it adds when absent.
type RelationInfo struct {
	Name    string
	Key     string
	Columns []string
	Derived []string
}

const (
	TableSessions   = "sessions"
	TableSongs      = "songs"
	TableLeaders    = "leaders"
	TableEvents     = "leading_events"
	TableStatistics = "period_statistics"
)

// Catalog lists the archive relations in dependency order
var Catalog = []RelationInfo{
	{
		Name:    TableSessions,
		Key:     "id",
		Columns: []string{"id", "name", "location", "freetext_minutes", "year"},
		Derived: []string{"recording_count"},
	},
	{
		Name: TableSongs,
		Key:  "id",
		Columns: []string{
			"id", "song_text",
			"composer1_first", "composer1_last", "composer1_date",
			"composer2_first", "composer2_last", "composer2_date",
			"composer_book_title",
			"poet1_first", "poet1_last", "poet1_date",
			"poet2_first", "poet2_last", "poet2_date",
			"poet_book_title",
		},
		Derived: []string{"composer", "poet"},
	},
	{
		Name:    TableLeaders,
		Key:     "id",
		Columns: []string{"id", "name"},
		Derived: []string{"last_name"},
	},
	{
		Name:    TableEvents,
		Key:     "id",
		Columns: []string{"id", "song_id", "session_id", "audio_url"},
		Derived: []string{"group_id"},
	},
	{
		Name:    TableStatistics,
		Key:     "rowid",
		Columns: []string{"song_id", "period", "lead_count", "rank"},
	},
}

// Relation looks up a catalog entry by table name
func Relation(name string) (RelationInfo, bool) {
	for _, r := range Catalog {
		if r.Name == name {
			return r, true
		}
	}
	return RelationInfo{}, false
}
