// Package stats computes how often each song was led per period and ranks
// the songs within each period.
package stats

import (
	"sort"
)

// Stat is one period_statistics row
type Stat struct {
	SongID    int64
	Period    int64
	LeadCount int
	Rank      int
}

// Lead is one distinct leading turn: a group id with its song and the
// period of the session it happened at
type Lead struct {
	GroupID int64
	SongID  int64
	Period  int64
}

// Counts holds lead counts per period per song
type Counts map[int64]map[int64]int

// Aggregate counts distinct leads for every (song, period) pair. Every song
// gets an entry in every period, zero when it was not led. Leads whose song
// or period is unknown are not counted and are returned as orphans.
func Aggregate(songs, periods []int64, leads []Lead) (Counts, []Lead) {
	counts := make(Counts, len(periods))
	for _, p := range periods {
		perSong := make(map[int64]int, len(songs))
		for _, s := range songs {
			perSong[s] = 0
		}
		counts[p] = perSong
	}

	var orphans []Lead
	seen := make(map[Lead]bool, len(leads))
	for _, l := range leads {
		if seen[l] {
			continue
		}
		seen[l] = true

		perSong, ok := counts[l.Period]
		if !ok {
			orphans = append(orphans, l)
			continue
		}
		if _, ok := perSong[l.SongID]; !ok {
			orphans = append(orphans, l)
			continue
		}
		perSong[l.SongID]++
	}
	return counts, orphans
}

// Rank turns counts into statistic rows, periods ascending. Within a
// period rows are ordered by count descending, ties broken by song id
// descending, and ranked competition style: tied counts share a rank and the
// next lower count is ranked one past the number of rows ahead of it.
func Rank(counts Counts) []Stat {
	periods := make([]int64, 0, len(counts))
	total := 0
	for p, perSong := range counts {
		periods = append(periods, p)
		total += len(perSong)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i] < periods[j] })

	out := make([]Stat, 0, total)
	for _, p := range periods {
		rows := make([]Stat, 0, len(counts[p]))
		for song, n := range counts[p] {
			rows = append(rows, Stat{SongID: song, Period: p, LeadCount: n})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].LeadCount != rows[j].LeadCount {
				return rows[i].LeadCount > rows[j].LeadCount
			}
			return rows[i].SongID > rows[j].SongID
		})

		for i := range rows {
			if i == 0 || rows[i].LeadCount != rows[i-1].LeadCount {
				rows[i].Rank = i + 1
			} else {
				rows[i].Rank = rows[i-1].Rank
			}
		}
		out = append(out, rows...)
	}
	return out
}
