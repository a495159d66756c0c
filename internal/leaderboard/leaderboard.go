// Package leaderboard ranks players by eco-points and builds the dashboard snapshot.
package leaderboard

import (
	"sort"
	"strings"
)

// Entry is one leaderboard row. ID is the account identifier of a real player and
// is empty for seed entries.
type Entry struct {
	ID        string `json:"-"`
	Rank      int    `json:"rank"`
	Name      string `json:"name"`
	School    string `json:"school"`
	EcoPoints int    `json:"ecoPoints"`
}

// Seed returns the sample players shown before any local accounts exist.
func Seed() []Entry {
	return []Entry{
		{Name: "Priya Sharma", School: "Greenwood International", EcoPoints: 1250},
		{Name: "Rohan Kumar", School: "Oakridge Academy", EcoPoints: 1100},
		{Name: "Alex Green", School: "Springfield High", EcoPoints: 125},
		{Name: "Anika Singh", School: "Greenwood International", EcoPoints: 980},
		{Name: "Vivaan Mehta", School: "Riverdale Public School", EcoPoints: 950},
	}
}

// Combine merges seed entries with real players. A player replaces any seed entry
// sharing its name, compared case-insensitively. Players are never merged with each
// other, even when their names collide.
func Combine(seed, players []Entry) []Entry {
	taken := make(map[string]struct{}, len(players))
	for _, p := range players {
		taken[strings.ToLower(p.Name)] = struct{}{}
	}

	out := make([]Entry, 0, len(seed)+len(players))
	for _, e := range seed {
		if _, ok := taken[strings.ToLower(e.Name)]; ok {
			continue
		}
		out = append(out, e)
	}
	return append(out, players...)
}

// Rank orders entries by points, highest first, and numbers them from 1.
// Ties keep their input order. The input is not modified.
func Rank(entries []Entry) []Entry {
	ranked := append([]Entry(nil), entries...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].EcoPoints > ranked[j].EcoPoints })
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Window returns the top size entries of a ranked list. When the player with the given
// ID ranks below the window, they take the last slot so they are always visible.
func Window(ranked []Entry, id string, size int) []Entry {
	if size <= 0 {
		return []Entry{}
	}
	n := min(size, len(ranked))
	window := append([]Entry(nil), ranked[:n]...)

	idx := -1
	for i, e := range ranked {
		if id != "" && e.ID == id {
			idx = i
			break
		}
	}
	if idx >= size {
		window[size-1] = ranked[idx]
		sort.SliceStable(window, func(i, j int) bool { return window[i].EcoPoints > window[j].EcoPoints })
	}
	return window
}
