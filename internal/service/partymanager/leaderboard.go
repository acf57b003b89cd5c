package partymanager

import (
	"sort"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
)

// LeaderboardEntry - строка таблицы лидеров
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      uint   `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
}

// SortPlayers сортирует копию игроков: очки по убыванию, при равенстве раньше присоединившийся выше.
// Оригинальный слайс не меняется.
func SortPlayers(players []entity.PartyPlayer) []entity.PartyPlayer {
	sorted := make([]entity.PartyPlayer, len(players))
	copy(sorted, players)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})
	return sorted
}

// BuildLeaderboard возвращает таблицу лидеров с последовательными местами 1..N
func BuildLeaderboard(players []entity.PartyPlayer) []LeaderboardEntry {
	sorted := SortPlayers(players)
	entries := make([]LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		entries[i] = LeaderboardEntry{
			Rank:        i + 1,
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
		}
	}
	return entries
}
