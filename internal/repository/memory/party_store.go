package memory

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
	"github.com/yourusername/vocab-party-api/internal/domain/repository"
	apperrors "github.com/yourusername/vocab-party-api/internal/pkg/errors"
)

// partyEntry хранит текущий снимок одной игры.
// mu сериализует мутации этой игры; current читается без блокировки (copy-on-write).
type partyEntry struct {
	mu      sync.Mutex
	current atomic.Pointer[entity.PartySnapshot]
}

// PartyStore реализует repository.PartyStore в памяти процесса
type PartyStore struct {
	mu      sync.RWMutex // Защищает только карты entries и byClass, не содержимое игр
	entries map[string]*partyEntry
	byClass map[uint][]string
}

var _ repository.PartyStore = (*PartyStore)(nil)

// NewPartyStore создает пустое хранилище игр
func NewPartyStore() *PartyStore {
	return &PartyStore{
		entries: make(map[string]*partyEntry),
		byClass: make(map[uint][]string),
	}
}

// Create сохраняет новую игру
func (s *PartyStore) Create(party *entity.Party) error {
	if party == nil || party.ID == "" {
		return fmt.Errorf("party id is required: %w", apperrors.ErrValidation)
	}
	if len(party.QuestionIDs) != len(party.QuestionDirections) {
		return fmt.Errorf("question ids and directions length mismatch: %w", apperrors.ErrInvalidConfiguration)
	}

	entry := &partyEntry{}
	entry.current.Store(&entity.PartySnapshot{Party: party.Clone()})

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[party.ID]; exists {
		return fmt.Errorf("party %s already exists: %w", party.ID, apperrors.ErrConflict)
	}
	s.entries[party.ID] = entry
	s.byClass[party.ClassID] = append(s.byClass[party.ClassID], party.ID)

	log.Printf("[PartyStore] Игра %s создана для класса #%d", party.ID, party.ClassID)
	return nil
}

// Get возвращает копию текущего снимка игры
func (s *PartyStore) Get(partyID string) (*entity.PartySnapshot, error) {
	entry, ok := s.entry(partyID)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return entry.current.Load().Clone(), nil
}

// Update применяет мутацию к рабочей копии под блокировкой игры.
// Снимок заменяется только при успехе, поэтому читатели никогда не видят половину изменений.
func (s *PartyStore) Update(partyID string, mutate repository.PartyMutation) (*entity.PartySnapshot, error) {
	entry, ok := s.entry(partyID)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.current.Load().Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	if err := checkInvariants(working); err != nil {
		log.Printf("[PartyStore] CRITICAL: мутация игры %s нарушила инвариант: %v", partyID, err)
		return nil, err
	}

	entry.current.Store(working)
	return working.Clone(), nil
}

// FindActiveByClass возвращает последнюю созданную незавершённую игру класса
func (s *PartyStore) FindActiveByClass(classID uint) (*entity.PartySnapshot, error) {
	s.mu.RLock()
	ids := append([]string(nil), s.byClass[classID]...)
	entries := make([]*partyEntry, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entries[id]; ok {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	var best *entity.PartySnapshot
	for _, e := range entries {
		snap := e.current.Load()
		if snap.Party.IsEnded() {
			continue
		}
		if best == nil || snap.Party.CreatedAt.After(best.Party.CreatedAt) {
			best = snap
		}
	}
	if best == nil {
		return nil, apperrors.ErrSessionNotFound
	}
	return best.Clone(), nil
}

// Delete удаляет игру вместе с игроками и ответами
func (s *PartyStore) Delete(partyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[partyID]
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	classID := entry.current.Load().Party.ClassID
	delete(s.entries, partyID)

	ids := s.byClass[classID]
	for i, id := range ids {
		if id == partyID {
			s.byClass[classID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byClass[classID]) == 0 {
		delete(s.byClass, classID)
	}
	return nil
}

func (s *PartyStore) entry(partyID string) (*partyEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[partyID]
	return e, ok
}

// checkInvariants проверяет инварианты агрегата после мутации
func checkInvariants(snap *entity.PartySnapshot) error {
	p := snap.Party
	if len(p.QuestionIDs) != len(p.QuestionDirections) {
		return fmt.Errorf("question ids and directions length mismatch: %w", apperrors.ErrConflict)
	}
	if p.IsRunning() && (p.CurrentIndex < 0 || p.CurrentIndex >= len(p.QuestionIDs)) {
		return fmt.Errorf("current index %d out of range while running: %w", p.CurrentIndex, apperrors.ErrConflict)
	}

	players := make(map[uint]struct{}, len(snap.Players))
	for _, pl := range snap.Players {
		if _, dup := players[pl.UserID]; dup {
			return fmt.Errorf("duplicate player for user %d: %w", pl.UserID, apperrors.ErrConflict)
		}
		if pl.Score < 0 {
			return fmt.Errorf("negative score for user %d: %w", pl.UserID, apperrors.ErrConflict)
		}
		players[pl.UserID] = struct{}{}
	}

	type answerKey struct{ user, question uint }
	answers := make(map[answerKey]struct{}, len(snap.Answers))
	for _, a := range snap.Answers {
		k := answerKey{a.UserID, a.QuestionID}
		if _, dup := answers[k]; dup {
			return apperrors.ErrDuplicateSubmission
		}
		answers[k] = struct{}{}
	}
	return nil
}
