package partymanager

import (
	"hash/fnv"
	"math/rand"
	"strconv"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
	"github.com/yourusername/vocab-party-api/internal/service/matcher"
)

// QuestionPrompt - то, что видит игрок во время вопроса. Ответа здесь нет.
type QuestionPrompt struct {
	Index          int              `json:"index"`
	Total          int              `json:"total"`
	QuestionID     uint             `json:"question_id"`
	Direction      entity.Direction `json:"direction"`
	Prompt         string           `json:"prompt"`
	TimerSec       int              `json:"timer_sec"`
	GenderRequired bool             `json:"gender_required"`
	Options        []string         `json:"options,omitempty"`
}

// BuildPrompt формирует вопрос с номером index.
// questions должен содержать как минимум вопросы снимка игры.
func BuildPrompt(party *entity.Party, index int, questions map[uint]*entity.LessonQuestion, choiceOptions int) (*QuestionPrompt, bool) {
	if index < 0 || index >= party.QuestionCount() {
		return nil, false
	}
	qID := party.QuestionIDs[index]
	dir := party.QuestionDirections[index]
	q, ok := questions[qID]
	if !ok {
		return nil, false
	}

	prompt := &QuestionPrompt{
		Index:          index,
		Total:          party.QuestionCount(),
		QuestionID:     qID,
		Direction:      dir,
		Prompt:         q.Prompt(dir),
		TimerSec:       party.TimerSec,
		GenderRequired: matcher.GenderApplies(dir, q),
	}
	if party.Mode == entity.PartyModeMultipleChoice {
		prompt.Options = buildOptions(party, index, q, questions, choiceOptions)
	}
	return prompt, true
}

// buildOptions возвращает верный вариант и отвлекающие из других вопросов игры.
// Перемешивание детерминировано для пары (игра, номер вопроса), поэтому все игроки видят один порядок.
func buildOptions(party *entity.Party, index int, q *entity.LessonQuestion, questions map[uint]*entity.LessonQuestion, limit int) []string {
	dir := party.QuestionDirections[index]
	correct := firstCandidate(dir, q)
	if correct == "" {
		return nil
	}
	if limit < 2 {
		limit = 2
	}

	seen := map[string]struct{}{matcher.Normalize(correct): {}}
	options := []string{correct}
	for i, otherID := range party.QuestionIDs {
		if len(options) >= limit {
			break
		}
		if i == index {
			continue
		}
		other, ok := questions[otherID]
		if !ok {
			continue
		}
		candidate := firstCandidate(dir, other)
		key := matcher.Normalize(candidate)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		options = append(options, candidate)
	}

	rnd := rand.New(rand.NewSource(optionSeed(party.ID, index)))
	rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

func firstCandidate(dir entity.Direction, q *entity.LessonQuestion) string {
	candidates := matcher.Candidates(dir, q)
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}

func optionSeed(partyID string, index int) int64 {
	h := fnv.New64a()
	h.Write([]byte(partyID))
	h.Write([]byte{':'})
	h.Write([]byte(strconv.Itoa(index)))
	return int64(h.Sum64())
}
