package partymanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
)

func lessonFixture() []entity.LessonQuestion {
	return []entity.LessonQuestion{
		{ID: 1, SourceText: "Straße", TargetText: "ulice", PartOfSpeech: "noun", Genders: entity.StringArray{"die"}},
		{ID: 2, SourceText: "schnell", TargetText: "rychlý; rychle"},
		{ID: 3, SourceText: "Haus", TargetText: "dům", PartOfSpeech: "noun", Genders: entity.StringArray{"das"}},
		{ID: 4, SourceText: "", TargetText: "prázdné"},
		{ID: 5, SourceText: "gut", TargetText: "dobrý"},
	}
}

func questionIndex(qs []entity.LessonQuestion) map[uint]*entity.LessonQuestion {
	out := make(map[uint]*entity.LessonQuestion, len(qs))
	for i := range qs {
		out[qs[i].ID] = &qs[i]
	}
	return out
}

func TestSelectQuestions_KeepsLessonOrderAndSkipsIneligible(t *testing.T) {
	selected := SelectQuestions(lessonFixture(), 0)

	ids := make([]uint, len(selected))
	for i, q := range selected {
		ids[i] = q.ID
	}
	assert.Equal(t, []uint{1, 2, 3, 5}, ids)
}

func TestSelectQuestions_Truncates(t *testing.T) {
	assert.Len(t, SelectQuestions(lessonFixture(), 2), 2)
	assert.Empty(t, SelectQuestions(nil, 5))
}

func TestFixedDirection_Assign(t *testing.T) {
	dirs := FixedDirection(entity.DirectionReverse).Assign(lessonFixture()[:3])
	assert.Equal(t, entity.DirectionArray{entity.DirectionReverse, entity.DirectionReverse, entity.DirectionReverse}, dirs)
}

func TestRandomDirections_SameSeedSameResult(t *testing.T) {
	qs := make([]entity.LessonQuestion, 32)

	a := NewRandomDirections(42).Assign(qs)
	b := NewRandomDirections(42).Assign(qs)

	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	for _, d := range a {
		assert.True(t, d.IsValid())
	}
}

func TestBuildPrompt_FreeText(t *testing.T) {
	// Arrange
	qs := lessonFixture()
	party := &entity.Party{
		ID:                 "p-1",
		Mode:               entity.PartyModeFreeText,
		TimerSec:           15,
		QuestionIDs:        entity.UintArray{1, 2},
		QuestionDirections: entity.DirectionArray{entity.DirectionReverse, entity.DirectionForward},
	}

	// Act
	prompt, ok := BuildPrompt(party, 0, questionIndex(qs), 4)

	// Assert
	require.True(t, ok)
	assert.Equal(t, "ulice", prompt.Prompt, "reverse показывает перевод")
	assert.True(t, prompt.GenderRequired)
	assert.Equal(t, 2, prompt.Total)
	assert.Equal(t, 15, prompt.TimerSec)
	assert.Nil(t, prompt.Options, "в free_text вариантов нет")

	_, ok = BuildPrompt(party, 2, questionIndex(qs), 4)
	assert.False(t, ok)
}

func TestBuildPrompt_MultipleChoiceOptions(t *testing.T) {
	// Arrange
	qs := lessonFixture()
	party := &entity.Party{
		ID:                 "p-mc",
		Mode:               entity.PartyModeMultipleChoice,
		QuestionIDs:        entity.UintArray{1, 2, 3, 5},
		QuestionDirections: entity.DirectionArray{entity.DirectionForward, entity.DirectionForward, entity.DirectionForward, entity.DirectionForward},
	}

	// Act
	first, ok := BuildPrompt(party, 1, questionIndex(qs), 3)
	require.True(t, ok)
	again, _ := BuildPrompt(party, 1, questionIndex(qs), 3)

	// Assert
	assert.Len(t, first.Options, 3)
	assert.Contains(t, first.Options, "rychlý", "верный вариант - первый вариант перевода")
	assert.Equal(t, first.Options, again.Options, "порядок вариантов стабилен")
	assert.False(t, first.GenderRequired)
}
