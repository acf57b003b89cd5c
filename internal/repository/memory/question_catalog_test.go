package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
)

func TestQuestionCatalog(t *testing.T) {
	// Arrange
	catalog := NewQuestionCatalog()
	catalog.Put(
		entity.LessonQuestion{ID: 3, LessonID: 1, Position: 2, SourceText: "c", TargetText: "c"},
		entity.LessonQuestion{ID: 1, LessonID: 1, Position: 1, SourceText: "a", TargetText: "a"},
		entity.LessonQuestion{ID: 2, LessonID: 1, Position: 1, SourceText: "b", TargetText: "b"},
		entity.LessonQuestion{ID: 9, LessonID: 2, SourceText: "z", TargetText: "z"},
	)

	// Act
	lesson, err := catalog.ListQuestions(1)
	require.NoError(t, err)
	byIDs, err := catalog.GetByIDs([]uint{9, 404, 1})
	require.NoError(t, err)
	empty, err := catalog.ListQuestions(77)
	require.NoError(t, err)

	// Assert
	ids := make([]uint, 0, len(lesson))
	for _, q := range lesson {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []uint{1, 2, 3}, ids, "порядок урока: position, затем id")
	require.Len(t, byIDs, 2)
	assert.Equal(t, uint(9), byIDs[0].ID)
	assert.Equal(t, uint(1), byIDs[1].ID)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}
