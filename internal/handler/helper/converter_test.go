package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertOptionsToObjects(t *testing.T) {
	assert.Nil(t, ConvertOptionsToObjects(nil))

	got := ConvertOptionsToObjects([]string{"ulice", "", "rychlý"})

	assert.Equal(t, []QuestionOption{
		{ID: 0, Text: "ulice"},
		{ID: 1, Text: "(пустой вариант)"},
		{ID: 2, Text: "rychlý"},
	}, got)
}
