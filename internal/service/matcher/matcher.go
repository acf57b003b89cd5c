// Package matcher решает, верен ли ответ на словарный вопрос.
// Пакет не хранит состояния и ничего не знает об игре.
package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
)

// variantSeparators - разделители допустимых вариантов перевода (только для forward)
const variantSeparators = ";,/"

// Result - итог проверки ответа
type Result struct {
	TextCorrect   bool   `json:"text_correct"`
	GenderCorrect bool   `json:"gender_correct"`
	Correct       bool   `json:"correct"`
	Expected      string `json:"expected"`
	Points        int    `json:"points"`
}

// Evaluate проверяет ответ submitted (и при необходимости род chosenGender) на вопрос q.
// Никогда не паникует: при пустых данных вопроса возвращает Correct=false и пустой Expected.
func Evaluate(direction entity.Direction, submitted string, chosenGender *string, q *entity.LessonQuestion) Result {
	if q == nil {
		return Result{}
	}

	candidates := Candidates(direction, q)
	if len(candidates) == 0 {
		return Result{}
	}

	answer := Normalize(submitted)
	// Артикль снимается только с ответа и только если он совпал с объявленным родом.
	// Сам род проверяется отдельно по chosenGender.
	bare := answer
	if GenderApplies(direction, q) {
		bare = stripArticle(answer, q.Genders)
	}

	textCorrect := false
	if answer != "" {
		for _, c := range candidates {
			nc := Normalize(c)
			if nc != "" && (nc == answer || nc == bare) {
				textCorrect = true
				break
			}
		}
	}

	genderCorrect := checkGender(direction, chosenGender, q)
	correct := textCorrect && genderCorrect

	points := 0
	if correct && q.PointValue > 0 {
		points = q.PointValue
	}

	return Result{
		TextCorrect:   textCorrect,
		GenderCorrect: genderCorrect,
		Correct:       correct,
		Expected:      ExpectedDisplay(direction, q),
		Points:        points,
	}
}

// GenderApplies сообщает, требуется ли для вопроса и направления выбор рода:
// только reverse и только для существительного с объявленными родами.
func GenderApplies(direction entity.Direction, q *entity.LessonQuestion) bool {
	return q != nil && direction == entity.DirectionReverse && q.IsNoun() && q.HasGenders()
}

func checkGender(direction entity.Direction, chosenGender *string, q *entity.LessonQuestion) bool {
	if !GenderApplies(direction, q) {
		return true
	}
	if chosenGender == nil {
		return false
	}
	chosen := Normalize(*chosenGender)
	if chosen == "" {
		return false
	}
	for _, g := range q.Genders {
		if Normalize(g) == chosen {
			return true
		}
	}
	return false
}

// Candidates возвращает допустимые ответы без нормализации.
// Forward: поле перевода делится на варианты по ; , / плюс синонимы перевода.
// Reverse: исходное слово целиком плюс его синонимы.
func Candidates(direction entity.Direction, q *entity.LessonQuestion) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	if direction == entity.DirectionReverse {
		add(q.SourceText)
		for _, s := range q.SourceSynonyms {
			add(s)
		}
		return out
	}

	for _, v := range strings.FieldsFunc(q.TargetText, func(r rune) bool {
		return strings.ContainsRune(variantSeparators, r)
	}) {
		add(v)
	}
	for _, s := range q.TargetSynonyms {
		add(s)
	}
	return out
}

// ExpectedDisplay возвращает ожидаемый ответ для показа игроку
func ExpectedDisplay(direction entity.Direction, q *entity.LessonQuestion) string {
	if q == nil {
		return ""
	}
	if direction != entity.DirectionReverse {
		return strings.TrimSpace(q.TargetText)
	}
	source := strings.TrimSpace(q.SourceText)
	if source == "" || !GenderApplies(direction, q) {
		return source
	}
	genders := make([]string, 0, len(q.Genders))
	for _, g := range q.Genders {
		if g = strings.TrimSpace(g); g != "" {
			genders = append(genders, g)
		}
	}
	return strings.Join(genders, "/") + " " + source
}

// Normalize приводит текст к виду для сравнения: обрезка, нижний регистр,
// удаление диакритики (NFD без combining marks), схлопывание пробелов, ß → ss.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err == nil {
		s = stripped
	}

	s = strings.ReplaceAll(s, "ß", "ss")
	return strings.Join(strings.Fields(s), " ")
}

// stripArticle убирает ведущий артикль из уже нормализованной строки,
// если он совпадает с одним из родов вопроса
func stripArticle(s string, genders entity.StringArray) string {
	head, rest, found := strings.Cut(s, " ")
	if !found || rest == "" {
		return s
	}
	for _, g := range genders {
		if Normalize(g) == head {
			return rest
		}
	}
	return s
}
