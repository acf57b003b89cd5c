package entity

// PartySnapshot - агрегат игры: сама игра, её игроки и ответы.
// Игроки и ответы принадлежат игре и не существуют отдельно от неё.
type PartySnapshot struct {
	Party   *Party
	Players []PartyPlayer
	Answers []PartyAnswer
}

// Clone возвращает глубокую копию агрегата.
func (s *PartySnapshot) Clone() *PartySnapshot {
	if s == nil {
		return nil
	}
	c := &PartySnapshot{
		Players: append([]PartyPlayer(nil), s.Players...),
		Answers: make([]PartyAnswer, len(s.Answers)),
	}
	if s.Party != nil {
		c.Party = s.Party.Clone()
	}
	for i, a := range s.Answers {
		if a.ChosenGender != nil {
			g := *a.ChosenGender
			a.ChosenGender = &g
		}
		c.Answers[i] = a
	}
	return c
}

// FindPlayer ищет игрока по userID
func (s *PartySnapshot) FindPlayer(userID uint) (*PartyPlayer, bool) {
	for i := range s.Players {
		if s.Players[i].UserID == userID {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// HasAnswer проверяет, отвечал ли пользователь на вопрос
func (s *PartySnapshot) HasAnswer(userID, questionID uint) bool {
	for i := range s.Answers {
		if s.Answers[i].UserID == userID && s.Answers[i].QuestionID == questionID {
			return true
		}
	}
	return false
}

// AnswerCount возвращает количество ответов на вопрос
func (s *PartySnapshot) AnswerCount(questionID uint) int {
	n := 0
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			n++
		}
	}
	return n
}
