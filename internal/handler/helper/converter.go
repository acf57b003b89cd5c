package helper

// QuestionOption представляет вариант ответа для фронтенда
type QuestionOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// ConvertOptionsToObjects преобразует варианты выбора в объекты с id и text.
// Игрок отправляет в ответе text выбранного варианта, id нужен только для отрисовки.
func ConvertOptionsToObjects(options []string) []QuestionOption {
	if len(options) == 0 {
		return nil
	}
	converted := make([]QuestionOption, len(options))
	for i, opt := range options {
		if opt == "" {
			opt = "(пустой вариант)"
		}
		converted[i] = QuestionOption{ID: i, Text: opt}
	}
	return converted
}
