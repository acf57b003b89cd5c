package websocket

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Типы событий живой игры
const (
	// PartyCreated - в классе создана новая игра
	PartyCreated = "party:created"

	// PartyPlayerJoined - к игре присоединился игрок
	PartyPlayerJoined = "party:player_joined"

	// PartyStarted - игра запущена, показан первый вопрос
	PartyStarted = "party:started"

	// PartyQuestion - игра перешла к следующему вопросу
	PartyQuestion = "party:question"

	// PartyAnswerReceived - получен ответ (только агрегат, без текста)
	PartyAnswerReceived = "party:answer_received"

	// PartyEnded - игра завершена
	PartyEnded = "party:ended"
)

// Служебные типы сообщений соединения
const (
	// ServerError - ошибка, отправляемая клиенту без закрытия соединения
	ServerError = "server:error"

	// ServerSubscribed - подтверждение подписки на топик
	ServerSubscribed = "server:subscribed"
)
