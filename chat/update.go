package chat

// Входящие структуры вебхука. Декодируются один раз на границе транспорта,
// дальше в ядро уходят уже типизированные команды (models.Command).

type Update struct {
	UpdateID      int64            `json:"update_id"`
	Message       *IncomingMessage `json:"message,omitempty"`
	CallbackQuery *CallbackQuery   `json:"callback_query,omitempty"`
}

type IncomingMessage struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type CallbackQuery struct {
	ID      string           `json:"id"`
	From    *User            `json:"from,omitempty"`
	Message *IncomingMessage `json:"message,omitempty"`
	Data    string           `json:"data,omitempty"`
}
