package ws

import "encoding/json"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// EventID vazio em subscribe assina todos os eventos
type ClientMsg struct {
	Type    string `json:"type"`
	EventID string `json:"eventId"`
}

// Update é o que o cliente recebe: o tópico de origem e o payload publicado
type Update struct {
	Type    string          `json:"type"` // sempre "update"
	Topic   string          `json:"topic"`
	EventID string          `json:"eventId"`
	Payload json.RawMessage `json:"payload"`
}
