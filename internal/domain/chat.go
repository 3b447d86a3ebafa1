package domain

import "time"

type Chat struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	ClientID  string    `json:"client_id"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthorRole string

const (
	AuthorClient  AuthorRole = "client"
	AuthorManager AuthorRole = "manager"
	AuthorSystem  AuthorRole = "system"
)

type ChatMessage struct {
	ID         string     `json:"id"`
	ChatID     string     `json:"chat_id"`
	AuthorID   string     `json:"author_id"`
	AuthorRole AuthorRole `json:"author_role"`
	Body       string     `json:"body"`
	CreatedAt  time.Time  `json:"created_at"`
}
