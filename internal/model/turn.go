package model

import (
	"time"
)

// ChatTurn is one persisted unit of conversation. Turns are written once and never mutated.
type ChatTurn struct {
	ID        string    `json:"id" bson:"-"`
	Role      Role      `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// ListTurnsResponse is the response of the administrative transcript endpoint.
type ListTurnsResponse struct {
	Turns []ChatTurn `json:"turns"`
	Count int        `json:"count"`
}
