package models

import "time"

// ChatTurn is one message of caller-supplied conversation history.
// History is ephemeral; the core keeps no server-side session state.
type ChatTurn struct {
	Role string `json:"role" binding:"required,oneof=user assistant"`
	Text string `json:"text" binding:"required"`
}

// ChatRequest is the payload for a grounded chat turn.
type ChatRequest struct {
	InstitutionID string     `json:"institution_id" binding:"required"`
	Message       string     `json:"message" binding:"required,min=1,max=2000"`
	History       []ChatTurn `json:"history"`
	Language      string     `json:"language,omitempty"` // answer language, defaults to "en"
}

// ChatResponse is returned to the web layer and ultimately the end user.
type ChatResponse struct {
	Reply      string    `json:"reply"`
	Grounded   bool      `json:"grounded"`
	TokensUsed int       `json:"tokens_used"`
	LatencyMs  int       `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
