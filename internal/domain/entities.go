package domain

import "time"

// KnowledgeEntry is one question/answer pair of the knowledge base.
// Entries are immutable once ingested.
type KnowledgeEntry struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Product   string    `json:"product,omitempty"`
	Embedding []float32 `json:"-"`
}

// EntryInput is the unvalidated form of a knowledge entry, as submitted for ingestion.
type EntryInput struct {
	ID       string `json:"id,omitempty" validate:"omitempty,max=128"`
	Title    string `json:"title" validate:"required,max=2000"`
	Content  string `json:"content" validate:"required,max=20000"`
	Category string `json:"category,omitempty" validate:"omitempty,max=40"`
	Product  string `json:"product,omitempty" validate:"omitempty,max=100"`
}

// RetrievedCandidate is a knowledge entry matched by one retrieval call.
type RetrievedCandidate struct {
	Entry      KnowledgeEntry `json:"entry"`
	Similarity float64        `json:"similarity"`
	Rank       int            `json:"rank"`
}

// AnswerResult is the outcome of answering one user message.
type AnswerResult struct {
	Text             string   `json:"response"`
	Sources          []string `json:"sources"`
	Confidence       float64  `json:"confidence_score"`
	NeedsEscalation  bool     `json:"needs_escalation"`
	EscalationReason string   `json:"escalation_reason,omitempty"`
	SessionID        string   `json:"session_id"`
	UsedFallback     bool     `json:"used_fallback"`
	ContextUsed      bool     `json:"context_used"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SessionTurn is a single message in a conversation.
type SessionTurn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds the recent turns of one conversation, oldest first.
type Session struct {
	ID         string        `json:"session_id"`
	Turns      []SessionTurn `json:"turns"`
	Escalated  bool          `json:"escalated"`
	LastActive time.Time     `json:"last_active"`
}

type EscalationReason string

const (
	ReasonLowConfidence   EscalationReason = "low_confidence"
	ReasonExplicitRequest EscalationReason = "explicit_request"
	ReasonUnresolved      EscalationReason = "unresolved_escalation"
	ReasonUserSubmitted   EscalationReason = "user_submitted"
)

// EscalationEvent is handed to the workflow provider when a conversation
// needs a human.
type EscalationEvent struct {
	TicketID      string           `json:"ticket_id"`
	SessionID     string           `json:"session_id"`
	Transcript    string           `json:"conversation_summary"`
	UserContact   string           `json:"user_email,omitempty"`
	UserName      string           `json:"user_name"`
	Reason        EscalationReason `json:"reason"`
	OriginalQuery string           `json:"original_query"`
	Priority      string           `json:"priority"`
	CreatedAt     time.Time        `json:"timestamp"`
}

// KnowledgeStats summarises the contents of the knowledge base.
type KnowledgeStats struct {
	EntryCount     int              `json:"knowledge_items"`
	CategoryCounts map[Category]int `json:"category_counts"`
	ActiveSessions int              `json:"active_sessions"`
}
