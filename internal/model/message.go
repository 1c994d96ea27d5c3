package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// MessagePart is one element of a message's parts array. Only text parts are
// produced by the server; other kinds are stored as sent by the client.
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

type Message struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID      string         `gorm:"type:uuid;not null;index" json:"chat_id"`
	UserID      string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Role        string         `gorm:"size:16;not null" json:"role"`
	Parts       datatypes.JSON `gorm:"type:jsonb;not null" json:"parts"`
	Attachments datatypes.JSON `gorm:"type:jsonb" json:"attachments"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (Message) TableName() string { return "messages_v2" }

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if len(m.Parts) == 0 {
		m.Parts = datatypes.JSON("[]")
	}
	if len(m.Attachments) == 0 {
		m.Attachments = datatypes.JSON("[]")
	}
	return nil
}

// NewTextMessage builds a message with a single text part.
func NewTextMessage(chatID, userID, role, text string) Message {
	msg := Message{
		ID:        newID(),
		ChatID:    chatID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	msg.SetParts([]MessagePart{{Type: "text", Text: text}})
	msg.Attachments = datatypes.JSON("[]")
	return msg
}

func (m *Message) SetParts(parts []MessagePart) {
	b, _ := json.Marshal(parts)
	m.Parts = datatypes.JSON(b)
}

func (m *Message) SetAttachments(list []Attachment) {
	if len(list) == 0 {
		m.Attachments = datatypes.JSON("[]")
		return
	}
	b, _ := json.Marshal(list)
	m.Attachments = datatypes.JSON(b)
}

// Text concatenates the text parts of the message.
func (m *Message) Text() string {
	var parts []MessagePart
	if err := json.Unmarshal(m.Parts, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type != "text" || p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

type Vote struct {
	ChatID    string `gorm:"type:uuid;primaryKey" json:"chat_id"`
	MessageID string `gorm:"type:uuid;primaryKey" json:"message_id"`
	IsUpvoted bool   `gorm:"not null" json:"is_upvoted"`
}

func (Vote) TableName() string { return "votes_v2" }
