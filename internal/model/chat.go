package model

import "strconv"

// ChatUser is a user as embedded in chat payloads and search results.
type ChatUser struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Role      RoleRef `json:"role"`
}

// Name returns the user's full name, or the email when no name is set.
func (u ChatUser) Name() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

// ChatGroup is a named team channel.
type ChatGroup struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Department string     `json:"department"`
	City       string     `json:"city"`
	Site       string     `json:"ocp"`
	Members    []ChatUser `json:"members"`
}

// GroupRequest is the body of POST /api/groups.
type GroupRequest struct {
	Name       string  `json:"name" validate:"required"`
	Department string  `json:"department"`
	City       string  `json:"city"`
	Site       string  `json:"ocp"`
	UserIDs    []int64 `json:"userIds"`
}

// ChatMessage is a persisted private or group message. Exactly one of
// Recipient and Group is set.
type ChatMessage struct {
	ID        int64      `json:"id"`
	Sender    *ChatUser  `json:"sender"`
	Recipient *ChatUser  `json:"recipient"`
	Group     *ChatGroup `json:"group"`
	Content   string     `json:"content"`
	Read      bool       `json:"read"`
	Sent      bool       `json:"sent"`
	Timestamp LocalTime  `json:"timestamp"`
}

// SenderName returns a display name for the message author.
func (m ChatMessage) SenderName() string {
	if m.Sender == nil {
		return "unknown"
	}
	return m.Sender.Name()
}

// Involves reports whether the message belongs to the conversation
// identified by peer (for private chats) or group.
func (m ChatMessage) Involves(peer ChatPeer) bool {
	if peer.IsGroup {
		return m.Group != nil && m.Group.ID == peer.ID
	}
	if m.Group != nil {
		return false
	}
	return (m.Sender != nil && m.Sender.ID == peer.ID) ||
		(m.Recipient != nil && m.Recipient.ID == peer.ID)
}

// ChatPeer identifies a conversation: a user or a group.
type ChatPeer struct {
	ID      int64
	Name    string
	IsGroup bool
}

// Key returns a stable identifier for maps.
func (p ChatPeer) Key() string {
	if p.IsGroup {
		return "g:" + strconv.FormatInt(p.ID, 10)
	}
	return "u:" + strconv.FormatInt(p.ID, 10)
}

// OutgoingChat is the payload published to /app/chat.send.
type OutgoingChat struct {
	RecipientID *int64 `json:"recipientId"`
	GroupID     *int64 `json:"groupId"`
	Content     string `json:"content"`
}

// NewOutgoingChat builds the payload for peer.
func NewOutgoingChat(peer ChatPeer, content string) OutgoingChat {
	id := peer.ID
	if peer.IsGroup {
		return OutgoingChat{GroupID: &id, Content: content}
	}
	return OutgoingChat{RecipientID: &id, Content: content}
}

// Assistant message roles.
const (
	AssistantRoleUser      = "user"
	AssistantRoleAssistant = "assistant"
	AssistantRoleSystem    = "system"
)

// AssistantMessage is one turn of the assistant conversation.
type AssistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Sender  string `json:"sender,omitempty"`
}
