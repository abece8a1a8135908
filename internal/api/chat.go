package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nhle/airwatch/internal/model"
)

// AssistantHistory returns the user's past assistant conversation.
func (c *Client) AssistantHistory(ctx context.Context) ([]model.AssistantMessage, error) {
	var list []model.AssistantMessage
	if err := c.Get(ctx, "/api/chat/history", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AskAssistant sends a question over HTTP and returns the reply. Used when
// the real-time channel is down.
func (c *Client) AskAssistant(ctx context.Context, question string) (string, error) {
	var resp struct {
		Response string `json:"response"`
	}
	body := map[string]string{"message": question}
	if err := c.Post(ctx, "/api/chat", body, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Groups lists the chat groups the user belongs to.
func (c *Client) Groups(ctx context.Context) ([]model.ChatGroup, error) {
	var list []model.ChatGroup
	if err := c.Get(ctx, "/api/groups", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateGroup creates a chat group with the given members.
func (c *Client) CreateGroup(ctx context.Context, req model.GroupRequest) (model.ChatGroup, error) {
	var g model.ChatGroup
	if err := c.Post(ctx, "/api/groups", req, &g); err != nil {
		return model.ChatGroup{}, err
	}
	return g, nil
}

// AddGroupMember adds a user to a group.
func (c *Client) AddGroupMember(ctx context.Context, groupID, userID int64) (model.ChatGroup, error) {
	var g model.ChatGroup
	path := fmt.Sprintf("/api/groups/%d/add-user/%d", groupID, userID)
	if err := c.Put(ctx, path, nil, &g); err != nil {
		return model.ChatGroup{}, err
	}
	return g, nil
}

// SearchUsers finds users by name or email.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]model.ChatUser, error) {
	var list []model.ChatUser
	if err := c.Get(ctx, "/api/chatt/search/users", url.Values{"query": {query}}, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Conversation returns the messages exchanged with peer.
func (c *Client) Conversation(ctx context.Context, peer model.ChatPeer) ([]model.ChatMessage, error) {
	var list []model.ChatMessage
	if err := c.Get(ctx, messagesPath(peer), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SendMessage posts a message to peer over HTTP.
func (c *Client) SendMessage(ctx context.Context, peer model.ChatPeer, content string) (model.ChatMessage, error) {
	var msg model.ChatMessage
	if err := c.Post(ctx, messagesPath(peer), Text(content), &msg); err != nil {
		return model.ChatMessage{}, err
	}
	return msg, nil
}

// UnreadCount returns how many messages from peer the user has not read.
func (c *Client) UnreadCount(ctx context.Context, peer model.ChatPeer) (int64, error) {
	path, q := peerQuery(peer, "unread-count")
	var n int64
	if err := c.Get(ctx, path, q, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkRead marks the conversation with peer as read.
func (c *Client) MarkRead(ctx context.Context, peer model.ChatPeer) error {
	path, q := peerQuery(peer, "mark-read")
	return c.Post(ctx, path+"?"+q.Encode(), nil, nil)
}

func messagesPath(peer model.ChatPeer) string {
	if peer.IsGroup {
		return fmt.Sprintf("/api/messages/group/%d", peer.ID)
	}
	return fmt.Sprintf("/api/messages/private/%d", peer.ID)
}

func peerQuery(peer model.ChatPeer, action string) (string, url.Values) {
	id := strconv.FormatInt(peer.ID, 10)
	if peer.IsGroup {
		return "/api/chatt/messages/group/" + action, url.Values{"groupId": {id}}
	}
	return "/api/chatt/messages/private/" + action, url.Values{"userId": {id}}
}
