// Package gateway maintains the websocket connection to the chat server,
// resolves names, renders outbound text, and dispatches inbound messages
// to the chore services. Everything chat-shaped stays in this package; the
// engines underneath only ever see validated, typed input.
package gateway

// File is an attachment on an inbound message.
type File struct {
	ID       string `json:"id"`
	URL      string `json:"url,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
}

// UserInfo is a directory entry for a workspace member.
type UserInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
}

// ChannelInfo is a directory entry for a conversation.
type ChannelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is one inbound frame from the chat server.
type Event struct {
	Type     string        `json:"type"` // "hello", "directory", "message"
	User     string        `json:"user,omitempty"`
	Channel  string        `json:"channel,omitempty"`
	Text     string        `json:"text,omitempty"`
	Files    []File        `json:"files,omitempty"`
	Users    []UserInfo    `json:"users,omitempty"`
	Channels []ChannelInfo `json:"channels,omitempty"`
}

const (
	eventHello     = "hello"
	eventDirectory = "directory"
	eventMessage   = "message"
)

// postFrame is the only outbound frame: deliver text to a conversation or
// user.
type postFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
}
