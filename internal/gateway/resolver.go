package gateway

import (
	"strings"
	"sync"
)

// Directory maps human-entered mentions and channel names to workspace
// ids. It is fed by directory events from the chat server and only ever
// consulted at the command boundary; resolution failures become
// user-facing "not found" replies, never engine errors.
type Directory struct {
	mu       sync.RWMutex
	users    map[string]UserInfo
	channels map[string]ChannelInfo
}

func NewDirectory() *Directory {
	return &Directory{
		users:    make(map[string]UserInfo),
		channels: make(map[string]ChannelInfo),
	}
}

// Update replaces directory entries for the given users and channels.
func (d *Directory) Update(users []UserInfo, channels []ChannelInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range users {
		d.users[u.ID] = u
	}
	for _, c := range channels {
		d.channels[c.ID] = c
	}
}

// ResolveUser maps "@name" (or a bare name) to a user id, matching the
// handle or display name case-insensitively.
func (d *Directory) ResolveUser(mention string) (string, bool) {
	name := strings.TrimPrefix(strings.TrimSpace(mention), "@")
	if name == "" {
		return "", false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Name, name) || strings.EqualFold(u.DisplayName, name) {
			return u.ID, true
		}
	}
	return "", false
}

// ResolveChannel maps "#name" (or a bare name) to a channel id.
func (d *Directory) ResolveChannel(name string) (string, bool) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "#")
	if name == "" {
		return "", false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.channels {
		if strings.EqualFold(c.Name, name) {
			return c.ID, true
		}
	}
	return "", false
}

// ResolveConversation maps a destination value to a user or channel id:
// "@x" forces a user, "#x" forces a channel, anything else tries both.
func (d *Directory) ResolveConversation(value string) (string, bool) {
	value = strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(value, "@"):
		return d.ResolveUser(value)
	case strings.HasPrefix(value, "#"):
		return d.ResolveChannel(value)
	}
	if id, ok := d.ResolveUser(value); ok {
		return id, true
	}
	return d.ResolveChannel(value)
}

// DisplayName returns the best display string for a user id, falling back
// to the id itself.
func (d *Directory) DisplayName(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return id
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Name != "" {
		return u.Name
	}
	return id
}
