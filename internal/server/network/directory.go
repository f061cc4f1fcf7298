// Package network keeps the history server's view of network state: which
// users and channels exist, their names, and channel membership.
//
// The view is fed the same state changes as the history log. It answers the
// questions history needs from the wider network: name resolution, who
// should see a change, and whether a user may read a target's history.
package network

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/revrsefr/sable/internal/history"
)

// SecretMode is the channel mode that hides a channel from non-members.
const SecretMode = 's'

// User is a network user as seen by the directory.
type User struct {
	ID       history.UserID `json:"id"`
	Nick     string         `json:"nick"`
	Username string         `json:"username"`
	Host     string         `json:"host"`
	Realname string         `json:"realname"`
	Account  string         `json:"account,omitempty"`
	Away     string         `json:"away,omitempty"`
	Online   bool           `json:"online"`
}

// Mask returns nick!user@host.
func (u User) Mask() string {
	return u.Nick + "!" + u.Username + "@" + u.Host
}

// Channel is a network channel as seen by the directory.
type Channel struct {
	ID      history.ChannelID `json:"id"`
	Name    string            `json:"name"`
	Modes   string            `json:"modes"`
	Topic   string            `json:"topic,omitempty"`
	Members []history.UserID  `json:"members"`
}

// Secret reports whether the channel carries SecretMode.
func (c Channel) Secret() bool {
	return strings.IndexByte(c.Modes, SecretMode) >= 0
}

type channel struct {
	id      history.ChannelID
	name    string
	modes   string
	topic   string
	members map[history.UserID]struct{}
}

// Directory is the network view. It is safe for concurrent use.
type Directory struct {
	mu       sync.RWMutex
	users    map[history.UserID]*User
	nicks    map[string]history.UserID
	channels map[history.ChannelID]*channel
	names    map[string]history.ChannelID
}

func NewDirectory() *Directory {
	return &Directory{
		users:    make(map[history.UserID]*User),
		nicks:    make(map[string]history.UserID),
		channels: make(map[history.ChannelID]*channel),
		names:    make(map[string]history.ChannelID),
	}
}

// Resolve maps a nick or channel name to a target. Users that have quit
// no longer resolve.
func (d *Directory) Resolve(name string) (history.TargetID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	folded := Casefold(name)
	if IsChannelName(name) {
		id, ok := d.names[folded]
		if !ok {
			return history.TargetID{}, false
		}
		return history.ChannelTarget(id), true
	}

	id, ok := d.nicks[folded]
	if !ok {
		return history.TargetID{}, false
	}
	return history.UserTarget(id), true
}

// Known reports whether t refers to a user or channel the directory has seen.
func (d *Directory) Known(t history.TargetID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch t.Kind {
	case history.TargetUser:
		_, ok := d.users[t.User]
		return ok
	case history.TargetChannel:
		_, ok := d.channels[t.Channel]
		return ok
	default:
		return false
	}
}

// Name returns the display name of t: the user's current (or last) nick or
// the channel's current name.
func (d *Directory) Name(t history.TargetID) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch t.Kind {
	case history.TargetUser:
		if u, ok := d.users[t.User]; ok {
			return u.Nick, true
		}
	case history.TargetChannel:
		if c, ok := d.channels[t.Channel]; ok {
			return c.name, true
		}
	}
	return "", false
}

// User returns a copy of the user record.
func (d *Directory) User(id history.UserID) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Channel returns a copy of the channel record with members sorted.
func (d *Directory) Channel(id history.ChannelID) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.channels[id]
	if !ok {
		return Channel{}, false
	}
	return c.export(), true
}

// CanSee reports whether user may read history for t. Any user target is
// visible; a channel is visible unless it is secret and user is not a member.
func (d *Directory) CanSee(t history.TargetID, user history.UserID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch t.Kind {
	case history.TargetUser:
		_, ok := d.users[t.User]
		return ok
	case history.TargetChannel:
		c, ok := d.channels[t.Channel]
		if !ok {
			return false
		}
		if strings.IndexByte(c.modes, SecretMode) < 0 {
			return true
		}
		_, member := c.members[user]
		return member
	default:
		return false
	}
}

// Recipients returns the users whose history should record change, in the
// directory state before the change is applied. Kinds that history does not
// retain have no recipients.
func (d *Directory) Recipients(change history.StateChange) []history.UserID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	set := make(map[history.UserID]struct{})
	add := func(u history.UserID) {
		if u != "" {
			set[u] = struct{}{}
		}
	}
	members := func(id history.ChannelID) {
		if c, ok := d.channels[id]; ok {
			for u := range c.members {
				set[u] = struct{}{}
			}
		}
	}

	switch c := change.(type) {
	case history.NewMessage:
		if c.Target.IsChannel() {
			members(c.Target.Channel)
		} else {
			add(c.Source)
			add(c.Target.User)
		}
	case history.UserNickChange:
		add(c.User)
		d.addPeers(c.User, set)
	case history.UserQuit:
		add(c.User)
		d.addPeers(c.User, set)
	case history.ChannelJoin:
		members(c.Channel)
		add(c.User)
	case history.ChannelInvite:
		members(c.Channel)
		add(c.User)
	case history.ChannelKick:
		members(c.Channel)
		add(c.User)
	case history.ChannelPart:
		members(c.Channel)
		add(c.User)
	case history.ChannelModeChange:
		members(c.Channel)
	case history.ChannelTopicChange:
		members(c.Channel)
	case history.ListModeAdded:
		members(c.Channel)
	case history.ListModeRemoved:
		members(c.Channel)
	case history.MembershipFlagChange:
		members(c.Channel)
	case history.ChannelRename:
		members(c.Channel)
	default:
		return nil
	}

	out := make([]history.UserID, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// addPeers adds every user sharing a channel with user. Callers hold d.mu.
func (d *Directory) addPeers(user history.UserID, set map[history.UserID]struct{}) {
	for _, c := range d.channels {
		if _, ok := c.members[user]; !ok {
			continue
		}
		for u := range c.members {
			set[u] = struct{}{}
		}
	}
}

// Apply updates the directory with change.
func (d *Directory) Apply(change history.StateChange) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch c := change.(type) {
	case history.NewUser:
		if old, ok := d.users[c.User]; ok {
			d.unbindNick(old)
		}
		u := &User{
			ID:       c.User,
			Nick:     c.Nick,
			Username: c.Username,
			Host:     c.Host,
			Realname: c.Realname,
			Account:  c.Account,
			Online:   true,
		}
		d.users[c.User] = u
		d.nicks[Casefold(c.Nick)] = c.User
	case history.UserNickChange:
		u, ok := d.users[c.User]
		if !ok {
			return
		}
		d.unbindNick(u)
		u.Nick = c.NewNick
		if u.Online {
			d.nicks[Casefold(u.Nick)] = u.ID
		}
	case history.UserQuit:
		u, ok := d.users[c.User]
		if !ok {
			return
		}
		d.unbindNick(u)
		u.Online = false
		for _, ch := range d.channels {
			delete(ch.members, c.User)
		}
	case history.UserLoginChange:
		if u, ok := d.users[c.User]; ok {
			u.Account = c.Account
		}
	case history.UserAwayChange:
		if u, ok := d.users[c.User]; ok {
			u.Away = c.Reason
		}
	case history.ChannelJoin:
		ch := d.channelFor(c.Channel, c.ChannelName)
		ch.members[c.User] = struct{}{}
	case history.ChannelPart:
		if ch, ok := d.channels[c.Channel]; ok {
			delete(ch.members, c.User)
		}
	case history.ChannelKick:
		if ch, ok := d.channels[c.Channel]; ok {
			delete(ch.members, c.User)
		}
	case history.ChannelRename:
		ch, ok := d.channels[c.Channel]
		if !ok {
			return
		}
		if d.names[Casefold(ch.name)] == ch.id {
			delete(d.names, Casefold(ch.name))
		}
		ch.name = c.NewName
		d.names[Casefold(ch.name)] = ch.id
	case history.ChannelModeChange:
		if ch, ok := d.channels[c.Channel]; ok {
			ch.modes = applyModes(ch.modes, c.Added, c.Removed)
		}
	case history.ChannelTopicChange:
		if ch, ok := d.channels[c.Channel]; ok {
			ch.topic = c.Topic
		}
	}
}

func (d *Directory) unbindNick(u *User) {
	key := Casefold(u.Nick)
	if d.nicks[key] == u.ID {
		delete(d.nicks, key)
	}
}

func (d *Directory) channelFor(id history.ChannelID, name string) *channel {
	ch, ok := d.channels[id]
	if !ok {
		ch = &channel{id: id, name: name, members: make(map[history.UserID]struct{})}
		d.channels[id] = ch
	}
	if ch.name == "" && name != "" {
		ch.name = name
	}
	if ch.name != "" {
		d.names[Casefold(ch.name)] = id
	}
	return ch
}

// applyModes returns modes with added set and removed cleared, sorted.
func applyModes(modes, added, removed string) string {
	set := make(map[rune]struct{})
	for _, r := range modes {
		set[r] = struct{}{}
	}
	for _, r := range added {
		set[r] = struct{}{}
	}
	for _, r := range removed {
		delete(set, r)
	}

	out := make([]rune, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return string(out)
}

func (c *channel) export() Channel {
	members := make([]history.UserID, 0, len(c.members))
	for u := range c.members {
		members = append(members, u)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	return Channel{ID: c.id, Name: c.name, Modes: c.modes, Topic: c.topic, Members: members}
}

type directoryJSON struct {
	Users    []User    `json:"users"`
	Channels []Channel `json:"channels"`
}

// MarshalJSON encodes the directory with users and channels sorted by id.
func (d *Directory) MarshalJSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := directoryJSON{
		Users:    make([]User, 0, len(d.users)),
		Channels: make([]Channel, 0, len(d.channels)),
	}
	for _, u := range d.users {
		out.Users = append(out.Users, *u)
	}
	for _, c := range d.channels {
		out.Channels = append(out.Channels, c.export())
	}
	sort.Slice(out.Users, func(i, j int) bool { return out.Users[i].ID < out.Users[j].ID })
	sort.Slice(out.Channels, func(i, j int) bool { return out.Channels[i].ID < out.Channels[j].ID })

	return json.Marshal(out)
}

// UnmarshalJSON replaces the directory contents.
func (d *Directory) UnmarshalJSON(data []byte) error {
	var in directoryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	fresh := NewDirectory()
	for i := range in.Users {
		u := in.Users[i]
		fresh.users[u.ID] = &u
		if u.Online {
			fresh.nicks[Casefold(u.Nick)] = u.ID
		}
	}
	for _, c := range in.Channels {
		ch := fresh.channelFor(c.ID, c.Name)
		ch.modes = c.Modes
		ch.topic = c.Topic
		for _, m := range c.Members {
			ch.members[m] = struct{}{}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users, d.nicks = fresh.users, fresh.nicks
	d.channels, d.names = fresh.channels, fresh.names

	return nil
}
