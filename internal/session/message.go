package session

import "time"

type Kind string

const (
	Info    Kind = "info"
	Success Kind = "success"
	Warning Kind = "warning"
	Error   Kind = "error"
)

// Message is a transient notice shown on one page area until it expires.
type Message struct {
	Kind    Kind
	Text    string
	expires time.Time
}

// Flash sets the message for an area. Setting it again restarts the timer.
func (s *Store) Flash(id, area string, kind Kind, text string) {
	s.Do(id, func(ws *Workspace) {
		ws.messages[area] = Message{Kind: kind, Text: text, expires: s.now().Add(s.msgTTL)}
	})
}

// Message returns the live message of an area. Expired messages are removed.
func (s *Store) Message(id, area string) (Message, bool) {
	var (
		msg Message
		ok  bool
	)
	s.Do(id, func(ws *Workspace) {
		msg, ok = ws.messages[area]
		if ok && !s.now().Before(msg.expires) {
			delete(ws.messages, area)
			msg, ok = Message{}, false
		}
	})
	return msg, ok
}

// ClearMessage removes an area's message.
func (s *Store) ClearMessage(id, area string) {
	s.Do(id, func(ws *Workspace) {
		delete(ws.messages, area)
	})
}
