package mail

import (
	"context"
	"regexp"
	"sync"
)

var tokenInLink = regexp.MustCompile(`token=([A-Za-z0-9]{16})`)

// Recorder is an in-memory Dispatcher that keeps every message it accepts.
// Set Err to make Send fail.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (r *Recorder) Send(_ context.Context, to, body, subject string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, Message{To: to, Subject: subject, Body: body})
	return nil
}

func (r *Recorder) SetErr(err error) {
	r.mu.Lock()
	r.Err = err
	r.mu.Unlock()
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Last returns the most recent message addressed to to.
func (r *Recorder) Last(to string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].To == to {
			return r.sent[i], true
		}
	}
	return Message{}, false
}

// LastToken extracts the token from the latest link mailed to to.
func (r *Recorder) LastToken(to string) string {
	m, ok := r.Last(to)
	if !ok {
		return ""
	}
	if match := tokenInLink.FindStringSubmatch(m.Body); match != nil {
		return match[1]
	}
	return ""
}
