package mq

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// Recorded is a message captured by a Recorder.
type Recorded struct {
	Channel    string
	Data       []byte
	Attributes map[string]string
}

// Recorder is an in-process backend that keeps every published message.
// It backs the "memory" MQ backend and tests.
type Recorder struct {
	mu       sync.Mutex
	messages []Recorded
	closed   bool
	fail     error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", errors.New("recorder closed")
	}
	if r.fail != nil {
		return "", r.fail
	}
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	r.messages = append(r.messages, Recorded{Channel: channel, Data: append([]byte(nil), data...), Attributes: copied})
	return strconv.Itoa(len(r.messages)), nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// FailWith makes subsequent publishes return err. Nil restores success.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

// Messages returns a copy of everything published so far.
func (r *Recorder) Messages() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.messages))
	copy(out, r.messages)
	return out
}

// Types lists the "type" attribute of each recorded message.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.messages))
	for _, m := range r.messages {
		types = append(types, m.Attributes["type"])
	}
	return types
}
