package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/viewtl/viewlink/internal/connection"
	"github.com/viewtl/viewlink/internal/message"
)

// mockSender records sent keys and can fail on demand.
type mockSender struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (s *mockSender) Send(_ context.Context, m message.Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.keys = append(s.keys, m.(message.Get).Key)
	return nil
}

func (s *mockSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

func TestPoller_Poll(t *testing.T) {
	sender := &mockSender{}
	p := New(Config{Interval: time.Hour, Keys: []string{"battery", "program"}}, sender, nil)
	p.ctx = context.Background()

	p.poll()

	got := sender.sent()
	if len(got) != 2 || got[0] != "battery" || got[1] != "program" {
		t.Errorf("sent = %v, want [battery program]", got)
	}
	if s := p.Stats(); s.Polls != 1 || s.Skipped != 0 || s.Errors != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestPoller_SkipsWhileDisconnected(t *testing.T) {
	sender := &mockSender{err: connection.ErrNotConnected}
	p := New(Config{Interval: time.Hour, Keys: []string{"battery"}}, sender, nil)
	p.ctx = context.Background()

	p.poll()

	if s := p.Stats(); s.Skipped != 1 || s.Polls != 0 || s.Errors != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestPoller_CountsErrors(t *testing.T) {
	sender := &mockSender{err: errors.New("write: broken pipe")}
	p := New(Config{Interval: time.Hour, Keys: []string{"battery", "program"}}, sender, nil)
	p.ctx = context.Background()

	p.poll()

	if s := p.Stats(); s.Errors != 1 || s.Polls != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestPoller_StartStop(t *testing.T) {
	sender := &mockSender{}
	p := New(Config{Interval: 10 * time.Millisecond, Keys: []string{"battery"}}, sender, nil)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.Stats().Polls < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("polls = %d, want >= 2", p.Stats().Polls)
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	after := len(sender.sent())
	time.Sleep(30 * time.Millisecond)
	if got := len(sender.sent()); got != after {
		t.Errorf("sent %d more after Stop", got-after)
	}
}

func TestPoller_StartRejectsZeroInterval(t *testing.T) {
	p := New(Config{}, &mockSender{}, nil)
	if err := p.Start(context.Background()); err == nil {
		t.Error("Start() with zero interval should fail")
	}
}
