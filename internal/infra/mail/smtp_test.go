package mail

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

// fakeSMTP accepts one session and records the DATA payload.
type fakeSMTP struct {
	ln   net.Listener
	mu   sync.Mutex
	data strings.Builder
	rcpt []string
	done chan struct{}
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeSMTP{ln: ln, done: make(chan struct{})}
	t.Cleanup(func() { _ = ln.Close() })
	go f.serve()
	return f
}

func (f *fakeSMTP) port() int { return f.ln.Addr().(*net.TCPAddr).Port }

func (f *fakeSMTP) serve() {
	defer close(f.done)
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	r := bufio.NewReader(conn)
	reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
	reply("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250-fake")
			reply("250 8BITMIME")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			f.mu.Lock()
			f.rcpt = append(f.rcpt, strings.TrimSpace(line[len("RCPT TO:"):]))
			f.mu.Unlock()
			reply("250 OK")
		case cmd == "DATA":
			reply("354 go ahead")
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				f.mu.Lock()
				f.data.WriteString(l)
				f.mu.Unlock()
			}
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func TestSMTPNotifier_Sends(t *testing.T) {
	srv := startFakeSMTP(t)
	n := NewSMTP("127.0.0.1", srv.port(), "", "", "noreply@brainscan.test")
	n.TLS = false

	err := n.Notify(context.Background(), domain.Email{
		To:      "alice@example.com",
		Subject: "Your BrainScan Analysis is Ready!",
		Body:    "Hello Alice,",
	})
	require.NoError(t, err)

	select {
	case <-srv.done:
	case <-time.After(5 * time.Second):
		t.Fatal("smtp session did not finish")
	}
	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.rcpt, 1)
	assert.Contains(t, srv.rcpt[0], "alice@example.com")
	assert.Contains(t, srv.data.String(), "Subject: Your BrainScan Analysis is Ready!")
	assert.Contains(t, srv.data.String(), "Hello Alice,")
}

func TestSMTPNotifier_BadRecipient(t *testing.T) {
	n := NewSMTP("127.0.0.1", 1, "", "", "noreply@brainscan.test")
	err := n.Notify(context.Background(), domain.Email{To: "not an address", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotify))
}

func TestSMTPNotifier_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	n := NewSMTP("127.0.0.1", port, "", "", "noreply@brainscan.test")
	n.TLS = false
	n.Timeout = time.Second
	err = n.Notify(context.Background(), domain.Email{To: "a@example.com", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Equal(t, domain.KindNotify, domain.KindOf(err))
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Notify(context.Background(), domain.Email{To: "a@example.com"}))
}
