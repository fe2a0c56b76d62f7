package mail

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convergeops/convergectl/pkg/log"
)

// fakeRelay is a single-transaction SMTP listener. It speaks just
// enough of the protocol for net/smtp and records the submitted
// message.
type fakeRelay struct {
	addr string
	done chan struct{}

	from string
	rcpt []string
	data string
}

func startFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	r := &fakeRelay{addr: ln.Addr().String(), done: make(chan struct{})}
	go r.serve(ln)
	return r
}

func (r *fakeRelay) serve(ln net.Listener) {
	defer close(r.done)

	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	br := bufio.NewReader(conn)
	reply := func(line string) { conn.Write([]byte(line + "\r\n")) }

	reply("220 fake ESMTP ready")
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 fake greets you")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			r.from = strings.TrimSpace(line)
			reply("250 sender ok")
		case strings.HasPrefix(cmd, "RCPT TO"):
			r.rcpt = append(r.rcpt, strings.TrimSpace(line))
			reply("250 recipient ok")
		case cmd == "DATA":
			reply("354 end with <CRLF>.<CRLF>")
			var body strings.Builder
			for {
				dl, err := br.ReadString('\n')
				if err != nil {
					return
				}
				if dl == ".\r\n" {
					break
				}
				body.WriteString(dl)
			}
			r.data = body.String()
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 ok")
		}
	}
}

func (r *fakeRelay) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not finish transaction")
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	relay := startFakeRelay(t)

	host, port, err := net.SplitHostPort(relay.addr)
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	m, err := NewSMTPMailer(SMTPConfig{
		Host: host,
		Port: portNum,
		From: "converge@web01.example.com",
	}, log.Nop())
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{
		To:      "admin@example.com",
		Subject: "converge agent disabled on web01",
		Body:    "reason: kernel upgrade in progress\n",
	})
	require.NoError(t, err)
	relay.wait(t)

	assert.Contains(t, relay.from, "converge@web01.example.com")
	require.Len(t, relay.rcpt, 1)
	assert.Contains(t, relay.rcpt[0], "admin@example.com")

	assert.Contains(t, relay.data, "From: converge@web01.example.com\r\n")
	assert.Contains(t, relay.data, "To: admin@example.com\r\n")
	assert.Contains(t, relay.data, "Subject: converge agent disabled on web01\r\n")
	assert.Contains(t, relay.data, "Message-ID: <")
	assert.Contains(t, relay.data, "reason: kernel upgrade in progress")
}

func TestSMTPMailer_ConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	m, err := NewSMTPMailer(SMTPConfig{Host: host, Port: portNum, Timeout: time.Second}, log.Nop())
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{To: "admin@example.com", Subject: "s", Body: "b"})
	assert.Error(t, err)
}

func TestNewSMTPMailer_RequiresHost(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{}, log.Nop())
	assert.Error(t, err)
}

func TestNewSMTPMailer_Defaults(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "relay.example.com"}, log.Nop())
	require.NoError(t, err)
	assert.Equal(t, 25, m.cfg.Port)
	assert.NotEmpty(t, m.cfg.From)
	assert.Contains(t, m.cfg.From, "convergectl@")
}

func TestBuildMessage_TerminatesBody(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "relay.example.com", From: "a@b"}, log.Nop())
	require.NoError(t, err)

	data := string(m.buildMessage(Message{To: "c@d", Subject: "s", Body: "no trailing newline"}))
	assert.True(t, strings.HasSuffix(data, "no trailing newline\r\n"))
	assert.Contains(t, data, "MIME-Version: 1.0\r\n")
}

func TestNew_SelectsTransport(t *testing.T) {
	cmd, err := New(Config{Transport: TransportCommand}, log.Nop())
	require.NoError(t, err)
	assert.IsType(t, &CommandMailer{}, cmd)

	def, err := New(Config{}, log.Nop())
	require.NoError(t, err)
	assert.IsType(t, &CommandMailer{}, def)

	rel, err := New(Config{Transport: TransportSMTP, SMTP: SMTPConfig{Host: "relay.example.com"}}, log.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, rel)

	_, err = New(Config{Transport: "carrier-pigeon"}, log.Nop())
	assert.Error(t, err)
}
