package smtptest

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"
)

// Session states.
const (
	stateConnected = iota
	stateGreeted
	stateAuthOK
	stateMailFrom
	stateRcptTo
)

const idleTimeout = 10 * time.Second

type session struct {
	srv    *Server
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	state  int

	tlsActive bool

	mailFrom string
	rcptTo   []string
}

func newSession(srv *Server, conn net.Conn) *session {
	_, isTLS := conn.(*tls.Conn)
	return &session{
		srv:       srv,
		conn:      conn,
		reader:    bufio.NewReader(conn),
		writer:    bufio.NewWriter(conn),
		state:     stateConnected,
		tlsActive: isTLS,
	}
}

func (s *session) handle() {
	defer s.conn.Close()

	s.writeLine("220 %s ESMTP bulk-mailer test server", s.srv.opts.Hostname)

	for {
		if err := s.conn.SetDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				slog.Debug("smtptest: connection read error", "error", err)
			}
			return
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		cmd, arg := parseCommand(line)
		if s.handleCommand(cmd, arg) {
			return
		}
	}
}

// handleCommand processes one command and reports whether the session ends.
func (s *session) handleCommand(cmd, arg string) bool {
	switch cmd {
	case "EHLO", "HELO":
		s.handleHello(cmd, arg)
	case "STARTTLS":
		s.handleStartTLS()
	case "AUTH":
		s.handleAuth(arg)
	case "MAIL":
		s.handleMail(arg)
	case "RCPT":
		s.handleRcpt(arg)
	case "DATA":
		s.handleData()
	case "RSET":
		s.resetTransaction()
		s.writeLine("250 OK")
	case "NOOP":
		s.writeLine("250 OK")
	case "QUIT":
		s.srv.quit()
		s.writeLine("221 Bye")
		return true
	default:
		s.writeLine("500 Unrecognized command")
	}
	return false
}

func (s *session) handleHello(cmd, arg string) {
	if arg == "" {
		s.writeLine("501 Syntax: %s hostname", cmd)
		return
	}
	if s.srv.opts.RejectHello {
		s.writeLine("554 5.7.1 Hello %s rejected", arg)
		return
	}

	s.state = stateGreeted
	if cmd == "HELO" {
		s.writeLine("250 %s Hello %s", s.srv.opts.Hostname, arg)
		return
	}

	s.writeLine("250-%s Hello %s", s.srv.opts.Hostname, arg)
	if s.srv.opts.Security == StartTLS && !s.tlsActive {
		s.writeLine("250-STARTTLS")
	}
	if s.srv.auth.enabled() {
		s.writeLine("250-AUTH PLAIN LOGIN")
	}
	s.writeLine("250 OK")
}

func (s *session) handleStartTLS() {
	if s.srv.opts.Security != StartTLS || s.tlsActive {
		s.writeLine("454 TLS not available")
		return
	}

	s.writeLine("220 Ready to start TLS")

	tlsConn := tls.Server(s.conn, s.srv.tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		slog.Debug("smtptest: TLS handshake failed", "error", err)
		return
	}

	s.conn = tlsConn
	s.reader = bufio.NewReader(tlsConn)
	s.writer = bufio.NewWriter(tlsConn)
	s.tlsActive = true
	s.state = stateConnected
}

func (s *session) handleAuth(arg string) {
	if s.state < stateGreeted {
		s.writeLine("503 Send EHLO/HELO first")
		return
	}
	if !s.srv.auth.enabled() {
		s.writeLine("503 AUTH not available")
		return
	}

	parts := strings.SplitN(arg, " ", 2)
	var err error
	switch strings.ToUpper(parts[0]) {
	case "PLAIN":
		err = s.authPlain(parts)
	case "LOGIN":
		err = s.authLogin()
	default:
		s.writeLine("504 Unrecognized authentication type")
		return
	}

	switch {
	case errors.Is(err, errCancelled):
		s.writeLine("501 Authentication cancelled")
	case err != nil:
		s.writeLine("535 5.7.8 Authentication credentials invalid")
	default:
		s.state = stateAuthOK
		s.writeLine("235 Authentication successful")
	}
}

var errCancelled = errors.New("authentication cancelled")

func (s *session) authPlain(parts []string) error {
	encoded := ""
	if len(parts) > 1 && parts[1] != "" {
		encoded = parts[1]
	} else {
		s.writeLine("334 ")
		line, err := s.readAuthLine()
		if err != nil {
			return err
		}
		encoded = line
	}
	return s.srv.auth.verifyPlain(encoded)
}

func (s *session) authLogin() error {
	s.writeLine("334 VXNlcm5hbWU6")
	user, err := s.readAuthLine()
	if err != nil {
		return err
	}
	s.writeLine("334 UGFzc3dvcmQ6")
	pass, err := s.readAuthLine()
	if err != nil {
		return err
	}
	return s.srv.auth.verifyLogin(user, pass)
}

func (s *session) readAuthLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "*" {
		return "", errCancelled
	}
	return line, nil
}

func (s *session) handleMail(arg string) {
	if s.state < stateGreeted {
		s.writeLine("503 Send EHLO/HELO first")
		return
	}
	if s.srv.auth.enabled() && s.state < stateAuthOK {
		s.writeLine("530 5.7.0 Authentication required")
		return
	}
	if !strings.HasPrefix(strings.ToUpper(arg), "FROM:") {
		s.writeLine("501 Syntax: MAIL FROM:<address>")
		return
	}

	addr := extractAddress(arg[5:])
	if addr == "" {
		s.writeLine("501 Syntax: MAIL FROM:<address>")
		return
	}
	if s.srv.opts.RejectSender {
		s.writeLine("553 5.7.1 Sender <%s> not allowed", addr)
		return
	}

	s.mailFrom = addr
	s.rcptTo = nil
	s.state = stateMailFrom
	s.writeLine("250 OK")
}

func (s *session) handleRcpt(arg string) {
	if s.state < stateMailFrom {
		s.writeLine("503 Send MAIL FROM first")
		return
	}
	if !strings.HasPrefix(strings.ToUpper(arg), "TO:") {
		s.writeLine("501 Syntax: RCPT TO:<address>")
		return
	}

	addr := extractAddress(arg[3:])
	if addr == "" {
		s.writeLine("501 Syntax: RCPT TO:<address>")
		return
	}
	if s.srv.refused[strings.ToLower(addr)] {
		s.writeLine("550 5.1.1 <%s>: Recipient address rejected", addr)
		return
	}

	s.rcptTo = append(s.rcptTo, addr)
	s.state = stateRcptTo
	s.writeLine("250 OK")
}

func (s *session) handleData() {
	if s.state < stateRcptTo {
		s.writeLine("503 Send RCPT TO first")
		return
	}

	s.writeLine("354 Start mail input; end with <CRLF>.<CRLF>")

	var data strings.Builder
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			slog.Debug("smtptest: error reading DATA", "error", err)
			return
		}
		if strings.TrimRight(line, "\r\n") == "." {
			break
		}
		if strings.HasPrefix(line, ".") {
			line = line[1:]
		}
		data.WriteString(line)
	}

	if s.srv.opts.RejectData {
		s.writeLine("554 5.6.0 Message rejected")
		s.resetTransaction()
		return
	}

	s.srv.record(Delivery{
		From: s.mailFrom,
		To:   append([]string(nil), s.rcptTo...),
		Data: []byte(data.String()),
	})
	s.writeLine("250 OK message queued")
	s.resetTransaction()
}

func (s *session) resetTransaction() {
	s.mailFrom = ""
	s.rcptTo = nil

	if s.srv.auth.enabled() && s.state >= stateAuthOK {
		s.state = stateAuthOK
	} else if s.state >= stateGreeted {
		s.state = stateGreeted
	}
}

func (s *session) writeLine(format string, args ...any) {
	if _, err := fmt.Fprintf(s.writer, format+"\r\n", args...); err != nil {
		return
	}
	_ = s.writer.Flush()
}

func parseCommand(line string) (string, string) {
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToUpper(cmd), arg
}

// extractAddress returns the address of "<user@example.com> PARAMS" or of a
// bare "user@example.com".
func extractAddress(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") {
		end := strings.Index(s, ">")
		if end < 0 {
			return ""
		}
		return s[1:end]
	}
	addr, _, _ := strings.Cut(s, " ")
	return addr
}
