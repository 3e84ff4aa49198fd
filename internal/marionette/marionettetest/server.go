// Package marionettetest provides an in-process Marionette server for tests.
package marionettetest

import (
	"bufio"
	"net"
	"sync"

	"github.com/kumar303/ezboot/internal/marionette"
)

// ElementKey is the web element identifier used in element references.
const ElementKey = "element-6066-11e4-a52e-4f735466cecf"

// Error is a protocol error returned by a Handler.
type Error struct {
	Code    string
	Message string
}

// Handler answers a single command.
type Handler func(name string, params map[string]interface{}) (interface{}, *Error)

// Ref returns an element reference result for id.
func Ref(id string) map[string]interface{} {
	return map[string]interface{}{"value": map[string]string{ElementKey: id}}
}

// Value wraps v the way Marionette wraps scalar results.
func Value(v interface{}) map[string]interface{} {
	return map[string]interface{}{"value": v}
}

// NoSuchElement is the error returned for locators that do not resolve.
var NoSuchElement = &Error{Code: "no such element", Message: "Unable to locate element"}

// StaleElement is the error returned for detached element references.
var StaleElement = &Error{Code: "stale element reference", Message: "The element reference is stale"}

// Server is a fake Marionette server listening on a loopback port.
type Server struct {
	Addr string

	ln      net.Listener
	handler Handler

	mu       sync.Mutex
	commands []string
	wg       sync.WaitGroup
}

// NewServer starts a server on a random loopback port.
func NewServer(h Handler) (*Server, error) {
	return Listen("127.0.0.1:0", h)
}

// Listen starts a server on addr.
func Listen(addr string, h Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{Addr: ln.Addr().String(), ln: ln, handler: h}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Commands returns the names of all commands received so far.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Close stops accepting connections.
func (s *Server) Close() error {
	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	greeting := map[string]interface{}{"applicationType": "gecko", "marionetteProtocol": 3}
	if err := marionette.WritePacket(conn, greeting); err != nil {
		return
	}

	r := bufio.NewReader(conn)
	for {
		var msg []interface{}
		if err := marionette.ReadPacket(r, &msg); err != nil {
			return
		}
		if len(msg) != 4 {
			return
		}

		name, _ := msg[2].(string)
		params, _ := msg[3].(map[string]interface{})

		s.mu.Lock()
		s.commands = append(s.commands, name)
		s.mu.Unlock()

		result, perr := s.dispatch(name, params)

		var errObj interface{}
		if perr != nil {
			errObj = map[string]string{"error": perr.Code, "message": perr.Message, "stacktrace": ""}
			result = nil
		}
		if err := marionette.WritePacket(conn, []interface{}{1, msg[1], errObj, result}); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(name string, params map[string]interface{}) (interface{}, *Error) {
	if name == "WebDriver:NewSession" {
		return map[string]interface{}{"sessionId": "session-1", "capabilities": map[string]interface{}{"browserName": "b2g"}}, nil
	}
	if s.handler == nil {
		return nil, &Error{Code: "unknown command", Message: name}
	}
	return s.handler(name, params)
}
