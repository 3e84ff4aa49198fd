package marionette

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// MaxMessageSize bounds a single packet in either direction.
const MaxMessageSize = 64 * 1024 * 1024

const (
	msgCommand  = 0
	msgResponse = 1
)

// greeting is sent by the server as soon as a connection is accepted.
type greeting struct {
	ApplicationType string `json:"applicationType"`
	Protocol        int    `json:"marionetteProtocol"`
}

// wireError is the error object of a failed response.
type wireError struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Stacktrace string `json:"stacktrace"`
}

// WritePacket writes v as a "<length>:<json>" packet.
func WritePacket(w io.Writer, v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes", len(data))
	}

	packet := make([]byte, 0, len(data)+12)
	packet = strconv.AppendInt(packet, int64(len(data)), 10)
	packet = append(packet, ':')
	packet = append(packet, data...)

	if _, err := w.Write(packet); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

// ReadPacket reads one "<length>:<json>" packet and decodes it into v.
func ReadPacket(r *bufio.Reader, v interface{}) error {
	prefix, err := r.ReadString(':')
	if err != nil {
		return fmt.Errorf("read length: %w", err)
	}

	length, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(prefix, ":")))
	if err != nil {
		return fmt.Errorf("invalid length prefix %q", prefix)
	}
	if length < 0 || length > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}

// readGreeting consumes the server greeting and checks the protocol level.
func readGreeting(r *bufio.Reader) (greeting, error) {
	var g greeting
	if err := ReadPacket(r, &g); err != nil {
		return g, fmt.Errorf("read greeting: %w", err)
	}
	if g.Protocol < 3 {
		return g, fmt.Errorf("unsupported marionette protocol level %d", g.Protocol)
	}
	return g, nil
}

// response is a decoded [1, id, error, result] packet.
type response struct {
	ID     uint32
	Error  *wireError
	Result json.RawMessage
}

func decodeResponse(raw []json.RawMessage) (response, error) {
	var resp response
	if len(raw) != 4 {
		return resp, fmt.Errorf("malformed response with %d fields", len(raw))
	}

	var typ int
	if err := sonic.Unmarshal(raw[0], &typ); err != nil {
		return resp, fmt.Errorf("malformed response type: %w", err)
	}
	if typ != msgResponse {
		return resp, errors.New("unexpected packet from server")
	}
	if err := sonic.Unmarshal(raw[1], &resp.ID); err != nil {
		return resp, fmt.Errorf("malformed response id: %w", err)
	}
	if !isNull(raw[2]) {
		resp.Error = &wireError{}
		if err := sonic.Unmarshal(raw[2], resp.Error); err != nil {
			return resp, fmt.Errorf("malformed response error: %w", err)
		}
	}
	if !isNull(raw[3]) {
		resp.Result = raw[3]
	}
	return resp, nil
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
