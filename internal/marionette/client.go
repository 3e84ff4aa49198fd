// Package marionette is a client for the Marionette remote-automation protocol spoken by Gecko based
// devices. It locates elements, runs scripts and simulates input inside the device's web content.
package marionette

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

// Protocol commands.
const (
	cmdNewSession         = "WebDriver:NewSession"
	cmdDeleteSession      = "WebDriver:DeleteSession"
	cmdSwitchToFrame      = "WebDriver:SwitchToFrame"
	cmdFindElement        = "WebDriver:FindElement"
	cmdFindElements       = "WebDriver:FindElements"
	cmdIsElementDisplayed = "WebDriver:IsElementDisplayed"
	cmdElementClick       = "WebDriver:ElementClick"
	cmdElementSendKeys    = "WebDriver:ElementSendKeys"
	cmdExecuteScript      = "WebDriver:ExecuteScript"
	cmdExecuteAsyncScript = "WebDriver:ExecuteAsyncScript"
	cmdSingleTap          = "Marionette:SingleTap"
)

// Searcher finds elements. Both *Client and *Element are Searchers; the latter scopes the search to its
// descendants.
type Searcher interface {
	FindElement(ctx context.Context, loc Locator) (*Element, error)
}

// Session is the set of operations device flows depend on.
type Session interface {
	Searcher
	FindElements(ctx context.Context, loc Locator) ([]*Element, error)
	SwitchToFrame(ctx context.Context, frame *Element) error
	ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error)
	ExecuteAsyncScript(ctx context.Context, script string, args ...interface{}) (interface{}, error)
}

// Client is a connection to a Marionette server.
type Client struct {
	conn   net.Conn
	r      *bufio.Reader
	mu     sync.Mutex
	nextID uint32

	ApplicationType string
	SessionID       string
	Capabilities    map[string]interface{}
}

var _ Session = (*Client)(nil)

// Dial connects to the Marionette server at addr and consumes its greeting.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	c, err := NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) (*Client, error) {
	c := &Client{conn: conn, r: bufio.NewReader(conn)}

	g, err := readGreeting(c.r)
	if err != nil {
		return nil, err
	}
	c.ApplicationType = g.ApplicationType

	log.Debug().Str("application", g.ApplicationType).Int("protocol", g.Protocol).Msg("Connected to marionette")
	return c, nil
}

// Close closes the underlying connection without ending the session.
func (c *Client) Close() error {
	return c.conn.Close()
}

// NewSession starts a new automation session.
func (c *Client) NewSession(ctx context.Context) error {
	var result struct {
		SessionID    string                 `json:"sessionId"`
		Capabilities map[string]interface{} `json:"capabilities"`
	}
	if err := c.call(ctx, cmdNewSession, map[string]interface{}{}, &result); err != nil {
		return err
	}

	c.SessionID = result.SessionID
	c.Capabilities = result.Capabilities
	return nil
}

// DeleteSession ends the current session.
func (c *Client) DeleteSession(ctx context.Context) error {
	if err := c.call(ctx, cmdDeleteSession, nil, nil); err != nil {
		return err
	}
	c.SessionID = ""
	return nil
}

// SwitchToFrame makes frame the current browsing context. A nil frame switches to the top-level context.
func (c *Client) SwitchToFrame(ctx context.Context, frame *Element) error {
	params := map[string]interface{}{"focus": true}
	if frame != nil {
		params["element"] = frame.ID
	}
	return c.call(ctx, cmdSwitchToFrame, params, nil)
}

// FindElement returns the first element matching loc in the current context.
func (c *Client) FindElement(ctx context.Context, loc Locator) (*Element, error) {
	return c.findElement(ctx, loc, "")
}

// FindElements returns all elements matching loc in the current context.
func (c *Client) FindElements(ctx context.Context, loc Locator) ([]*Element, error) {
	return c.findElements(ctx, loc, "")
}

// ExecuteScript runs a synchronous script in the current context and returns its value.
func (c *Client) ExecuteScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	return c.execute(ctx, cmdExecuteScript, script, args)
}

// ExecuteAsyncScript runs a script that reports its value by calling the last argument it is given.
func (c *Client) ExecuteAsyncScript(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	return c.execute(ctx, cmdExecuteAsyncScript, script, args)
}

func (c *Client) execute(ctx context.Context, cmd, script string, args []interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}

	var result struct {
		Value interface{} `json:"value"`
	}
	err := c.call(ctx, cmd, map[string]interface{}{
		"script": script,
		"args":   args,
	}, &result)
	return result.Value, err
}

func (c *Client) findElement(ctx context.Context, loc Locator, parent string) (*Element, error) {
	params := map[string]interface{}{"using": string(loc.By), "value": loc.Value}
	if parent != "" {
		params["element"] = parent
	}

	var result struct {
		Value map[string]string `json:"value"`
	}
	if err := c.call(ctx, cmdFindElement, params, &result); err != nil {
		return nil, fmt.Errorf("find %s: %w", loc, err)
	}

	id := referenceID(result.Value)
	if id == "" {
		return nil, fmt.Errorf("find %s: %w", loc, ErrNoSuchElement)
	}
	return &Element{ID: id, c: c}, nil
}

func (c *Client) findElements(ctx context.Context, loc Locator, parent string) ([]*Element, error) {
	params := map[string]interface{}{"using": string(loc.By), "value": loc.Value}
	if parent != "" {
		params["element"] = parent
	}

	var refs []map[string]string
	if err := c.call(ctx, cmdFindElements, params, &refs); err != nil {
		return nil, fmt.Errorf("find all %s: %w", loc, err)
	}

	elements := make([]*Element, 0, len(refs))
	for _, ref := range refs {
		if id := referenceID(ref); id != "" {
			elements = append(elements, &Element{ID: id, c: c})
		}
	}
	return elements, nil
}

// call sends a command and waits for its response. Cancelling ctx interrupts the wait.
func (c *Client) call(ctx context.Context, name string, params interface{}, result interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if params == nil {
		params = map[string]interface{}{}
	}
	id := atomic.AddUint32(&c.nextID, 1)

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer func() {
		if stop() {
			return
		}
		// The deadline was forced; clear it so the connection stays usable.
		_ = c.conn.SetDeadline(time.Time{})
	}()

	log.Debug().Str("command", name).Uint32("id", id).Msg("marionette")

	if err := WritePacket(c.conn, []interface{}{msgCommand, id, name, params}); err != nil {
		return c.wrapIOError(ctx, name, err)
	}

	for {
		var raw []json.RawMessage
		if err := ReadPacket(c.r, &raw); err != nil {
			return c.wrapIOError(ctx, name, err)
		}

		resp, err := decodeResponse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if resp.ID != id {
			log.Debug().Uint32("id", resp.ID).Msg("Discarding response to an earlier command")
			continue
		}
		if resp.Error != nil {
			return newError(resp.Error)
		}
		if result != nil && resp.Result != nil {
			if err := sonic.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("%s: decode result: %w", name, err)
			}
		}
		return nil
	}
}

func (c *Client) wrapIOError(ctx context.Context, name string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s: %w", name, err)
}
