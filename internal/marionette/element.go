package marionette

import (
	"context"
	"errors"

	"github.com/bytedance/sonic"
)

// webElementKey is the W3C web element identifier; legacyElementKey is what older servers send.
const (
	webElementKey    = "element-6066-11e4-a52e-4f735466cecf"
	legacyElementKey = "ELEMENT"
)

func referenceID(ref map[string]string) string {
	if id := ref[webElementKey]; id != "" {
		return id
	}
	return ref[legacyElementKey]
}

// Element is a reference to an element on the device.
type Element struct {
	ID string
	c  *Client
}

// MarshalJSON encodes e as a web element reference so it can be passed as a script argument.
func (e *Element) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(map[string]string{webElementKey: e.ID, legacyElementKey: e.ID})
}

// FindElement returns the first descendant of e matching loc.
func (e *Element) FindElement(ctx context.Context, loc Locator) (*Element, error) {
	return e.c.findElement(ctx, loc, e.ID)
}

// FindElements returns all descendants of e matching loc.
func (e *Element) FindElements(ctx context.Context, loc Locator) ([]*Element, error) {
	return e.c.findElements(ctx, loc, e.ID)
}

// Displayed reports whether the element is visible.
func (e *Element) Displayed(ctx context.Context) (bool, error) {
	var result struct {
		Value bool `json:"value"`
	}
	err := e.c.call(ctx, cmdIsElementDisplayed, map[string]interface{}{"id": e.ID}, &result)
	return result.Value, err
}

// Click clicks the element.
func (e *Element) Click(ctx context.Context) error {
	return e.c.call(ctx, cmdElementClick, map[string]interface{}{"id": e.ID}, nil)
}

// Tap simulates a touch on the element. Servers without touch support get a click instead.
func (e *Element) Tap(ctx context.Context) error {
	err := e.c.call(ctx, cmdSingleTap, map[string]interface{}{"id": e.ID}, nil)
	if errors.Is(err, ErrUnknownCommand) {
		return e.Click(ctx)
	}
	return err
}

// SendKeys types text into the element.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.c.call(ctx, cmdElementSendKeys, map[string]interface{}{"id": e.ID, "text": text}, nil)
}
