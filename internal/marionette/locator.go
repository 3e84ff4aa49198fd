package marionette

import "fmt"

// Strategy is an element location strategy.
type Strategy string

// Location strategies understood by Marionette.
const (
	ByID          Strategy = "id"
	ByName        Strategy = "name"
	ByClassName   Strategy = "class name"
	ByTagName     Strategy = "tag name"
	ByCSSSelector Strategy = "css selector"
	ByXPath       Strategy = "xpath"
	ByLinkText    Strategy = "link text"
)

// Locator identifies an element.
type Locator struct {
	By    Strategy
	Value string
}

// ID returns a locator for the element with the given id attribute.
func ID(id string) Locator {
	return Locator{By: ByID, Value: id}
}

// CSS returns a locator for the first element matching selector.
func CSS(selector string) Locator {
	return Locator{By: ByCSSSelector, Value: selector}
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%q", l.By, l.Value)
}
