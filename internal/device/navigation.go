package device

import (
	"encoding/xml"
	"strings"
)

// PathSeparator separates menu levels in a human readable path.
const PathSeparator = " > "

// NavigationItem is one entry of the device menu.
type NavigationItem struct {
	ID       string           `xml:"id,attr"`
	Name     string           `xml:"name"`
	ReadOnly bool             `xml:"readOnly"`
	Children []NavigationItem `xml:"item"`
}

// Navigation is the menu tree returned on login. The root itself has no
// usable id.
type Navigation struct {
	XMLName xml.Name         `xml:"Navigation"`
	Items   []NavigationItem `xml:"item"`
}

// ParseNavigation decodes the LOGIN response.
func ParseNavigation(response string) (*Navigation, error) {
	var nav Navigation
	if err := xml.Unmarshal([]byte(response), &nav); err != nil {
		return nil, protocolErrorf("parse navigation: %v", err)
	}
	return &nav, nil
}

// Resolve returns the id of the item at path, e.g. "Informatie > Temperaturen".
// Segments match child names exactly; the first matching sibling wins.
func (n *Navigation) Resolve(path string) (string, error) {
	items := n.Items
	id := ""
	for _, segment := range strings.Split(path, PathSeparator) {
		item := findItem(items, segment)
		if item == nil {
			return "", &PathNotFoundError{Path: path, Segment: segment}
		}
		id = item.ID
		items = item.Children
	}
	return id, nil
}

func findItem(items []NavigationItem, name string) *NavigationItem {
	for i := range items {
		if items[i].Name == name {
			return &items[i]
		}
	}
	return nil
}
