package device

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// sentinelValue is shown by the device for readings it does not have.
const sentinelValue = "---"

// Field is a single named item on a screen.
type Field struct {
	ID    string
	Name  string
	Value string
	Type  string
	Raw   string
}

// Content is a parsed screen: its title and every item in document order.
type Content struct {
	Name   string
	Fields []Field
}

type contentItem struct {
	ID    string        `xml:"id,attr"`
	Name  string        `xml:"name"`
	Value string        `xml:"value"`
	Type  string        `xml:"type"`
	Raw   string        `xml:"raw"`
	Items []contentItem `xml:"item"`
}

type contentXML struct {
	XMLName xml.Name      `xml:"Content"`
	Name    string        `xml:"name"`
	Items   []contentItem `xml:"item"`
}

// ParseContent flattens a GET response into its fields. Grouping items
// without an id contribute only their children.
func ParseContent(response string) (*Content, error) {
	var doc contentXML
	if err := xml.Unmarshal([]byte(response), &doc); err != nil {
		return nil, protocolErrorf("parse content: %v", err)
	}
	c := &Content{Name: doc.Name}
	c.Fields = flatten(c.Fields, doc.Items)
	return c, nil
}

func flatten(out []Field, items []contentItem) []Field {
	for _, it := range items {
		if it.ID != "" {
			out = append(out, Field{
				ID:    it.ID,
				Name:  strings.TrimSpace(it.Name),
				Value: strings.TrimSpace(it.Value),
				Type:  strings.TrimSpace(it.Type),
				Raw:   strings.TrimSpace(it.Raw),
			})
		}
		out = flatten(out, it.Items)
	}
	return out
}

// FieldsOfType returns fields with the given type, e.g. "timer".
func (c *Content) FieldsOfType(typ string) []Field {
	var out []Field
	for _, f := range c.Fields {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

// Number returns the reading of the first field called name that holds a
// number. Screens may repeat a name for a state and a measurement, so
// non-numeric values are skipped.
func (c *Content) Number(name string) (float64, error) {
	seen := false
	for _, f := range c.Fields {
		if f.Name != name {
			continue
		}
		seen = true
		if v, ok := parseReading(f.Value); ok {
			return v, nil
		}
	}
	if !seen {
		return 0, &FieldNotFoundError{Field: name}
	}
	return 0, protocolErrorf("item %q has no numeric value", name)
}

// ReadValue extracts the numeric reading of item from a screen response,
// stripping a trailing unit. The "---" placeholder reads as 0.
func ReadValue(item, response string) (float64, error) {
	c, err := ParseContent(response)
	if err != nil {
		return 0, err
	}
	return c.Number(item)
}

// parseReading converts values like "22.3°C", "8.10 bar", "-3.5 K" or "---".
func parseReading(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == sentinelValue {
		return 0, true
	}
	end := 0
	for end < len(value) {
		ch := value[end]
		if (ch >= '0' && ch <= '9') || ch == '.' || (ch == '-' && end == 0) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(value[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
