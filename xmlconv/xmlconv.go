// Package xmlconv converts XML documents carried as parameter values into
// plain nested objects: map[string]any for elements with children, string for
// leaves and []any for repeated sibling tags.
package xmlconv

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/beevik/etree"
)

var (
	ErrEmpty     = errors.New("xmlconv: empty document")
	ErrNoRoot    = errors.New("xmlconv: no root element")
	ErrMultiple  = errors.New("xmlconv: more than one root element")
	ErrStrayText = errors.New("xmlconv: text outside the root element")
)

var leadingAcronym = regexp.MustCompile(`^([A-Z]+)([A-Z][a-z].*)$`)

// NormalizeTag converts an element name to lower camel case.
//
//	ID         -> id
//	IDPersonal -> idPersonal
//	Nombre     -> nombre
func NormalizeTag(tag string) string {
	if tag == "" {
		return tag
	}
	if strings.ToUpper(tag) == tag {
		return strings.ToLower(tag)
	}
	if m := leadingAcronym.FindStringSubmatch(tag); m != nil {
		return strings.ToLower(m[1]) + m[2]
	}

	r, size := utf8.DecodeRuneInString(tag)
	return string(unicode.ToLower(r)) + tag[size:]
}

// ToObject converts a single-root XML document. It returns nil when the text
// is empty or is not well-formed XML; the caller keeps the raw value then.
func ToObject(text string) map[string]any {
	out, err := Parse(text)
	if err != nil {
		return nil
	}
	return out
}

// Parse is ToObject with the reason of a failure.
func Parse(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, fmt.Errorf("xmlconv: %w", err)
	}

	for _, token := range doc.Child {
		if data, ok := token.(*etree.CharData); ok && strings.TrimSpace(data.Data) != "" {
			return nil, ErrStrayText
		}
	}

	roots := doc.ChildElements()
	switch len(roots) {
	case 0:
		return nil, ErrNoRoot
	case 1:
	default:
		return nil, ErrMultiple
	}

	root := roots[0]
	return map[string]any{NormalizeTag(root.FullTag()): convert(root)}, nil
}

func convert(elem *etree.Element) any {
	children := elem.ChildElements()
	if len(children) == 0 {
		return strings.TrimSpace(textContent(elem))
	}

	groups := make(map[string][]*etree.Element, len(children))
	for _, child := range children {
		tag := NormalizeTag(child.FullTag())
		groups[tag] = append(groups[tag], child)
	}

	obj := make(map[string]any, len(groups))
	for tag, elems := range groups {
		if len(elems) == 1 {
			obj[tag] = convert(elems[0])
			continue
		}
		items := make([]any, 0, len(elems))
		for _, e := range elems {
			items = append(items, convert(e))
		}
		obj[tag] = items
	}

	return obj
}

// textContent joins character data and CDATA sections, skipping comments and
// processing instructions. Entities are already decoded by the reader.
func textContent(elem *etree.Element) string {
	var b strings.Builder
	for _, token := range elem.Child {
		if data, ok := token.(*etree.CharData); ok {
			b.WriteString(data.Data)
		}
	}
	return b.String()
}
