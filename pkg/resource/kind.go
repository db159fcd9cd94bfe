package resource

import (
	"fmt"
	"unicode"

	"github.com/beevik/etree"
)

// ReadFunc converts a document element into an attribute value.
type ReadFunc func(el *etree.Element) any

// WriteFunc appends the serialized form of value to parent.
type WriteFunc func(parent *etree.Element, name string, value any) error

// Attribute pairs the read and write conversions for one attribute. A nil
// Write marks the attribute read-only.
type Attribute struct {
	Read  ReadFunc
	Write WriteFunc
}

// Kind describes one resource type: the root tag used when serializing, the
// URL collection segment it lives under and its attribute table.
type Kind struct {
	RootTag    string
	Collection string
	Attributes map[string]Attribute
}

// Clone returns a copy of k with its own attribute table.
func (k *Kind) Clone() *Kind {
	attrs := make(map[string]Attribute, len(k.Attributes))
	for name, attr := range k.Attributes {
		attrs[name] = attr
	}
	return &Kind{RootTag: k.RootTag, Collection: k.Collection, Attributes: attrs}
}

// Attribute looks up name in the kind's table.
func (k *Kind) Attribute(name string) (Attribute, bool) {
	attr, ok := k.Attributes[name]
	if ok && attr.Read == nil {
		attr.Read = ReadText
	}
	return attr, ok
}

// Text declares a read/write string attribute.
func Text() Attribute { return Attribute{Read: ReadText, Write: WriteString} }

// Bool declares a read/write boolean attribute.
func Bool() Attribute { return Attribute{Read: ReadBool, Write: WriteBool} }

// Map declares a read/write key/value attribute.
func Map() Attribute { return Attribute{Read: ReadKeyValues, Write: WriteKeyValues} }

// ReadOnly drops the writer from attr.
func ReadOnly(attr Attribute) Attribute {
	attr.Write = nil
	return attr
}

// ReadText returns the element's text content.
func ReadText(el *etree.Element) any {
	return el.Text()
}

// ReadBool returns true only for the exact text "true".
func ReadBool(el *etree.Element) any {
	return el.Text() == "true"
}

// ReadKeyValues reads child elements as ordered name/value entries. A child
// of the form <entry key="k">v</entry> is keyed by its key attribute.
func ReadKeyValues(el *etree.Element) any {
	kv := &KeyValues{}
	for _, child := range el.ChildElements() {
		key := child.Tag
		if child.Tag == "entry" {
			if k := child.SelectAttr("key"); k != nil {
				key = k.Value
			}
		}
		kv.Set(key, child.Text())
	}
	return kv
}

// WriteString writes value as the text of a new child element.
func WriteString(parent *etree.Element, name string, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: %s wants string, got %T", ErrInvalidValue, name, value)
	}
	parent.CreateElement(name).SetText(s)
	return nil
}

// WriteBool writes value as "true" or "false".
func WriteBool(parent *etree.Element, name string, value any) error {
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("%w: %s wants bool, got %T", ErrInvalidValue, name, value)
	}
	text := "false"
	if b {
		text = "true"
	}
	parent.CreateElement(name).SetText(text)
	return nil
}

// WriteKeyValues writes one child per key, named by the key. Keys that are
// not valid XML element names are written as <entry key="...">.
func WriteKeyValues(parent *etree.Element, name string, value any) error {
	var kv *KeyValues
	switch v := value.(type) {
	case *KeyValues:
		kv = v
	case map[string]string:
		return fmt.Errorf("%w: %s wants *KeyValues (ordered), got map[string]string", ErrInvalidValue, name)
	default:
		return fmt.Errorf("%w: %s wants *KeyValues, got %T", ErrInvalidValue, name, value)
	}
	el := parent.CreateElement(name)
	for _, e := range kv.Entries() {
		if isXMLName(e.Key) {
			el.CreateElement(e.Key).SetText(e.Value)
			continue
		}
		entry := el.CreateElement("entry")
		entry.CreateAttr("key", e.Key)
		entry.SetText(e.Value)
	}
	return nil
}

// isXMLName reports whether s can be used as an unprefixed element name.
func isXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return len(s) < 3 || !equalFoldASCII(s[:3], "xml")
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i]|0x20, b[i]|0x20
		if ca != cb {
			return false
		}
	}
	return true
}
