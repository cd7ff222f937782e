package processor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// maxDepth ограничивает вложенность элементов.
const maxDepth = 256

// node - элемент XML-документа без учёта префиксов пространств имён.
type node struct {
	name     string
	attrs    map[string]string
	children []*node
	text     strings.Builder
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *node) childrenNamed(name string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// value - текст элемента без окружающих пробелов, для полей заголовка.
func (n *node) value() string {
	return strings.TrimSpace(n.text.String())
}

// raw - текст листового элемента в точности как в документе.
func (n *node) raw() string {
	return n.text.String()
}

// charsetReader поддерживает кодировки, в которых 1С выгружает сообщения.
// После BOMOverride UTF-16 уже перекодирован в UTF-8.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "utf-8", "utf8", "utf-16", "utf16":
		return input, nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("неподдерживаемая кодировка %q", charset)
	}
}

// readTree строит дерево элементов документа. BOM в начале удаляется.
// Документ должен содержать ровно один корневой элемент.
func readTree(raw []byte) (*node, error) {
	if len(bytes.TrimSpace(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))) == 0 {
		return nil, errors.New("пустое сообщение")
	}

	reader := transform.NewReader(bytes.NewReader(raw), unicode.BOMOverride(transform.Nop))
	dec := xml.NewDecoder(reader)
	dec.CharsetReader = charsetReader

	var (
		root  *node
		stack []*node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, errors.New("документ содержит больше одного корневого элемента")
			}
			if len(stack) >= maxDepth {
				return nil, fmt.Errorf("превышена глубина вложенности %d", maxDepth)
			}
			n := &node{name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				if n.attrs == nil {
					n.attrs = make(map[string]string, len(t.Attr))
				}
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, errors.New("текст вне корневого элемента")
				}
				continue
			}
			stack[len(stack)-1].text.Write(t)
		}
	}

	if root == nil {
		return nil, errors.New("документ не содержит корневого элемента")
	}
	if len(stack) != 0 {
		return nil, errors.New("документ оборван")
	}
	return root, nil
}
