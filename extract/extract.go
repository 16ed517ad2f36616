// Package extract finds elements of interest in loosely structured HTML pages.
//
// Only the fragments that match a Selector are parsed into a tree; the rest of the
// document is streamed through the tokenizer and discarded. This avoids both the cost
// of parsing the full page and false positives from same-named tags elsewhere.
package extract

import (
	"errors"
	"io"
	"iter"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Selector matches elements by tag name and, optionally, a regular expression
// tested against the value of one attribute.
type Selector struct {
	Tag   string
	Attr  string
	Match *regexp.Regexp
}

// Tag returns a selector matching every element with the given tag name.
func Tag(tag string) Selector {
	return Selector{Tag: tag}
}

// Attr returns a selector matching elements with the given tag whose attribute matches the pattern.
func Attr(tag, attr string, match *regexp.Regexp) Selector {
	return Selector{Tag: tag, Attr: attr, Match: match}
}

func (s Selector) matches(name string, attrs []html.Attribute) bool {
	if name != s.Tag {
		return false
	}
	if s.Match == nil {
		return true
	}
	for _, a := range attrs {
		if a.Key == s.Attr {
			return s.Match.MatchString(a.Val)
		}
	}
	return false
}

func (s Selector) matchesNode(n *html.Node) bool {
	return n.Type == html.ElementNode && s.matches(n.Data, n.Attr)
}

// Element is a handle to a matched element.
type Element struct {
	sel *goquery.Selection
}

// Selection returns the underlying goquery selection.
func (e Element) Selection() *goquery.Selection {
	return e.sel
}

func (e Element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

// Text returns the entity-decoded text content of the element and its descendants.
func (e Element) Text() string {
	return e.sel.Text()
}

// Find returns all descendants of the element with the given tag, in document order.
func (e Element) Find(tag string) []Element {
	return wrap(e.sel.Find(tag))
}

// First returns the first descendant of the element with the given tag.
func (e Element) First(tag string) (Element, bool) {
	sel := e.sel.Find(tag).First()
	if sel.Length() == 0 {
		return Element{}, false
	}
	return Element{sel: sel}, true
}

// Children returns the direct children of the element with the given tag.
func (e Element) Children(tag string) []Element {
	return wrap(e.sel.ChildrenFiltered(tag))
}

func wrap(sel *goquery.Selection) []Element {
	var elements []Element
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, Element{sel: s})
	})
	return elements
}

// Parse parses a complete document and returns its root element.
//
// This is for small pages where the whole tree is needed, like search results.
func Parse(r io.Reader) (Element, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Element{}, err
	}
	return Element{sel: doc.Selection}, nil
}

// Select yields the elements matching the selector in document order.
//
// Matching elements nested inside another match are yielded after their ancestor.
// Malformed markup never results in an error; only read errors are reported.
func Select(r io.Reader, sel Selector) iter.Seq2[Element, error] {
	return func(yield func(Element, error) bool) {
		z := html.NewTokenizer(r)
		var c *capture
		for {
			tt := z.Next()
			if tt == html.ErrorToken {
				if c != nil && !c.emit(sel, yield) {
					return
				}
				if err := z.Err(); !errors.Is(err, io.EOF) {
					yield(Element{}, err)
				}
				return
			}
			// Raw must be copied before Token is called.
			raw := string(z.Raw())
			var tok html.Token
			switch tt {
			case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
				tok = z.Token()
			}
			if c != nil {
				if !c.consume(tt, tok, raw) {
					continue
				}
				if !c.emit(sel, yield) {
					return
				}
				reprocess := c.reprocess
				c = nil
				if !reprocess {
					continue
				}
			}
			if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
				continue
			}
			if !sel.matches(tok.Data, tok.Attr) {
				continue
			}
			c = &capture{tag: tok.Data, stack: []string{tok.Data}}
			c.buf.WriteString(raw)
			if tt == html.SelfClosingTagToken || isVoid(tok.Data) {
				if !c.emit(sel, yield) {
					return
				}
				c = nil
			}
		}
	}
}

// All collects the elements yielded by Select.
func All(r io.Reader, sel Selector) ([]Element, error) {
	var elements []Element
	for e, err := range Select(r, sel) {
		if err != nil {
			return nil, err
		}
		elements = append(elements, e)
	}
	return elements, nil
}

// capture accumulates the raw markup of one matched subtree.
type capture struct {
	tag       string
	stack     []string
	buf       strings.Builder
	reprocess bool
}

// consume adds a token to the capture and reports whether the capture is complete.
// When the token itself ended the capture without belonging to it, reprocess is set.
func (c *capture) consume(tt html.TokenType, tok html.Token, raw string) bool {
	switch tt {
	case html.StartTagToken:
		if tok.Data == c.tag && impliesEnd(c.tag, c.stack[1:]) {
			c.reprocess = true
			return true
		}
		if !isVoid(tok.Data) {
			c.stack = append(c.stack, tok.Data)
		}
	case html.EndTagToken:
		if i := lastIndex(c.stack, tok.Data); i >= 0 {
			c.stack = c.stack[:i]
			c.buf.WriteString(raw)
			return len(c.stack) == 0
		}
		if closesParent(c.tag, tok.Data) {
			c.reprocess = true
			return true
		}
		// Stray end tag.
		return false
	}
	c.buf.WriteString(raw)
	return false
}

func (c *capture) emit(sel Selector, yield func(Element, error) bool) bool {
	nodes, err := html.ParseFragment(strings.NewReader(c.buf.String()), fragmentContext(c.tag))
	if err != nil {
		return yield(Element{}, err)
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	doc := goquery.NewDocumentFromNode(root)
	var matches []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if sel.matchesNode(n) {
			matches = append(matches, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	for _, n := range matches {
		if !yield(Element{sel: doc.FindNodes(n)}, nil) {
			return false
		}
	}
	return true
}

// impliesEnd reports whether a new start tag equal to the captured tag closes the
// capture, as an HTML parser would do for e.g. consecutive unclosed rows. A nested
// table or list starts a new scope in which the tag may legitimately repeat.
func impliesEnd(tag string, open []string) bool {
	scopes, ok := impliedEnds[tag]
	if !ok {
		return false
	}
	for _, s := range scopes {
		if slices.Contains(open, s) {
			return false
		}
	}
	return true
}

var impliedEnds = map[string][]string{
	"a":      nil,
	"p":      nil,
	"tr":     {"table"},
	"td":     {"table"},
	"th":     {"table"},
	"li":     {"ul", "ol"},
	"option": {"select"},
}

func closesParent(tag, end string) bool {
	if end == "body" || end == "html" {
		return true
	}
	return slices.Contains(parentClosers[tag], end)
}

var parentClosers = map[string][]string{
	"tr":     {"table", "tbody", "thead", "tfoot"},
	"td":     {"tr", "table", "tbody", "thead", "tfoot"},
	"th":     {"tr", "table", "tbody", "thead", "tfoot"},
	"li":     {"ul", "ol"},
	"option": {"select"},
}

// fragmentContext returns the element the captured markup is parsed inside of.
// Table rows and cells are dropped by the parser unless they appear in a table context.
func fragmentContext(tag string) *html.Node {
	parent := "body"
	switch tag {
	case "tr":
		parent = "tbody"
	case "td", "th":
		parent = "tr"
	case "li":
		parent = "ul"
	case "option":
		parent = "select"
	}
	return &html.Node{
		Type:     html.ElementNode,
		Data:     parent,
		DataAtom: atom.Lookup([]byte(parent)),
	}
}

func lastIndex(stack []string, s string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == s {
			return i
		}
	}
	return -1
}

func isVoid(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}
