// Package htmlx gives the price extractor two views of an HTML document:
// flattened visible text and raw inner markup, per text-bearing element.
// Non-visible subtrees (script, style, noscript, template, svg) are removed
// before any text is read; prices inside them are not shown to a user.
package htmlx

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// invisibleAtoms are subtrees whose text is never rendered.
var invisibleAtoms = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
}

// candidateAtoms are the text-bearing element kinds the extractor scans.
// Body is included so that unit labels split across top-level siblings
// ("<span>$9.99</span>/month") still land in one scanned container.
var candidateAtoms = []atom.Atom{
	atom.Body,
	atom.A,
	atom.P,
	atom.Span,
	atom.Div,
	atom.Li,
	atom.Section,
	atom.Article,
	atom.Td,
	atom.Button,
	atom.Strong,
	atom.Em,
}

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

// Document is a parsed HTML page with invisible subtrees already dropped.
type Document struct {
	root *html.Node
}

// Element is one candidate node within a Document.
type Element struct {
	node *html.Node
}

// Parse parses raw HTML and strips non-visible subtrees.
func Parse(raw string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, eris.Wrap(err, "htmlx: parse")
	}
	stripInvisible(root)
	return &Document{root: root}, nil
}

// stripInvisible removes script/style/noscript/template/svg nodes and
// style-hidden subtrees in place.
func stripInvisible(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && (invisibleAtoms[c.DataAtom] || hasHiddenStyle(c)) {
			n.RemoveChild(c)
			continue
		}
		stripInvisible(c)
	}
}

func hasHiddenStyle(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key != "style" {
			continue
		}
		for _, pat := range hiddenStylePatterns {
			if pat.MatchString(a.Val) {
				return true
			}
		}
	}
	return false
}

// Elements returns the document's candidate elements in document order.
// Parents precede their children.
func (d *Document) Elements() []Element {
	var out []Element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isCandidate(n.DataAtom) {
			out = append(out, Element{node: n})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

func isCandidate(a atom.Atom) bool {
	for _, c := range candidateAtoms {
		if a == c {
			return true
		}
	}
	return false
}

// VisibleText flattens the element's text content: each text node is
// whitespace-trimmed and non-empty fragments are joined with single spaces.
func (e Element) VisibleText() string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if f := strings.Join(strings.Fields(n.Data), " "); f != "" {
				parts = append(parts, f)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return strings.Join(parts, " ")
}

// InnerHTML renders the element's children back to markup. Unit labels are
// sometimes separated from an amount by nested tags, so the extractor needs
// the raw markup, not just the flattened text.
func (e Element) InnerHTML() string {
	var b strings.Builder
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		// Render only fails on unrenderable node types, which cannot
		// occur under a parsed element.
		_ = html.Render(&b, c)
	}
	return b.String()
}

// FlattenText parses raw HTML and returns the whole document's visible text.
// Used by the subscription classifier, which scores full-page text.
func FlattenText(raw string) (string, error) {
	doc, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return Element{node: doc.root}.VisibleText(), nil
}
