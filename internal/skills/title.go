package skills

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// firstHeading parses markdown and returns the text of the first heading,
// or "" when there is none.
func firstHeading(source []byte) string {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		var buf strings.Builder
		_ = ast.Walk(heading, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
			if t, ok := c.(*ast.Text); ok && entering {
				buf.Write(t.Segment.Value(source))
			}
			return ast.WalkContinue, nil
		})
		title = strings.TrimSpace(buf.String())
		return ast.WalkStop, nil
	})
	return title
}
