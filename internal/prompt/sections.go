package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section is a heading found in a rendered prompt.
type Section struct {
	Level int
	Title string
}

// Sections parses doc as Markdown and returns its headings in order.
// Headings inside code fences are not headings and are skipped.
func Sections(doc []byte) []Section {
	md := goldmark.New()
	reader := text.NewReader(doc)
	root := md.Parser().Parse(reader)

	var sections []Section
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		sections = append(sections, Section{
			Level: h.Level,
			Title: strings.TrimSpace(headingText(h, doc)),
		})
		return ast.WalkSkipChildren, nil
	})
	return sections
}

func headingText(h *ast.Heading, source []byte) string {
	var sb strings.Builder
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			continue
		}
		// inline code, emphasis and friends wrap their text in children
		for gc := c.FirstChild(); gc != nil; gc = gc.NextSibling() {
			if t, ok := gc.(*ast.Text); ok {
				sb.Write(t.Segment.Value(source))
			}
		}
	}
	return sb.String()
}

// contractOrder is the order in which the required sections must appear.
var contractOrder = []string{HeadingSteps, HeadingError, HeadingTraceback, HeadingDiff}

// CheckContract verifies that doc has the shape other tooling relies on:
// a single level-1 title first, then the contract sections in order, each
// at most once, with Error always present.
func CheckContract(doc []byte) error {
	sections := Sections(doc)
	if len(sections) == 0 || sections[0].Level != 1 {
		return errors.New("document does not start with a level-1 title")
	}

	var errs []error
	seen := map[string]int{}
	last := -1
	for _, s := range sections[1:] {
		if s.Level == 1 {
			errs = append(errs, fmt.Errorf("extra level-1 heading %q", s.Title))
			continue
		}
		if s.Level != 2 {
			continue
		}
		idx := indexOf(contractOrder, s.Title)
		if idx < 0 {
			continue
		}
		seen[s.Title]++
		if seen[s.Title] > 1 {
			errs = append(errs, fmt.Errorf("section %q appears more than once", s.Title))
		}
		if idx < last {
			errs = append(errs, fmt.Errorf("section %q is out of order", s.Title))
		}
		last = idx
	}
	if seen[HeadingError] == 0 {
		errs = append(errs, fmt.Errorf("section %q is missing", HeadingError))
	}
	return errors.Join(errs...)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
