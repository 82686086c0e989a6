package drawio

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"diagramgen/internal/domain/models"
)

// Validation failure reasons
const (
	ReasonEmpty        = "empty content"
	ReasonMissingRoot  = "missing root element"
	ReasonMissingModel = "missing model"
	ReasonMissingCells = "missing graphical elements"
	parseErrorPrefix   = "parse error: "
)

// minCells is the two base cells (id 0 and its child layer) every model carries.
const minCells = 2

type element struct {
	name     string
	children []*element
}

// Validate checks that text is a well-formed draw.io document with a model
// and at least the base cells. Rules short-circuit in a fixed order.
func Validate(text string) models.ValidationResult {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return invalid(ReasonEmpty)
	}
	if !strings.Contains(trimmed, "<mxfile") && !strings.Contains(trimmed, "<mxGraphModel") {
		return invalid(ReasonMissingRoot)
	}

	root, err := parseTree(trimmed)
	if err != nil {
		return invalid(parseErrorPrefix + err.Error())
	}

	if root.name == "mxfile" {
		hasModel := false
		for _, d := range root.descendants("diagram") {
			if len(d.descendants("mxGraphModel")) > 0 {
				hasModel = true
				break
			}
		}
		if !hasModel {
			return invalid(ReasonMissingModel)
		}
	}

	if len(root.descendants("mxCell")) < minCells {
		return invalid(ReasonMissingCells)
	}

	return models.ValidationResult{Valid: true}
}

func invalid(reason string) models.ValidationResult {
	return models.ValidationResult{Valid: false, Reason: reason}
}

// parseTree builds a name-only element tree and requires exactly one root.
func parseTree(text string) (*element, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = true

	var (
		root  *element
		stack []*element
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
			el := &element{name: t.Name.Local}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 && len(strings.TrimSpace(string(t))) > 0 {
				return nil, errors.New("text outside root element")
			}
		}
	}

	if root == nil {
		return nil, errors.New("no root element")
	}
	if len(stack) > 0 {
		return nil, errors.New("unexpected EOF")
	}
	return root, nil
}

// descendants returns every element below e (not e itself) with the given name.
func (e *element) descendants(name string) []*element {
	var out []*element
	for _, c := range e.children {
		if c.name == name {
			out = append(out, c)
		}
		out = append(out, c.descendants(name)...)
	}
	return out
}
