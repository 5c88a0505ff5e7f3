package diagram

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/codeflow/pkg/schema"
)

// asciiRenderer writes to no terminal, so styles carry borders and padding
// but never color escapes.
var asciiRenderer = lipgloss.NewRenderer(io.Discard)

var (
	titleStyle    = asciiRenderer.NewStyle().Bold(true).MarginBottom(1)
	boxStyle      = asciiRenderer.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	terminalStyle = boxStyle.Border(lipgloss.RoundedBorder())
	controlStyle  = boxStyle.Border(lipgloss.DoubleBorder())
	errorStyle    = boxStyle.Border(lipgloss.ThickBorder())
)

// kindTag marks the kinds whose border alone does not identify them.
func kindTag(kind schema.NodeKind) string {
	switch kind {
	case schema.NodeKindInput:
		return "[IN] "
	case schema.NodeKindOutput:
		return "[OUT] "
	case schema.NodeKindLoop:
		return "[LOOP] "
	case schema.NodeKindDecision:
		return "[IF] "
	case schema.NodeKindError:
		return "[ERROR] "
	default:
		return ""
	}
}

func styleFor(kind schema.NodeKind) lipgloss.Style {
	switch kind {
	case schema.NodeKindStart, schema.NodeKindEnd:
		return terminalStyle
	case schema.NodeKindDecision, schema.NodeKindLoop:
		return controlStyle
	case schema.NodeKindError:
		return errorStyle
	default:
		return boxStyle
	}
}

// RenderASCII renders a DiagramModel as boxed text, one row of boxes per
// level, joined by arrows.
func RenderASCII(model *DiagramModel) string {
	var blocks []string
	if model.Title != "" {
		blocks = append(blocks, titleStyle.Render("=== "+model.Title+" ==="))
	}

	for i, level := range model.Levels {
		var boxes []string
		for j, id := range level {
			node := model.node(id)
			if node == nil {
				continue
			}
			if j > 0 {
				boxes = append(boxes, "  ")
			}
			boxes = append(boxes, styleFor(node.Kind).Render(kindTag(node.Kind)+firstLine(node.Label)))
		}
		if len(boxes) == 0 {
			continue
		}
		blocks = append(blocks, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))

		if i < len(model.Levels)-1 {
			blocks = append(blocks, connector(levelEdgeLabels(model, level)))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Center, blocks...) + "\n"
}

// connector draws the arrow between two levels, annotated with edge labels.
func connector(labels []string) string {
	arrow := "▼"
	if len(labels) > 0 {
		arrow += " " + strings.Join(labels, ", ")
	}
	return lipgloss.JoinVertical(lipgloss.Left, "│", arrow)
}

// levelEdgeLabels collects the non-empty labels of edges leaving level.
func levelEdgeLabels(model *DiagramModel, level []string) []string {
	in := make(map[string]bool, len(level))
	for _, id := range level {
		in[id] = true
	}
	var labels []string
	for _, e := range model.Edges {
		if in[e.From] && e.Label != "" {
			labels = append(labels, e.Label)
		}
	}
	return labels
}
