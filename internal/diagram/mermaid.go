package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/codeflow/pkg/schema"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")
	if model.Title != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", model.Title)
	}

	for _, node := range model.Nodes {
		fmt.Fprintf(&b, "    %s\n", mermaidNodeDef(node))
	}
	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", mermaidEscapeLabel(edge.Label))
		}
		fmt.Fprintf(&b, "    %s -->%s %s\n", mermaidSafeID(edge.From), label, mermaidSafeID(edge.To))
	}

	b.WriteString("\n")
	b.WriteString("    classDef terminal fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef io fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef control fill:#b7791a,stroke:#8a5c14,color:#fff\n")
	b.WriteString("    classDef error fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	for _, node := range model.Nodes {
		if cls := mermaidKindClass(node.Kind); cls != "" {
			fmt.Fprintf(&b, "    class %s %s\n", mermaidSafeID(node.ID), cls)
		}
	}
	return b.String()
}

// mermaidNodeDef returns a node definition with the shape for its kind.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidEscapeLabel(firstLine(node.Label))

	switch node.Kind {
	case schema.NodeKindStart, schema.NodeKindEnd:
		return fmt.Sprintf(`%s(("%s"))`, id, label)
	case schema.NodeKindDecision:
		return fmt.Sprintf(`%s{"%s"}`, id, label)
	case schema.NodeKindLoop:
		return fmt.Sprintf(`%s{{"%s"}}`, id, label)
	case schema.NodeKindInput, schema.NodeKindOutput:
		return fmt.Sprintf(`%s[/"%s"/]`, id, label)
	case schema.NodeKindError:
		return fmt.Sprintf(`%s>"%s"]`, id, label)
	default:
		return fmt.Sprintf(`%s["%s"]`, id, label)
	}
}

var mermaidIDReplacer = strings.NewReplacer(".", "_", "-", "_", " ", "_")

// mermaidSafeID replaces characters Mermaid does not accept in ids. The
// keyword "end" closes subgraphs, so it is suffixed.
func mermaidSafeID(id string) string {
	id = mermaidIDReplacer.Replace(id)
	if strings.EqualFold(id, "end") {
		return id + "_"
	}
	return id
}

// mermaidEscapeLabel replaces double quotes, which end a quoted label, with
// the Mermaid entity.
func mermaidEscapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func mermaidKindClass(kind schema.NodeKind) string {
	switch kind {
	case schema.NodeKindStart, schema.NodeKindEnd:
		return "terminal"
	case schema.NodeKindInput, schema.NodeKindOutput:
		return "io"
	case schema.NodeKindDecision, schema.NodeKindLoop:
		return "control"
	case schema.NodeKindError:
		return "error"
	default:
		return ""
	}
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}
