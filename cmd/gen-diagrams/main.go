// gen-diagrams renders a flowchart for every example program into docs/diagrams.
// Run: go run ./cmd/gen-diagrams [-examples examples] [-out docs/diagrams]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/codeflow/internal/diagram"
	"github.com/rendis/codeflow/internal/flowchart"
	"github.com/rendis/codeflow/internal/logging"
)

// outputs maps each rendered format to the file extension it is saved with.
var outputs = map[string]string{
	diagram.Mermaid: ".mmd",
	diagram.ASCII:   ".txt",
	diagram.SVG:     ".svg",
}

func main() {
	examples := flag.String("examples", "examples", "directory of .star programs")
	out := flag.String("out", filepath.Join("docs", "diagrams"), "output directory")
	flag.Parse()

	n, err := generate(context.Background(), *examples, *out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rendered %d programs into %s\n", n, *out)
}

// generate charts every .star file in dir and writes one file per format
// to out. It returns the number of programs rendered.
func generate(ctx context.Context, dir, out string) (int, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no .star files in %s", dir)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return 0, err
	}

	synth := flowchart.New(flowchart.Config{Logger: logging.New(os.Stderr, "warn", "text")})
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		g := synth.FromCode(ctx, string(src))
		g.Title = strings.TrimSuffix(filepath.Base(path), ".star")

		for format, ext := range outputs {
			rendered, err := diagram.Render(ctx, g, format)
			if err != nil {
				return 0, fmt.Errorf("%s: %w", path, err)
			}
			dst := filepath.Join(out, g.Title+ext)
			if err := os.WriteFile(dst, rendered.Data, 0o644); err != nil {
				return 0, err
			}
		}
	}
	return len(files), nil
}
