package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/arthur-debert/kegs/pkg/types"
)

// FormulaCard describes a formula as markdown. installed lists the
// versions present locally; def is the default among them.
func FormulaCard(f *types.Formula, installed []string, def string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", f.Name, f.PkgVersion())
	if f.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", f.Description)
	}
	if f.Homepage != "" {
		fmt.Fprintf(&b, "<%s>\n\n", f.Homepage)
	}

	if len(installed) > 0 {
		b.WriteString("## Installed\n\n")
		for _, v := range installed {
			if v == def {
				fmt.Fprintf(&b, "- **%s** (default)\n", v)
			} else {
				fmt.Fprintf(&b, "- %s\n", v)
			}
		}
		b.WriteString("\n")
	}

	if len(f.Dependencies) > 0 {
		b.WriteString("## Dependencies\n\n")
		for _, d := range f.Dependencies {
			fmt.Fprintf(&b, "- %s (%s)\n", d.Name, d.Kind)
		}
		b.WriteString("\n")
	}

	if len(f.Bottles) > 0 {
		b.WriteString("## Bottles\n\n| platform | digest |\n|---|---|\n")
		for _, bottle := range f.Bottles {
			fmt.Fprintf(&b, "| %s | `%s` |\n", bottle.PlatformTag, shortDigest(bottle.Digest))
		}
	}
	return b.String()
}

func shortDigest(d string) string {
	alg, hex, ok := strings.Cut(d, ":")
	if !ok {
		alg, hex = "", d
	}
	if len(hex) > 12 {
		hex = hex[:12]
	}
	if alg == "" {
		return hex
	}
	return alg + ":" + hex
}

// Markdown writes md, rendered with glamour on terminals and verbatim
// otherwise
func (p *Printer) Markdown(md string) error {
	out := md
	if p.styled() {
		out = renderMarkdown(md)
	}
	_, err := fmt.Fprint(p.out, out)
	return err
}

func renderMarkdown(md string) string {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return md
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return rendered
}
