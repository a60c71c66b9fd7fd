package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/kenaz-export/internal/exportservice"
)

// FormatGuideURI is the resource describing output formats and naming.
const FormatGuideURI = "kenaz-export://formats"

// FormatGuide renders the format table as Markdown for LLM consumers.
func FormatGuide(formats []exportservice.FormatStatus) string {
	var b strings.Builder
	b.WriteString("# Export formats\n\n")
	b.WriteString("Each document `<dir>/<name>.<ext>` is written to ")
	b.WriteString("`<output folder>/<format>/<name>.<format extension>`. ")
	b.WriteString("The `map` format instead concatenates every document into one HTML file.\n\n")
	b.WriteString("| format | extension | needs | available |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, f := range formats {
		var needs []string
		if f.NeedsConverter {
			needs = append(needs, "pandoc")
		}
		if f.NeedsTypesetter {
			needs = append(needs, "latex engine")
		}
		need := "-"
		if len(needs) > 0 {
			need = strings.Join(needs, ", ")
		}
		fmt.Fprintf(&b, "| %s | .%s | %s | %t |\n", f.Name, f.Extension, need, f.Available)
	}
	b.WriteString("\nOnly `.md` and `.markdown` documents can be exported. ")
	b.WriteString("A document must be active (see `set_active_document`) before a command can run.\n")
	return b.String()
}
