package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/Aloduin/DailyPaper/internal/domain"
)

//go:embed templates/digest.html
var digestTemplates embed.FS

var digestTemplate = template.Must(template.New("digest").ParseFS(digestTemplates, "templates/*.html"))

// RenderHTML produces the rich-text digest body: a dated header and one card
// per paper, with the title linked when a URL is known. Template escaping
// keeps upstream text from injecting markup.
func RenderHTML(d domain.Digest) string {
	var buf bytes.Buffer
	_ = digestTemplate.ExecuteTemplate(&buf, "digest.html", d)
	return buf.String()
}

// RenderText produces the plain-text digest body. Authors, abstract, and
// link lines appear only when non-empty, in that order, indented under the
// title. Paper order is preserved as fetched.
func RenderText(d domain.Digest) string {
	var sb strings.Builder
	sb.WriteString("Hugging Face Daily Papers - " + d.Date + "\n")

	if len(d.Papers) == 0 {
		sb.WriteString("No papers available for " + d.Date + ".\n")
		return sb.String()
	}

	for _, p := range d.Papers {
		fmt.Fprintf(&sb, "- %s\n", p.Title)
		if p.Authors != "" {
			fmt.Fprintf(&sb, "  Authors: %s\n", p.Authors)
		}
		if p.Abstract != "" {
			fmt.Fprintf(&sb, "  Abstract: %s\n", p.Abstract)
		}
		if p.URL != "" {
			fmt.Fprintf(&sb, "  Link: %s\n", p.URL)
		}
	}

	return sb.String()
}
