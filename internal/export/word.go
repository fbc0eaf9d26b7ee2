package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/hyunseo/mediascan/internal/models"
)

// The .doc format here is Word-flavored HTML: Word opens HTML documents
// carrying the office XML namespaces as native files.
const wordShell = `<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'>
<head><meta charset='utf-8'><title>%s</title>
<style>
    body { font-family: 'Malgun Gothic', 'Batang', serif; line-height: 1.6; }
    h1 { font-size: 24pt; font-weight: bold; text-align: center; margin-bottom: 20px; }
    table { width: 100%%; border-collapse: collapse; margin-bottom: 20px; }
    th { background: #f3f4f6; border: 1px solid #000; padding: 5px; font-weight: bold; text-align: center; width: 100px; }
    td { border: 1px solid #000; padding: 5px; }
    .summary-box { background: #eff6ff; border: 1px solid #bfdbfe; padding: 10px; margin-bottom: 20px; color: #1e3a8a; }
    .content-body { white-space: pre-wrap; text-align: justify; }
    .bold { font-weight: bold; }
</style>
</head><body>`

var boldPattern = regexp.MustCompile(`\*\*(.*?)\*\*`)

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RecordWord renders one analyzed record as a Word-compatible .doc
// document with a metadata table, summary box, formatted body text and a
// keyword footer.
func RecordWord(rec models.FileRecord) []byte {
	pub := publicDoc(rec)

	title := pub.Title
	if title == "" {
		title = rec.FileName
	}
	title = html.EscapeString(title)

	var b strings.Builder
	fmt.Fprintf(&b, wordShell, title)
	b.WriteString("<h1>" + title + "</h1>")

	b.WriteString("<table><tbody>")
	fmt.Fprintf(&b, "<tr><th>문서번호</th><td>%s</td><th>일자</th><td>%s</td></tr>",
		html.EscapeString(orDash(pub.DocNumber)), html.EscapeString(orDash(pub.Date)))
	fmt.Fprintf(&b, "<tr><th>수신</th><td>%s</td><th>발신</th><td>%s</td></tr>",
		html.EscapeString(orDash(pub.Receiver)), html.EscapeString(orDash(pub.Sender)))
	fmt.Fprintf(&b, `<tr><th>장소</th><td colspan="3">%s</td></tr>`,
		html.EscapeString(orDash(rec.Metadata.Location)))
	b.WriteString("</tbody></table>")

	if rec.Summary != "" {
		fmt.Fprintf(&b, `<div class="summary-box"><b>[요약]</b><br/>%s</div>`,
			html.EscapeString(rec.Summary))
	}

	content := rec.CorrectedText
	if content == "" {
		content = rec.ExtractedText
	}
	formatted := html.EscapeString(content)
	formatted = boldPattern.ReplaceAllString(formatted, "<b>$1</b>")
	formatted = strings.ReplaceAll(formatted, "\n", "<br/>")
	fmt.Fprintf(&b, `<h3>[본문 내용]</h3><div class="content-body">%s</div>`, formatted)

	if len(rec.Keywords) > 0 {
		tags := make([]string, 0, len(rec.Keywords))
		for _, k := range rec.Keywords {
			tags = append(tags, "#"+html.EscapeString(k))
		}
		fmt.Fprintf(&b, `<p style="margin-top:20px; color: #666;"><b>Keywords:</b> %s</p>`,
			strings.Join(tags, " "))
	}

	b.WriteString("</body></html>")
	return []byte(b.String())
}
