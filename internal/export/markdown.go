package export

import (
	"strings"

	"github.com/hyunseo/mediascan/internal/models"
)

// RecordMarkdown renders one analyzed record as a Markdown document: the
// filename as title, a table of public-document metadata when present,
// then summary, body and keywords sections.
func RecordMarkdown(rec models.FileRecord) []byte {
	var b strings.Builder

	b.WriteString("# " + rec.FileName + "\n\n")

	if rec.Metadata.HasPublicDoc() {
		pub := rec.Metadata.PublicDoc
		b.WriteString("## 공공기관 문서 정보\n")
		b.WriteString("| 항목 | 내용 |\n|---|---|\n")
		if pub.DocNumber != "" {
			b.WriteString("| 문서번호 | " + pub.DocNumber + " |\n")
		}
		if pub.Date != "" {
			b.WriteString("| 생산일자 | " + pub.Date + " |\n")
		}
		if pub.Sender != "" {
			b.WriteString("| 발신 | " + pub.Sender + " |\n")
		}
		if pub.Receiver != "" {
			b.WriteString("| 수신 | " + pub.Receiver + " |\n")
		}
		b.WriteString("\n")
	}

	body := rec.CorrectedText
	if body == "" {
		body = rec.ExtractedText
	}

	b.WriteString("## 요약\n" + rec.Summary + "\n\n")
	b.WriteString("## 분석 내용\n" + body + "\n\n")
	if len(rec.Keywords) > 0 {
		b.WriteString("## 키워드\n" + strings.Join(rec.Keywords, ", "))
	}
	return []byte(b.String())
}
