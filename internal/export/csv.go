package export

import (
	"strconv"
	"strings"

	"github.com/hyunseo/mediascan/internal/models"
)

// UTF-8 byte-order mark so spreadsheet tools pick up the encoding.
const bom = "\uFEFF"

var storeCSVHeader = []string{
	"파일명", "타입", "모드", "상태", "요약", "키워드", "인식객체", "주요색상",
	"장소", "정확도", "신뢰도(점수)", "문서번호", "발신", "수신", "제목",
	"생산부서", "생산일자", "분석내용(Raw)", "분석내용(Corrected)",
	"SNS홍보", "대체텍스트", "JSON결과", "유튜브", "타임라인", "회의록", "할일",
}

var recordCSVHeader = []string{
	"파일명", "요약", "키워드", "장소", "정확도", "문서번호", "발신", "수신",
	"제목", "생산일자", "분석내용",
}

// escapeField doubles quotes and flattens newlines so every value stays
// on one row.
func escapeField(s string) string {
	s = strings.ReplaceAll(s, `"`, `""`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(escapeField(f))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

func publicDoc(rec models.FileRecord) models.PublicDocMetadata {
	if rec.Metadata.PublicDoc != nil {
		return *rec.Metadata.PublicDoc
	}
	return models.PublicDocMetadata{}
}

func confidenceField(rec models.FileRecord) string {
	if rec.Metadata.Confidence == 0 {
		return ""
	}
	return strconv.FormatFloat(float64(rec.Metadata.Confidence), 'f', -1, 64)
}

// StoreCSV serializes the whole store, one row per record, with the full
// column set including the studio results.
func StoreCSV(records []models.FileRecord) []byte {
	var b strings.Builder
	b.WriteString(bom)

	b.WriteString(strings.Join(storeCSVHeader, ","))
	b.WriteByte('\n')

	for _, rec := range records {
		pub := publicDoc(rec)
		sr := rec.StudioResults
		writeRow(&b, []string{
			rec.FileName,
			string(rec.MediaType),
			string(rec.Mode),
			string(rec.Status),
			rec.Summary,
			strings.Join(rec.Keywords, ", "),
			strings.Join(rec.Metadata.Objects, ", "),
			strings.Join(rec.Metadata.Colors, ", "),
			rec.Metadata.Location,
			rec.Metadata.Accuracy,
			confidenceField(rec),
			pub.DocNumber,
			pub.Sender,
			pub.Receiver,
			pub.Title,
			pub.Department,
			pub.Date,
			rec.ExtractedText,
			rec.CorrectedText,
			sr["sns"],
			sr["alt"],
			sr["json"],
			sr["youtube"],
			sr["timeline"],
			sr["meeting"],
			sr["todo"],
		})
	}
	return []byte(b.String())
}

// RecordCSV serializes one record with the compact column set.
func RecordCSV(rec models.FileRecord) []byte {
	var b strings.Builder
	b.WriteString(bom)
	b.WriteString(strings.Join(recordCSVHeader, ","))
	b.WriteByte('\n')

	pub := publicDoc(rec)
	body := rec.CorrectedText
	if body == "" {
		body = rec.ExtractedText
	}
	writeRow(&b, []string{
		rec.FileName,
		rec.Summary,
		strings.Join(rec.Keywords, ", "),
		rec.Metadata.Location,
		rec.Metadata.Accuracy,
		pub.DocNumber,
		pub.Sender,
		pub.Receiver,
		pub.Title,
		pub.Date,
		body,
	})
	return []byte(b.String())
}
