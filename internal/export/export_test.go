package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyunseo/mediascan/internal/models"
)

func doneRecord() models.FileRecord {
	return models.FileRecord{
		ID:            "rec-1",
		FileName:      "공문서.png",
		MediaType:     models.MediaTypeImage,
		Mode:          models.ModeAll,
		Status:        models.StatusDone,
		ExtractedText: "원본 텍스트",
		CorrectedText: "수정된 텍스트",
		Summary:       "문서 요약",
		Keywords:      []string{"행정", "공문"},
		Metadata: models.FileMetadata{
			Location:   "서울",
			Accuracy:   "98/100",
			Confidence: 95,
			Objects:    []string{"도장", "서명"},
			Colors:     []string{"흰색"},
			PublicDoc: &models.PublicDocMetadata{
				DocNumber: "제2024-17호",
				Sender:    "행정안전부",
				Receiver:  "각 부처",
				Title:     "업무 협조 요청",
				Date:      "2024-03-15",
			},
		},
		StudioResults: map[string]string{"sns": "캡션", "alt": "대체텍스트"},
	}
}

func TestSanitize(t *testing.T) {
	t.Run("strips unsafe characters", func(t *testing.T) {
		assert.Equal(t, "보고서 v2.final", Sanitize(`보고서 v2:*?"<>|.final`))
	})

	t.Run("keeps unicode letters and digits", func(t *testing.T) {
		assert.Equal(t, "한글File-123_ok.png", Sanitize("한글File-123_ok.png"))
	})

	t.Run("idempotent", func(t *testing.T) {
		once := Sanitize(`a/b\c?.txt`)
		assert.Equal(t, once, Sanitize(once))
	})
}

func TestTimestampedName(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)
	assert.Equal(t, "scan_20240315093045.md", TimestampedName("scan.png", "md", now))
	assert.Equal(t, "noext_20240315093045.csv", TimestampedName("noext", "csv", now))
}

func TestRecordCSV(t *testing.T) {
	out := string(RecordCSV(doneRecord()))

	t.Run("starts with a BOM", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(out, "\uFEFF"))
	})

	t.Run("has the fixed Korean header", func(t *testing.T) {
		assert.Contains(t, out, "파일명,요약,키워드,장소,정확도,문서번호,발신,수신,제목,생산일자,분석내용")
	})

	t.Run("prefers corrected text", func(t *testing.T) {
		assert.Contains(t, out, `"수정된 텍스트"`)
		assert.NotContains(t, out, "원본 텍스트")
	})

	t.Run("escapes quotes and flattens newlines", func(t *testing.T) {
		rec := doneRecord()
		rec.Summary = "그는 \"좋다\"고\n말했다"
		escaped := string(RecordCSV(rec))
		assert.Contains(t, escaped, `"그는 ""좋다""고 말했다"`)
	})

	t.Run("falls back to extracted text", func(t *testing.T) {
		rec := doneRecord()
		rec.CorrectedText = ""
		assert.Contains(t, string(RecordCSV(rec)), `"원본 텍스트"`)
	})
}

func TestStoreCSV(t *testing.T) {
	records := []models.FileRecord{doneRecord(), {FileName: "second.mp4", MediaType: models.MediaTypeVideo, Status: models.StatusIdle}}
	out := string(StoreCSV(records))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[0], "SNS홍보")
	assert.Contains(t, lines[0], "할일")
	assert.Contains(t, lines[1], `"캡션"`)
	assert.Contains(t, lines[1], `"95"`)
	assert.Contains(t, lines[2], `"second.mp4"`)

	// Studio columns stay empty for records without results.
	assert.Contains(t, lines[2], `"","","","","","",""`)
}

func TestRecordMarkdown(t *testing.T) {
	out := string(RecordMarkdown(doneRecord()))

	assert.True(t, strings.HasPrefix(out, "# 공문서.png\n"))
	assert.Contains(t, out, "## 공공기관 문서 정보")
	assert.Contains(t, out, "| 문서번호 | 제2024-17호 |")
	assert.Contains(t, out, "| 발신 | 행정안전부 |")
	assert.Contains(t, out, "## 요약\n문서 요약")
	assert.Contains(t, out, "## 분석 내용\n수정된 텍스트")
	assert.Contains(t, out, "## 키워드\n행정, 공문")

	t.Run("no public doc drops the table", func(t *testing.T) {
		rec := doneRecord()
		rec.Metadata.PublicDoc = nil
		plain := string(RecordMarkdown(rec))
		assert.NotContains(t, plain, "공공기관 문서 정보")
	})
}

func TestRecordWord(t *testing.T) {
	out := string(RecordWord(doneRecord()))

	t.Run("word-flavored HTML shell", func(t *testing.T) {
		assert.Contains(t, out, "urn:schemas-microsoft-com:office:word")
		assert.Contains(t, out, "Malgun Gothic")
	})

	t.Run("public doc title wins over the filename", func(t *testing.T) {
		assert.Contains(t, out, "<h1>업무 협조 요청</h1>")
	})

	t.Run("metadata table and summary box", func(t *testing.T) {
		assert.Contains(t, out, "<th>문서번호</th><td>제2024-17호</td>")
		assert.Contains(t, out, `<div class="summary-box"><b>[요약]</b><br/>문서 요약</div>`)
	})

	t.Run("markdown bold becomes tags and newlines become breaks", func(t *testing.T) {
		rec := doneRecord()
		rec.CorrectedText = "**중요** 내용\n다음 줄"
		formatted := string(RecordWord(rec))
		assert.Contains(t, formatted, "<b>중요</b> 내용<br/>다음 줄")
	})

	t.Run("keywords rendered as hashtags", func(t *testing.T) {
		assert.Contains(t, out, "#행정 #공문")
	})

	t.Run("missing fields render as dashes", func(t *testing.T) {
		rec := models.FileRecord{FileName: "plain.png", Status: models.StatusDone}
		plain := string(RecordWord(rec))
		assert.Contains(t, plain, "<h1>plain.png</h1>")
		assert.Contains(t, plain, "<th>문서번호</th><td>-</td>")
	})
}
