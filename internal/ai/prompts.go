package ai

import (
	"fmt"
	"strings"

	"github.com/hyunseo/mediascan/internal/models"
)

// StudioPrompts maps each secondary generation task to its canned prompt.
var StudioPrompts = map[string]string{
	"sns":      "이 이미지를 바탕으로 인스타그램 홍보 캡션을 작성해줘. 해시태그 포함.",
	"alt":      "이 이미지의 시각적 요소를 상세히 묘사하여 시각장애인을 위한 대체 텍스트(Alt Text)를 작성해줘.",
	"json":     "이 이미지에 있는 텍스트 정보를 JSON 포맷으로 구조화해서 추출해줘. (extractedText, correctedText, keywords, summary 포함)",
	"youtube":  "이 영상 내용을 바탕으로 유튜브 영상 제목 5가지와 설명글을 작성해줘.",
	"timeline": "이 영상의 주요 사건을 타임라인별로 정리해줘.",
	"meeting":  "이 오디오 내용을 바탕으로 회의록을 작성해줘 (참석자, 안건, 결정사항, 향후 계획).",
	"todo":     "이 내용에서 해야 할 일(Action Items)만 목록으로 추출해줘.",
}

// StudioTasksFor returns the studio task IDs enabled for a media category.
func StudioTasksFor(mediaType models.MediaType, auto models.AutoConfig) []string {
	var tasks []string
	switch mediaType {
	case models.MediaTypeImage:
		if auto.SNS {
			tasks = append(tasks, "sns")
		}
		if auto.Alt {
			tasks = append(tasks, "alt")
		}
		if auto.JSON {
			tasks = append(tasks, "json")
		}
	case models.MediaTypeVideo:
		if auto.YouTube {
			tasks = append(tasks, "youtube")
		}
		if auto.Timeline {
			tasks = append(tasks, "timeline")
		}
	case models.MediaTypeAudio:
		if auto.Meeting {
			tasks = append(tasks, "meeting")
		}
		if auto.Todo {
			tasks = append(tasks, "todo")
		}
	}
	return tasks
}

const baseAnalysisRules = `당신은 미디어 분석 전문가입니다. 주어진 미디어를 분석하여 요청된 정보를 JSON 형식으로 반환하세요.
응답은 반드시 유효한 JSON 형식이어야 하며, 마크다운 포맷팅이나 추가 설명을 포함하지 마십시오.
모든 필드를 가능한 한 충실하게 채우세요. 특히 'summary'는 필수입니다.`

// BuildSystemInstruction composes the fixed analysis rules, the display
// language mandate and the user's per-category instruction.
func BuildSystemInstruction(rec models.FileRecord, instr models.SystemInstructions, language string) string {
	languageRule := fmt.Sprintf("모든 결과 값은 반드시 **%s**로 번역/작성해야 합니다. JSON 값에는 유효한 문자열만 포함하세요.", language)

	var specific string
	switch rec.MediaType {
	case models.MediaTypeImage:
		if rec.Mode == models.ModeTextOnly {
			specific = instr.OCR
		} else {
			specific = instr.Image
		}
	case models.MediaTypeAudio:
		specific = instr.Audio
	case models.MediaTypeVideo:
		specific = instr.Video
	}

	return fmt.Sprintf("[기본 규칙]\n%s\n\n[언어 지침]\n%s\n\n[유형별 상세 지침]\n%s",
		baseAnalysisRules, languageRule, specific)
}

// BuildTaskPrompt describes the exact JSON fields expected per media
// category. Image requests differ depending on whether OCR-style
// extraction is enabled.
func BuildTaskPrompt(mediaType models.MediaType, imageOCREnabled bool) string {
	var b strings.Builder

	switch mediaType {
	case models.MediaTypeImage:
		b.WriteString("이미지 분석 요청:\n")
		b.WriteString("다음 필드를 포함하는 순수 JSON 객체를 반환하세요:\n")
		if imageOCREnabled {
			b.WriteString("1. extractedText: 이미지 내 모든 텍스트 (없으면 \"텍스트 없음\")\n")
			b.WriteString("2. text_annotations: 이미지 내의 모든 텍스트 라인에 대한 정밀한 좌표. [{\"text\": \"...\", \"box_2d\": [y_min, x_min, y_max, x_max]}] (좌표 0-1000). 작은 텍스트도 놓치지 마세요.\n")
			b.WriteString("3. correctedText: 텍스트의 오타 수정 및 정제된 버전\n")
			b.WriteString("4. fontStyle: 폰트 스타일 (예: \"sans-serif\", \"serif\", \"handwriting\")\n")
		} else {
			b.WriteString("1. labels: 이미지의 주요 객체나 개념에 대한 레이블 배열 (10개 이상)\n")
			b.WriteString("2. visual_analysis: 이미지의 구도, 색감, 조명 등에 대한 상세한 시각적 분석\n")
			b.WriteString("(OCR은 요청하지 않음. 이미지 내용 분석에 집중하세요)\n")
		}
		b.WriteString("5. summary: 이미지의 시각적 내용 및 상황에 대한 상세한 요약\n")
		b.WriteString("6. keywords: 핵심 키워드 배열 (5개 이상)\n")
		b.WriteString("7. metadata: { description, location, objects, colors, accuracy: \"100점 만점 기준의 정확도 점수 (예: 98/100)\", confidence: \"신뢰도(0-100 숫자)\", public_doc: { doc_number, sender, receiver, title, date } }\n")

	case models.MediaTypeAudio:
		b.WriteString("오디오 상세 분석 요청:\n")
		b.WriteString("다음 필드를 포함하는 순수 JSON 객체를 반환하세요:\n")
		b.WriteString("1. correctedText: 전체 오디오 받아쓰기 (STT). 내용을 요약하지 말고 들리는 대로 전체를 전사하세요.\n")
		b.WriteString("2. summary: 오디오 내용 요약\n")
		b.WriteString("3. keywords: 핵심 키워드\n")
		b.WriteString("4. metadata: { description, location, accuracy: \"100점 만점 기준의 정확도 점수 (예: 98/100)\", confidence: \"신뢰도(0-100 숫자)\" }\n")

	case models.MediaTypeVideo:
		b.WriteString("비디오 상세 분석 요청:\n")
		b.WriteString("다음 필드를 포함하는 순수 JSON 객체를 반환하세요:\n")
		b.WriteString("1. extractedText: 영상의 주요 장면 및 흐름 묘사\n")
		b.WriteString("2. correctedText: 음성 대사 또는 화면 자막 추출\n")
		b.WriteString("3. summary: 영상 줄거리 요약\n")
		b.WriteString("4. keywords: 핵심 키워드\n")
		b.WriteString("5. metadata: { description, objects, location, accuracy: \"100점 만점 기준의 정확도 점수 (예: 98/100)\", confidence: \"신뢰도(0-100 숫자)\" }\n")
	}

	return b.String()
}

// BuildStudioInstruction is the role-setting instruction for secondary
// generation tasks. The json task additionally demands a bare JSON reply.
func BuildStudioInstruction(mediaType models.MediaType, taskID string) string {
	instr := fmt.Sprintf(`당신은 전문 콘텐츠 크리에이터입니다.
제공된 %s 데이터와 이전 분석 내용을 바탕으로, 사용자가 요청한 콘텐츠를 작성해주세요.
결과는 반드시 한국어로 작성하세요.`, mediaType)

	if taskID == "json" {
		instr += "\n**중요**: 결과는 반드시 유효한 JSON 형식이어야 합니다. 마크다운 코드 블록(```)이나 설명글을 포함하지 말고 순수한 JSON 문자열만 반환하세요."
	}
	return instr
}

// BuildChatInstruction frames a chat turn with the prior corrected text
// as context; the first 500 runes are enough to anchor the reply.
func BuildChatInstruction(rec models.FileRecord) string {
	contextText := []rune(rec.CorrectedText)
	if len(contextText) > 500 {
		contextText = contextText[:500]
	}
	return fmt.Sprintf(`당신은 사용자가 제공한 미디어 파일(%s)을 분석하고 사용자의 요청에 맞춰 텍스트를 생성하는 AI 어시스턴트입니다.
이전 분석 결과(OCR 텍스트: "%s...")를 참고하되, 사용자의 구체적인 지시를 최우선으로 따르세요.
결과는 반드시 한국어로 작성하세요.`, rec.MediaType, string(contextText))
}
