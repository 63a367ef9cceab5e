package plugin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultDepartment is reported with loan analyses when none is configured.
const DefaultDepartment = "여신기획부"

// Classification is the sensitivity grade of a document.
type Classification string

const (
	ClassTopSecret    Classification = "극비"
	ClassConfidential Classification = "대외비"
	ClassInternal     Classification = "내부용"
	ClassPublic       Classification = "공개"
)

const refuseTopSecret = "고객 금융정보는 처리할 수 없습니다. 대외비 이하 등급의 문서만 분석 가능합니다."

var errUnreadableAnalysis = errors.New("분석 결과를 해석할 수 없습니다")

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{6}-\d{7}`),             // resident registration number
	regexp.MustCompile(`\d{3}-\d{2}-\d{5}`),       // business registration number
	regexp.MustCompile(`\d{4}-\d{4}-\d{4}-\d{4}`), // card number
}

// ClassifyData grades text by the identifiers and keywords it contains.
func ClassifyData(text string) Classification {
	for _, re := range sensitivePatterns {
		if re.MatchString(text) {
			return ClassTopSecret
		}
	}
	switch {
	case strings.Contains(text, "영업전략"), strings.Contains(text, "경영계획"):
		return ClassConfidential
	case strings.Contains(text, "직원"), strings.Contains(text, "내부"):
		return ClassInternal
	}
	return ClassPublic
}

var documentTypes = []struct {
	name     string
	keywords []string
}{
	{"신용평가서", []string{"신용등급", "연체이력", "신용점수"}},
	{"재무제표", []string{"자산", "부채", "자본", "매출액"}},
	{"담보평가서", []string{"감정가", "담보가치", "경매가율"}},
	{"사업계획서", []string{"사업목적", "추진계획", "예상수익"}},
}

// DetectDocumentType returns the first document type with at least two of
// its keywords present, or 일반문서.
func DetectDocumentType(text string) string {
	for _, dt := range documentTypes {
		hits := 0
		for _, kw := range dt.keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits >= 2 {
			return dt.name
		}
	}
	return "일반문서"
}

// RestrictConfidential refuses top-secret text before it reaches next.
func RestrictConfidential(next Executor) Executor {
	return ExecutorFunc(func(ctx context.Context, p *Plugin, text string) Result {
		if ClassifyData(text) == ClassTopSecret {
			return Fail(KindExecution, refuseTopSecret)
		}
		return next.Execute(ctx, p, text)
	})
}

const loanSystemPrompt = `You are a loan underwriting analyst at a Korean bank.
Answer with a single JSON object and nothing else, using this shape:
{"keyMetrics": {"<지표>": "<값>"}, "riskAssessment": {"grade": "<등급>", "mainRisks": ["..."]},
 "recommendation": "<심사 의견>", "regulationCheck": {"passed": true, "warnings": ["..."]}}
Write every value in Korean.`

// LoanAnalysisExecutor asks the backend for a structured analysis of a loan
// document and renders it as a Markdown report.
type LoanAnalysisExecutor struct {
	Completer  Completer
	Department string
	Now        func() time.Time
}

func (e *LoanAnalysisExecutor) Execute(ctx context.Context, p *Plugin, text string) Result {
	docType := DetectDocumentType(text)

	department := e.Department
	if department == "" {
		department = DefaultDepartment
	}

	prompt := fmt.Sprintf("문서 유형: %s\n요청 부서: %s\n분석 유형: comprehensive\n\n%s",
		docType, department, RenderTemplate(p.Prompt(), text))

	out, err := e.Completer.Complete(ctx, loanSystemPrompt, prompt)
	if err != nil {
		return Failed(err)
	}

	raw := extractJSON(out)
	if raw == "" {
		return Failed(ErrEmptyResponse)
	}
	if !gjson.Valid(raw) {
		return Failed(errUnreadableAnalysis)
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return Ok(FormatLoanAnalysis(gjson.Parse(raw), docType, now()))
}

// extractJSON strips a Markdown code fence around a JSON answer.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// FormatLoanAnalysis renders an analysis object. Sections whose fields are
// missing are left out; key metrics keep the order the backend sent.
func FormatLoanAnalysis(result gjson.Result, docType string, at time.Time) string {
	var b strings.Builder

	b.WriteString("📊 **여신 심사 분석 결과**\n\n")
	fmt.Fprintf(&b, "📄 문서 유형: %s\n\n", docType)

	if metrics := result.Get("keyMetrics"); metrics.IsObject() {
		b.WriteString("### 핵심 지표\n")
		metrics.ForEach(func(key, value gjson.Result) bool {
			fmt.Fprintf(&b, "- %s: %s\n", key.String(), value.String())
			return true
		})
		b.WriteString("\n")
	}

	if risk := result.Get("riskAssessment"); risk.IsObject() {
		b.WriteString("### 리스크 평가\n")
		fmt.Fprintf(&b, "- 전체 등급: %s\n", risk.Get("grade").String())
		fmt.Fprintf(&b, "- 주요 리스크: %s\n\n", joinStrings(risk.Get("mainRisks")))
	}

	if rec := result.Get("recommendation").String(); rec != "" {
		b.WriteString("### 심사 의견\n")
		b.WriteString(rec + "\n\n")
	}

	if check := result.Get("regulationCheck"); check.IsObject() {
		b.WriteString("### 여신 규정 체크\n")
		if check.Get("passed").Bool() {
			b.WriteString("✅ 모든 규정을 충족합니다\n")
		} else {
			fmt.Fprintf(&b, "⚠️ 주의사항: %s\n", joinStrings(check.Get("warnings")))
		}
	}

	fmt.Fprintf(&b, "\n---\n_분석 시간: %s_", koreanTimestamp(at))
	return b.String()
}

func joinStrings(arr gjson.Result) string {
	items := arr.Array()
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}

// koreanTimestamp formats t the way a ko-KR locale prints a date and time,
// e.g. "2025. 3. 7. 오후 2:05:09".
func koreanTimestamp(t time.Time) string {
	meridiem := "오전"
	if t.Hour() >= 12 {
		meridiem = "오후"
	}
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), meridiem, hour, t.Minute(), t.Second())
}

// NHPlugins returns the loan-desk plugins. Each refuses documents carrying
// customer identifiers.
func NHPlugins(c Completer, department string) []Plugin {
	prompts := NewPromptExecutor(c)

	return []Plugin{
		{
			ID:            "nh-loan-analysis",
			Name:          "여신 심사 분석",
			Description:   "대출 심사 문서를 AI로 분석하여 핵심 정보를 추출합니다",
			Icon:          "💰",
			Category:      CategoryFinance,
			DefaultPrompt: "다음 대출 심사 문서를 분석하여 핵심 지표, 리스크, 심사 의견, 규정 준수 여부를 정리해 주세요.",
			Enabled:       true,
			Executor:      RestrictConfidential(&LoanAnalysisExecutor{Completer: c, Department: department}),
		},
		{
			ID:            "nh-credit-score",
			Name:          "신용점수 분석",
			Description:   "고객의 신용점수와 등급을 상세히 분석합니다",
			Icon:          "📈",
			Category:      CategoryFinance,
			DefaultPrompt: "다음 내용에서 고객의 신용점수와 신용등급을 분석하고, 등급 산정 근거와 개선 방안을 한국어로 정리해 주세요.",
			Enabled:       true,
			Executor:      RestrictConfidential(prompts),
		},
		{
			ID:            "nh-collateral",
			Name:          "담보 가치 평가",
			Description:   "부동산 등 담보물의 가치를 평가합니다",
			Icon:          "🏠",
			Category:      CategoryFinance,
			DefaultPrompt: "다음 담보물 정보를 바탕으로 감정가, 담보인정비율, 환가성 리스크를 평가하여 한국어로 정리해 주세요.",
			Enabled:       true,
			Executor:      RestrictConfidential(prompts),
		},
		{
			ID:            "nh-regulation",
			Name:          "여신 규정 검토",
			Description:   "여신 관련 규정 준수 여부를 체크합니다",
			Icon:          "📋",
			Category:      CategoryFinance,
			DefaultPrompt: "다음 여신 거래 내용이 DSR, LTV, 동일인 여신한도 등 여신 관련 규정을 준수하는지 검토하고 위반 가능 항목을 한국어로 정리해 주세요.",
			Enabled:       true,
			Executor:      RestrictConfidential(prompts),
		},
	}
}
