package render

import (
	"strings"
	"testing"

	"luat-chat/pkg/citation"
)

func TestRenderAnswerArticleButtons(t *testing.T) {
	r := New()
	text, refs := citation.Parse("Theo Điều 8 thì nam từ đủ 20 tuổi được kết hôn.")

	out, err := r.RenderAnswer(text, refs)
	if err != nil {
		t.Fatalf("RenderAnswer failed: %v", err)
	}
	got := string(out)

	if !strings.Contains(got, `data-article="8"`) {
		t.Errorf("missing article data attribute in %q", got)
	}
	if !strings.Contains(got, "<button") {
		t.Errorf("reference not rendered as a button in %q", got)
	}
	if !strings.Contains(got, ">Điều 8</button>") {
		t.Errorf("button lost its visible text in %q", got)
	}
	if strings.Contains(got, "article:") {
		t.Errorf("internal scheme leaked into output %q", got)
	}
}

func TestRenderAnswerClauseAttribute(t *testing.T) {
	r := New()
	text, refs := citation.Parse("Xem Điều 5 Khoản 2 để biết thêm.")

	out, err := r.RenderAnswer(text, refs)
	if err != nil {
		t.Fatalf("RenderAnswer failed: %v", err)
	}

	if !strings.Contains(string(out), `data-clause="2"`) {
		t.Errorf("missing clause data attribute in %q", out)
	}
}

func TestRenderAnswerMarkdown(t *testing.T) {
	r := New()

	out, err := r.RenderAnswer("Điều kiện **bắt buộc** gồm:\n\n- tự nguyện\n- đủ tuổi\n", nil)
	if err != nil {
		t.Fatalf("RenderAnswer failed: %v", err)
	}
	got := string(out)

	if !strings.Contains(got, "<strong>bắt buộc</strong>") {
		t.Errorf("bold not rendered in %q", got)
	}
	if !strings.Contains(got, "<li>") {
		t.Errorf("list not rendered in %q", got)
	}
}

func TestRenderAnswerOrdinaryLinksUntouched(t *testing.T) {
	r := New()

	out, err := r.RenderAnswer("Xem [cổng dịch vụ công](https://dichvucong.gov.vn).", nil)
	if err != nil {
		t.Fatalf("RenderAnswer failed: %v", err)
	}

	if !strings.Contains(string(out), `<a href="https://dichvucong.gov.vn">`) {
		t.Errorf("ordinary link was rewritten: %q", out)
	}
}

func TestRenderAnswerMultipleReferences(t *testing.T) {
	r := New()
	text, refs := citation.Parse("Điều 51 và Điều 56 Khoản 1 đều áp dụng.")

	out, err := r.RenderAnswer(text, refs)
	if err != nil {
		t.Fatalf("RenderAnswer failed: %v", err)
	}
	got := string(out)

	if strings.Count(got, "<button") != 2 {
		t.Errorf("expected 2 buttons, got output %q", got)
	}
	if strings.Index(got, `data-article="51"`) > strings.Index(got, `data-article="56"`) {
		t.Errorf("references out of order in %q", got)
	}
}

func TestLinkifySkipsStaleOffsets(t *testing.T) {
	text := "ngắn"
	refs := []citation.ArticleReference{
		{ArticleNum: "8", Text: "Điều 8", Start: 2, End: 100},
	}

	if got := linkify(text, refs); got != text {
		t.Errorf("stale offsets corrupted text: %q", got)
	}
}
