package export

import (
	"strings"
	"testing"
)

func TestRender_PlainStyle(t *testing.T) {
	out := Render(Markdown(testRules(), exportTime), "notty", 80)

	if !strings.Contains(out, "Tab grouping rules") {
		t.Errorf("missing title, got:\n%s", out)
	}
	if !strings.Contains(out, "mail.google.com") {
		t.Errorf("missing pattern, got:\n%s", out)
	}
}

func TestRender_UnknownStyleFallsBack(t *testing.T) {
	md := "# Title\n"
	if out := Render(md, "/nonexistent/style.json", 80); out != md {
		t.Errorf("expected raw markdown back, got %q", out)
	}
}
