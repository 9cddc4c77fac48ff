package service

import (
	"strings"
	"testing"
)

func TestRenderCoachMessage(t *testing.T) {
	html, err := RenderCoachMessage("挑**一件**小事完成就好")
	if err != nil {
		t.Fatalf("RenderCoachMessage returned error: %v", err)
	}
	if !strings.Contains(string(html), "<strong>一件</strong>") {
		t.Fatalf("expected rendered markdown, got %s", html)
	}
}

func TestRenderCoachMessageSanitizesScript(t *testing.T) {
	html, err := RenderCoachMessage(`今天也不错 <script>alert("x")</script>`)
	if err != nil {
		t.Fatalf("RenderCoachMessage returned error: %v", err)
	}
	if strings.Contains(string(html), "<script>") {
		t.Fatalf("script tags must be stripped, got %s", html)
	}
}
