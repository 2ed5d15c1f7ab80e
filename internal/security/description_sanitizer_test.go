package security

import (
	"strings"
	"testing"
)

// DescriptionSanitizerServiceインターフェースの実装確認
var _ DescriptionSanitizerService = (*descriptionSanitizer)(nil)

func TestSanitize_AllowedTagsKept(t *testing.T) {
	s := NewDescriptionSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"pタグ", "<p>柔らかいコットン生地</p>", "<p>柔らかいコットン生地</p>"},
		{"brタグ", "軽量<br>速乾", "軽量<br>速乾"},
		{"strongタグ", "<strong>限定</strong>カラー", "<strong>限定</strong>カラー"},
		{"emタグ", "<em>新作</em>", "<em>新作</em>"},
		{"リスト", "<ul><li>綿100%</li><li>日本製</li></ul>", "<ul><li>綿100%</li><li>日本製</li></ul>"},
		{"プレーンテキスト", "A wardrobe staple.", "A wardrobe staple."},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_DangerousTagsRemoved(t *testing.T) {
	s := NewDescriptionSanitizer()

	tests := []struct {
		name       string
		input      string
		mustAbsent []string
	}{
		{
			"scriptタグ",
			`<p>説明</p><script>alert("xss")</script>`,
			[]string{"<script", "alert"},
		},
		{
			"iframeタグ",
			`<iframe src="https://evil.example.com"></iframe>本文`,
			[]string{"<iframe", "evil.example.com"},
		},
		{
			"styleタグ",
			`<style>body{display:none}</style>本文`,
			[]string{"<style", "display:none"},
		},
		{
			"imgタグ",
			`<p>本文</p><img src="https://cdn.example.com/x.png">`,
			[]string{"<img"},
		},
		{
			"aタグ",
			`<a href="https://evil.example.com">こちら</a>`,
			[]string{"<a ", "href"},
		},
		{
			"onclickイベント属性",
			`<p onclick="alert(1)">本文</p>`,
			[]string{"onclick"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			for _, absent := range tt.mustAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, %qが残っています", tt.input, got, absent)
				}
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	s := NewDescriptionSanitizer()

	input := `<p>説明<script>alert(1)</script></p><ul><li>綿100%</li></ul>`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("サニタイズが冪等ではありません: once=%q twice=%q", once, twice)
	}
}
