package security

import (
	"testing"
	"time"
)

// ImageURLGuardServiceインターフェースの実装確認
var _ ImageURLGuardService = (*imageURLGuard)(nil)

func TestValidateURL_AllowedURLs(t *testing.T) {
	guard := NewImageURLGuard()

	tests := []struct {
		name string
		url  string
	}{
		{"httpsの公開URL", "https://cdn.example.com/images/tee.jpg"},
		{"httpの公開URL", "http://cdn.example.com/images/tee.jpg"},
		{"パブリックIPアドレス", "https://93.184.216.34/images/tee.jpg"},
		{"サイト内の相対パス", "/images/products/classic-tee.jpg"},
		{"クエリ付きURL", "https://cdn.example.com/img?id=123&w=400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := guard.ValidateURL(tt.url); err != nil {
				t.Errorf("ValidateURL(%q) = %v, want nil", tt.url, err)
			}
		})
	}
}

func TestValidateURL_BlockedURLs(t *testing.T) {
	guard := NewImageURLGuard()

	tests := []struct {
		name string
		url  string
	}{
		{"空URL", ""},
		{"javascriptスキーム", "javascript:alert(1)"},
		{"dataスキーム", "data:image/png;base64,AAAA"},
		{"fileスキーム", "file:///etc/passwd"},
		{"ftpスキーム", "ftp://example.com/image.jpg"},
		{"localhost", "https://localhost/image.jpg"},
		{"localhostの大文字", "https://LOCALHOST/image.jpg"},
		{"ループバックIP", "https://127.0.0.1/image.jpg"},
		{"プライベートIP 10系", "https://10.0.0.5/image.jpg"},
		{"プライベートIP 172系", "https://172.16.0.1/image.jpg"},
		{"プライベートIP 192系", "https://192.168.1.1/image.jpg"},
		{"クラウドメタデータIP", "https://169.254.169.254/latest/meta-data/"},
		{"IPv6ループバック", "https://[::1]/image.jpg"},
		{"スキームなし", "cdn.example.com/image.jpg"},
		{"プロトコル相対URL", "//cdn.example.com/image.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := guard.ValidateURL(tt.url); err == nil {
				t.Errorf("ValidateURL(%q) = nil, want error", tt.url)
			}
		})
	}
}

func TestNewSafeClient_CreatesClient(t *testing.T) {
	guard := NewImageURLGuard()

	client := guard.NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient returned nil")
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want %v", client.Timeout, 5*time.Second)
	}
}
