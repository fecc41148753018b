package mailbox

import (
	"testing"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "empty input",
			html:     "",
			expected: "",
		},
		{
			name:     "tags removed",
			html:     "<html><body><b>Hello</b> world</body></html>",
			expected: "Hello world",
		},
		{
			name:     "breaks become newlines",
			html:     "line one<br>line two<br />line three",
			expected: "line one\nline two\nline three",
		},
		{
			name:     "paragraphs become newlines",
			html:     "<p>first</p><p>second</p>",
			expected: "first\nsecond",
		},
		{
			name:     "entities decoded",
			html:     "Tom &amp; Jerry &lt;3 &quot;cartoons&quot;&nbsp;&#39;forever&#39;",
			expected: `Tom & Jerry <3 "cartoons" 'forever'`,
		},
		{
			name:     "blank runs collapsed",
			html:     "<p>first</p><br><br><br><p>second</p>",
			expected: "first\n\nsecond",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.html); got != tt.expected {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.html, got, tt.expected)
			}
		})
	}
}

func TestDisplayNameFromAddress(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		expected string
	}{
		{
			name:     "dotted local part",
			addr:     "jane.doe@example.com",
			expected: "Jane Doe",
		},
		{
			name:     "underscore separator",
			addr:     "jane_doe@example.com",
			expected: "Jane Doe",
		},
		{
			name:     "single word",
			addr:     "jane@example.com",
			expected: "Jane",
		},
		{
			name:     "upper case local part",
			addr:     "JANE.DOE@example.com",
			expected: "Jane Doe",
		},
		{
			name:     "no at sign",
			addr:     "not-an-address",
			expected: "not-an-address",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := displayNameFromAddress(tt.addr); got != tt.expected {
				t.Errorf("displayNameFromAddress(%q) = %q, want %q", tt.addr, got, tt.expected)
			}
		})
	}
}

func TestExtractPlainTextPrefersTextPart(t *testing.T) {
	raw := []byte("From: alice@example.com\r\n" +
		"To: me@example.com\r\n" +
		"Subject: Test\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUNDARY\r\n" +
		"\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain body\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html body</p>\r\n" +
		"--BOUNDARY--\r\n")

	if got := extractPlainText(raw); got != "plain body" {
		t.Errorf("extractPlainText() = %q, want %q", got, "plain body")
	}
}

func TestExtractPlainTextFallsBackToHTML(t *testing.T) {
	raw := []byte("From: alice@example.com\r\n" +
		"To: me@example.com\r\n" +
		"Subject: Test\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>only html</p>\r\n")

	if got := extractPlainText(raw); got != "only html" {
		t.Errorf("extractPlainText() = %q, want %q", got, "only html")
	}
}
