package mailotp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeInText(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"code in sentence", "Your sign-in code is 842913 and expires soon.", "842913", true},
		{"code at start", "842913 is your code", "842913", true},
		{"code at end", "your code: 842913", "842913", true},
		{"hex color code skipped", "color: #842913; background: #ffffff", "", false},
		{"color then real code", "style=\"color:#112233\" code 842913 here", "842913", true},
		{"seven digits not a code", "order 8429131 shipped", "", false},
		{"five digits not a code", "zip 84291", "", false},
		{"embedded in word", "ref84291x3", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := codeInText(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodeInHTML(t *testing.T) {
	t.Run("heading element", func(t *testing.T) {
		got, ok := codeInHTML(`<body style="color:#123456"><h2 class="otp">842913</h2></body>`)
		require.True(t, ok)
		assert.Equal(t, "842913", got)
	})

	t.Run("tag wrapped digits", func(t *testing.T) {
		got, ok := codeInHTML(`<div><span> 842913 </span></div>`)
		require.True(t, ok)
		assert.Equal(t, "842913", got)
	})

	t.Run("color codes alone never match", func(t *testing.T) {
		_, ok := codeInHTML(`<div style="color:#842913">your code was sent</div>`)
		assert.False(t, ok)
	})
}

func buildMultipart(plain, html string) []byte {
	var b strings.Builder
	b.WriteString("From: Healthie <no-reply@gethealthie.com>\r\n")
	b.WriteString("To: inbox@clinic.example\r\n")
	b.WriteString("Subject: Sign-in verification code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=\"b1\"\r\n")
	b.WriteString("\r\n")
	if plain != "" {
		b.WriteString("--b1\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(plain)
		b.WriteString("\r\n")
	}
	if html != "" {
		b.WriteString("--b1\r\nContent-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(html)
		b.WriteString("\r\n")
	}
	b.WriteString("--b1--\r\n")
	return []byte(b.String())
}

func TestExtractCode(t *testing.T) {
	t.Run("plain text part", func(t *testing.T) {
		raw := buildMultipart("Your verification code is 842913.", "")
		code, ok := ExtractCode(raw)
		require.True(t, ok)
		assert.Equal(t, "842913", code)
	})

	t.Run("html part with styled colors", func(t *testing.T) {
		raw := buildMultipart("", `<html><body style="background:#112233"><h2>842913</h2></body></html>`)
		code, ok := ExtractCode(raw)
		require.True(t, ok)
		assert.Equal(t, "842913", code)
	})

	t.Run("no code anywhere", func(t *testing.T) {
		raw := buildMultipart("Welcome to your weekly digest.", "")
		_, ok := ExtractCode(raw)
		assert.False(t, ok)
	})

	t.Run("unparseable message falls back to text scan", func(t *testing.T) {
		code, ok := ExtractCode([]byte("code 842913"))
		require.True(t, ok)
		assert.Equal(t, "842913", code)
	})
}

func TestSearchCriteria(t *testing.T) {
	t.Run("unseen only", func(t *testing.T) {
		criteria := searchCriteria("", "")
		assert.Equal(t, []string{"\\Seen"}, criteria.WithoutFlags)
		assert.Empty(t, criteria.Header.Get("From"))
		assert.Empty(t, criteria.Header.Get("Subject"))
	})

	t.Run("with filters", func(t *testing.T) {
		criteria := searchCriteria("no-reply@gethealthie.com", "Sign-in verification code")
		assert.Equal(t, "no-reply@gethealthie.com", criteria.Header.Get("From"))
		assert.Equal(t, "Sign-in verification code", criteria.Header.Get("Subject"))
	})
}
