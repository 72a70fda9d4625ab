package mailotp

import (
	"bytes"
	"io"
	"mime"
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"
)

var (
	sixDigitRun = regexp.MustCompile(`\d{6}`)
	// HTML extraction targets the heading the portal renders the code in, or
	// a bare tag-wrapped digit run. Matching against the whole markup would
	// also hit hex color codes in inline styles.
	headingCode    = regexp.MustCompile(`(?i)<h2[^>]*>\s*(\d{6})\s*</h2>`)
	tagWrappedCode = regexp.MustCompile(`>\s*(\d{6})\s*<`)
)

// ExtractCode pulls a 6-digit verification code out of a raw RFC 822
// message. Multipart messages are walked part by part: plain-text parts are
// scanned for a standalone digit run, HTML parts for a tag-wrapped one.
func ExtractCode(raw []byte) (string, bool) {
	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Not parseable as a MIME message; scan it as plain text.
		return codeInText(string(raw))
	}
	defer reader.Close()

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		contentType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/html"):
			if code, ok := codeInHTML(string(body)); ok {
				return code, true
			}
		case contentType == "" || strings.HasPrefix(contentType, "text/plain"):
			if code, ok := codeInText(string(body)); ok {
				return code, true
			}
		}
	}
	return "", false
}

// codeInText finds the first standalone 6-digit run. Runs preceded by '#'
// are skipped so hex color codes never match.
func codeInText(text string) (string, bool) {
	for _, loc := range sixDigitRun.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 {
			prev := text[start-1]
			if prev == '#' || isWordByte(prev) {
				continue
			}
		}
		if end < len(text) && isWordByte(text[end]) {
			continue
		}
		return text[start:end], true
	}
	return "", false
}

func codeInHTML(markup string) (string, bool) {
	if m := headingCode.FindStringSubmatch(markup); m != nil {
		return m[1], true
	}
	if m := tagWrappedCode.FindStringSubmatch(markup); m != nil {
		return m[1], true
	}
	return "", false
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}
