package mailbox

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"

	_ "github.com/emersion/go-message/charset" // register non-UTF-8 decoders
)

var (
	htmlTagPattern    = regexp.MustCompile(`(?s)<(?:script|style)\b.*?</(?:script|style)>|<[^>]*>`)
	htmlEntityBreaks  = regexp.MustCompile(`(?i)<\s*(?:br|/p|/div|/tr)\s*/?\s*>`)
	whitespacePattern = regexp.MustCompile(`[ \t]{2,}`)
)

// ParseBody splits a raw RFC 5322 message into its plain-text and HTML
// bodies. Only inline text parts are considered; attachments and other MIME
// parts are ignored. A message that cannot be parsed as MIME is returned
// whole as plain text.
func ParseBody(raw []byte) (text, html string, err error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Not MIME; use everything after the header block.
		return rawBodyFallback(raw), "", nil
	}
	defer func() { _ = mr.Close() }()

	for {
		part, perr := mr.NextPart()
		if perr == io.EOF {
			break
		}
		if perr != nil {
			return "", "", perr
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, cterr := header.ContentType()
		if cterr != nil {
			continue
		}

		body, rerr := io.ReadAll(part.Body)
		if rerr != nil {
			continue
		}

		switch contentType {
		case "text/plain":
			if text == "" {
				text = strings.TrimSpace(string(body))
			}
		case "text/html":
			if html == "" {
				html = StripHTML(string(body))
			}
		}
	}

	return text, html, nil
}

// StripHTML reduces an HTML body to readable text via tag removal. It is not
// a renderer; block-level closers become newlines so extraction patterns can
// anchor on line boundaries.
func StripHTML(s string) string {
	s = htmlEntityBreaks.ReplaceAllString(s, "\n")
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(s)
	s = whitespacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}

func rawBodyFallback(raw []byte) string {
	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return strings.TrimSpace(string(raw[idx+4:]))
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return strings.TrimSpace(string(raw[idx+2:]))
	}
	return strings.TrimSpace(string(raw))
}
