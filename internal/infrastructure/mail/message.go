package mail

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// buildMessage assembles an RFC 5322 multipart/alternative message with the
// plain-text part before the HTML part. Bodies are quoted-printable encoded
// so long abstract lines stay within the header line-length limit, and the
// subject is RFC 2047 encoded when it carries non-ASCII text.
func buildMessage(host, from string, to []string, subject, htmlBody, textBody string) []byte {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	var headers strings.Builder
	headers.WriteString(fmt.Sprintf("From: %s\r\n", from))
	headers.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	headers.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject)))
	headers.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	headers.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.NewString(), host))
	headers.WriteString("MIME-Version: 1.0\r\n")
	headers.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary()))
	headers.WriteString("\r\n")

	writePart(mw, "text/plain; charset=UTF-8", textBody)
	writePart(mw, "text/html; charset=UTF-8", htmlBody)
	_ = mw.Close()

	return append([]byte(headers.String()), buf.Bytes()...)
}

func writePart(mw *multipart.Writer, contentType, body string) {
	header := textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return
	}

	qp := quotedprintable.NewWriter(part)
	_, _ = qp.Write([]byte(body))
	_ = qp.Close()
}
