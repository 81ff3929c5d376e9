// Package mailtext turns a raw email container into the plain text handed to
// the extractor.
package mailtext

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"
)

// ErrUnparseable is returned when the bytes are not an email container at all.
var ErrUnparseable = errors.New("email unparseable")

// maxNesting bounds recursion into attached message/rfc822 parts.
const maxNesting = 4

var headerLine = regexp.MustCompile("^[A-Za-z0-9!#$%&'*+\\-.^_`|~]+:")

// Normalizer extracts the human readable text of an email.
type Normalizer struct {
	log *zap.Logger
}

// NewNormalizer creates a normalizer. A nil logger discards output.
func NewNormalizer(log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{log: log}
}

// Normalize returns the text and tag-stripped HTML parts of raw, in part
// order, separated by newlines. An email with neither yields "" and no error.
// Parts that fail to decode are skipped.
func (n *Normalizer) Normalize(raw []byte) (string, error) {
	return n.normalize(raw, 0)
}

func (n *Normalizer) normalize(raw []byte, depth int) (string, error) {
	if !looksLikeEmail(raw) {
		return "", fmt.Errorf("%w: no header block", ErrUnparseable)
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	var sections []string
	n.walk(env.Root, depth, &sections)

	return tidy(strings.Join(sections, "\n")), nil
}

// walk visits leaf parts depth-first, in document order.
func (n *Normalizer) walk(p *enmime.Part, depth int, out *[]string) {
	if p == nil {
		return
	}
	if p.FirstChild != nil {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			n.walk(c, depth, out)
		}
		return
	}

	text, ok := n.partText(p, depth)
	if ok && strings.TrimSpace(text) != "" {
		*out = append(*out, text)
	}
}

// partText decodes one leaf. The boolean is false for parts that carry no
// readable text or could not be decoded.
func (n *Normalizer) partText(p *enmime.Part, depth int) (string, bool) {
	ctype := strings.ToLower(p.ContentType)
	isRoot := p.Parent == nil

	switch {
	case ctype == "text/plain", ctype == "" && isRoot:
	case ctype == "text/html":
	case ctype == "message/rfc822":
		if depth >= maxNesting {
			n.log.Debug("Nested message too deep, skipping", zap.Int("depth", depth))
			return "", false
		}
		text, err := n.normalize(p.Content, depth+1)
		if err != nil {
			n.log.Debug("Skipping unreadable attached message", zap.Error(err))
			return "", false
		}
		return text, true
	default:
		return "", false
	}

	for _, perr := range p.Errors {
		if perr != nil && perr.Severe {
			n.log.Debug("Skipping part with decode error",
				zap.String("content_type", p.ContentType),
				zap.String("error", perr.Name+": "+perr.Detail))
			return "", false
		}
	}
	if !utf8.Valid(p.Content) {
		n.log.Debug("Skipping part with undecodable charset",
			zap.String("content_type", p.ContentType),
			zap.String("charset", p.Charset))
		return "", false
	}

	if ctype == "text/html" {
		text, err := StripHTML(string(p.Content))
		if err != nil {
			n.log.Debug("Skipping unparseable HTML part", zap.Error(err))
			return "", false
		}
		return text, true
	}
	return string(p.Content), true
}

// mailHeaders are the fields at least one of which every email carries.
var mailHeaders = map[string]bool{
	"from":                      true,
	"to":                        true,
	"cc":                        true,
	"date":                      true,
	"subject":                   true,
	"message-id":                true,
	"mime-version":              true,
	"received":                  true,
	"return-path":               true,
	"content-type":              true,
	"content-transfer-encoding": true,
}

// looksLikeEmail reports whether raw opens with a header block, optionally
// after an mbox "From " separator, that names at least one mail header.
// Every line of the block must be a header field or a continuation.
func looksLikeEmail(raw []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	started, known := false, false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case strings.TrimSpace(line) == "":
			if started {
				return known
			}
		case !started && strings.HasPrefix(line, "From "):
			started = true
		case started && (line[0] == ' ' || line[0] == '\t'):
			// folded continuation
		case headerLine.MatchString(line):
			started = true
			name := strings.ToLower(line[:strings.IndexByte(line, ':')])
			if mailHeaders[name] {
				known = true
			}
		default:
			return false
		}
	}
	return known
}

// tidy right-trims each line and trims the whole text.
func tidy(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
