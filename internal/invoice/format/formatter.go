// Package format renders invoice numbers from the configured template.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	seqPadRe   = regexp.MustCompile(`\{SEQ(\d+)\}`)
	seqTokenRe = regexp.MustCompile(`\{SEQ\d*\}`)
)

const DefaultInvoiceNumberTemplate = "{PREFIX}-{YYYY}-{SEQ5}"

// FormatInvoiceNumber expands template for the given issue time and
// sequence. Supported tokens: {PREFIX} {YYYY} {YY} {MM} {DD} {SEQ} {SEQn}.
func FormatInvoiceNumber(template, prefix string, issuedAt time.Time, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}

	out := expandFixed(template, prefix, issuedAt)
	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 || width > 18 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in invoice format: %s", out)
	}
	out = strings.Trim(out, trimSet)
	if out == "" {
		return "", fmt.Errorf("invoice number template %q renders empty", template)
	}
	return out, nil
}

// SequenceBounds returns the rendered text around the sequence token, so a
// number produced by the same template on the same day reads as
// head + digits + tail. ok is false when the template has no sequence.
func SequenceBounds(template, prefix string, issuedAt time.Time) (head, tail string, ok bool) {
	loc := seqTokenRe.FindStringIndex(template)
	if loc == nil {
		return "", "", false
	}
	head = strings.TrimLeft(expandFixed(template[:loc[0]], prefix, issuedAt), trimSet)
	tail = strings.TrimRight(expandFixed(template[loc[1]:], prefix, issuedAt), trimSet)
	return head, tail, true
}

// ParseSequence extracts the sequence from number given the bounds returned
// by SequenceBounds.
func ParseSequence(number, head, tail string) (int64, bool) {
	if !strings.HasPrefix(number, head) || !strings.HasSuffix(number, tail) || len(number) <= len(head)+len(tail) {
		return 0, false
	}
	digits := number[len(head) : len(number)-len(tail)]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	seq, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

const trimSet = "-_/ "

func expandFixed(template, prefix string, issuedAt time.Time) string {
	out := strings.ReplaceAll(template, "{PREFIX}", strings.TrimSpace(prefix))
	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	return strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))
}
