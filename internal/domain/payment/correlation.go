package payment

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultCorrelationPrefix is prepended to the transaction ID in bank-transfer memos
const DefaultCorrelationPrefix = "BM"

// CorrelationCodec encodes a transaction ID into a memo token and finds it
// again in free-text bank memos.
//
// Matching is case-insensitive and tolerates one separator between prefix and
// digits ("BM42", "bm 42", "BM-42"). The prefix must not follow a letter or
// digit, and the whole digit run is the ID: a run too long for an ID matches
// nothing. The first match wins. Text without a match is not an error.
type CorrelationCodec struct {
	prefix  string
	pattern *regexp.Regexp
}

// NewCorrelationCodec creates a codec for the prefix; empty means DefaultCorrelationPrefix
func NewCorrelationCodec(prefix string) *CorrelationCodec {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultCorrelationPrefix
	}
	return &CorrelationCodec{
		prefix:  prefix,
		pattern: regexp.MustCompile(`(?i)(?:^|[^0-9A-Za-z])` + regexp.QuoteMeta(prefix) + `[\s\-_.]?(\d+)`),
	}
}

// Prefix returns the normalized prefix
func (c *CorrelationCodec) Prefix() string {
	return c.prefix
}

// Encode returns the correlation code for a transaction ID
func (c *CorrelationCodec) Encode(transactionID int64) string {
	return c.prefix + strconv.FormatInt(transactionID, 10)
}

// Extract finds the transaction ID embedded in memo text
func (c *CorrelationCodec) Extract(memo string) (int64, bool) {
	m := c.pattern.FindStringSubmatch(memo)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
