package entity

// ErrorKind classifies why a message did not produce a model reply.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInputEmpty
	KindInputTooLong
	KindRateLimited
	KindAuthError
	KindUpstreamRateLimited
	KindUpstreamError
	KindExhausted
	KindUnknown
)

var kindNames = map[ErrorKind]string{
	KindNone:                "ok",
	KindInputEmpty:          "input_empty",
	KindInputTooLong:        "input_too_long",
	KindRateLimited:         "rate_limited",
	KindAuthError:           "auth_error",
	KindUpstreamRateLimited: "upstream_rate_limited",
	KindUpstreamError:       "upstream_error",
	KindExhausted:           "exhausted",
	KindUnknown:             "unknown",
}

// String returns a stable snake_case name used in logs, metrics and the journal.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseErrorKind is the inverse of String. Unrecognised names map to KindUnknown.
func ParseErrorKind(name string) ErrorKind {
	for kind, n := range kindNames {
		if n == name {
			return kind
		}
	}
	return KindUnknown
}
