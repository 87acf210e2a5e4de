package status

import (
	"fmt"
	"net/http"
	"time"
)

const docURLTemplate = "https://developer.mozilla.org/en-US/docs/Web/HTTP/Status/%d"

// UnknownReason is reported for codes the protocol stack has no text for.
const UnknownReason = "Unknown Status"

// Envelope is the descriptive payload sent when the caller supplied no body.
type Envelope struct {
	Code          int    `json:"code"`
	Requested     string `json:"requested"`
	Reason        string `json:"reason"`
	Definition    string `json:"definition"`
	Documentation string `json:"documentation"`
	Timing        Timing `json:"timing"`
}

// Timing brackets the handling of a single request.
type Timing struct {
	ReceivedAt      time.Time `json:"received_at"`
	SentAt          time.Time `json:"sent_at"`
	DurationMS      int64     `json:"duration_ms"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// NewEnvelope describes code for a request received at start and answered at end.
func NewEnvelope(code int, requested string, start, end time.Time) Envelope {
	elapsed := end.Sub(start)
	return Envelope{
		Code:          code,
		Requested:     requested,
		Reason:        Reason(code),
		Definition:    Definition(code),
		Documentation: DocURL(code),
		Timing: Timing{
			ReceivedAt:      start.UTC(),
			SentAt:          end.UTC(),
			DurationMS:      elapsed.Milliseconds(),
			DurationSeconds: elapsed.Seconds(),
		},
	}
}

// Reason returns the standard reason phrase for code.
func Reason(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return UnknownReason
}

// Line renders "<code> <reason>".
func Line(code int) string { return fmt.Sprintf("%d %s", code, Reason(code)) }

// DocURL links to the reference page for code.
func DocURL(code int) string { return fmt.Sprintf(docURLTemplate, code) }

// Definition returns a short description for common codes and "" otherwise.
func Definition(code int) string { return definitions[code] }

var definitions = map[int]string{
	100: "The server has received the request headers and the client should proceed to send the body.",
	101: "The server is switching protocols as requested by the client.",
	102: "The server has received and is processing the request, but no response is available yet.",
	103: "The server is sending some headers before the final response.",
	200: "The request succeeded.",
	201: "The request succeeded and a new resource was created.",
	202: "The request has been accepted for processing, but processing has not been completed.",
	203: "The returned metadata is from a local or third-party copy, not the origin server.",
	204: "The request succeeded and there is no content to send.",
	205: "The client should reset the document that sent the request.",
	206: "The server is delivering only part of the resource due to a range header.",
	207: "The body contains status information for multiple independent operations.",
	208: "The members of a DAV binding have already been enumerated and are not included again.",
	226: "The server has fulfilled a GET request and the response is the result of instance manipulations.",
	300: "The request has more than one possible response.",
	301: "The resource has been moved permanently to a new URL.",
	302: "The resource has been moved temporarily to a different URL.",
	303: "The client should get the resource at another URL with a GET request.",
	304: "The resource has not been modified since the last request.",
	305: "The requested resource must be accessed through a proxy.",
	307: "The resource is temporarily at another URL; the method and body must not change.",
	308: "The resource is permanently at another URL; the method and body must not change.",
	400: "The server cannot process the request due to a client error.",
	401: "Authentication is required to access the resource.",
	402: "Reserved for future use in digital payment systems.",
	403: "The client does not have access rights to the content.",
	404: "The server cannot find the requested resource.",
	405: "The request method is not supported by the target resource.",
	406: "No content matches the criteria given by the user agent.",
	407: "Authentication is required by a proxy.",
	408: "The server timed out waiting for the request.",
	409: "The request conflicts with the current state of the server.",
	410: "The requested content has been permanently deleted.",
	411: "The server requires a Content-Length header.",
	412: "The client's preconditions in its headers were not met.",
	413: "The request entity is larger than the server is willing to process.",
	414: "The URI requested by the client is longer than the server is willing to interpret.",
	415: "The media format of the requested data is not supported.",
	416: "The range specified by the Range header cannot be fulfilled.",
	417: "The expectation given in the Expect header cannot be met.",
	418: "The server refuses to brew coffee because it is a teapot.",
	421: "The request was directed at a server that cannot produce a response.",
	422: "The request was well-formed but contains semantic errors.",
	423: "The resource being accessed is locked.",
	424: "The request failed because it depended on another request that failed.",
	425: "The server is unwilling to risk processing a request that might be replayed.",
	426: "The client should switch to a different protocol.",
	428: "The origin server requires the request to be conditional.",
	429: "The user has sent too many requests in a given amount of time.",
	431: "The request header fields are too large.",
	451: "The resource cannot legally be provided.",
	500: "The server encountered an unexpected condition.",
	501: "The request method is not supported by the server.",
	502: "The server received an invalid response from an upstream server.",
	503: "The server is not ready to handle the request.",
	504: "The server did not get a response in time from an upstream server.",
	505: "The HTTP version used in the request is not supported.",
	506: "The server has an internal configuration error.",
	507: "The server is unable to store the representation needed to complete the request.",
	508: "The server detected an infinite loop while processing the request.",
	510: "Further extensions to the request are required for the server to fulfill it.",
	511: "The client needs to authenticate to gain network access.",
}
