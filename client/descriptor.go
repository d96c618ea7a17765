package client

import (
	"fmt"
	"net/url"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatusRange is an inclusive range of HTTP status codes counted as success.
// The zero value means the default range 200-299.
type StatusRange struct {
	Min int
	Max int
}

// DefaultSuccessRange is used when a descriptor does not declare one.
var DefaultSuccessRange = StatusRange{Min: 200, Max: 299}

// Contains reports whether the status code falls inside the range.
func (r StatusRange) Contains(statusCode int) bool {
	if r.Min == 0 && r.Max == 0 {
		r = DefaultSuccessRange
	}
	return statusCode >= r.Min && statusCode <= r.Max
}

// BodyEncoder turns a descriptor body value into wire bytes plus a
// content type.
type BodyEncoder func(v any) (data []byte, contentType string, err error)

// EncodeJSON is the default body encoder.
func EncodeJSON(v any) ([]byte, string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// Decoder turns response bytes plus metadata into a typed value.
type Decoder[T any] func(data []byte, meta *ResponseMeta) (T, error)

// DecodeJSON decodes the body as JSON into T.
func DecodeJSON[T any](data []byte, meta *ResponseMeta) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

// defaultDecoder picks a decoder from the shape of T: struct{} discards the
// body, []byte and string take it verbatim, everything else decodes JSON.
func defaultDecoder[T any]() Decoder[T] {
	return func(data []byte, meta *ResponseMeta) (T, error) {
		var v T
		switch p := any(&v).(type) {
		case *struct{}:
			return v, nil
		case *[]byte:
			*p = append([]byte(nil), data...)
			return v, nil
		case *string:
			*p = string(data)
			return v, nil
		default:
			if len(data) == 0 {
				return v, nil
			}
			if err := json.Unmarshal(data, &v); err != nil {
				return v, err
			}
			return v, nil
		}
	}
}

// Descriptor specifies the shape of one logical request: how to build the
// request and how to decode the success body (as S) or the failure body
// (as F). Descriptors are plain values; the orchestrator never mutates them.
type Descriptor[S, F any] struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string

	// Body is encoded with Encode on every attempt; nil means no body.
	Body   any
	Encode BodyEncoder

	// Success is the inclusive status range treated as success.
	// The zero value means 200-299.
	Success StatusRange

	// DecodeSuccess and DecodeFailure default to shape-derived decoders:
	// struct{} discards the body, []byte and string take it verbatim,
	// anything else is decoded as JSON.
	DecodeSuccess Decoder[S]
	DecodeFailure Decoder[F]

	// Retry overrides the client's default retry policy for this descriptor.
	Retry *RetryPolicy
}

// request builds the prepared request for one attempt. A failure here is an
// invalid-request error and is never retried.
func (d *Descriptor[S, F]) request(defaultHeaders map[string]string) (*Request, error) {
	if d.Method == "" {
		return nil, NewInvalidRequestError("method is empty")
	}
	if d.Path == "" {
		return nil, NewInvalidRequestError("path is empty")
	}

	u, err := url.Parse(d.Path)
	if err != nil {
		return nil, NewInvalidRequestError(fmt.Sprintf("malformed path %q: %v", d.Path, err))
	}
	if len(d.Query) > 0 {
		q := u.Query()
		for key, values := range d.Query {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		u.RawQuery = q.Encode()
	}

	headers := make(map[string]string, len(defaultHeaders)+len(d.Headers))
	for k, v := range defaultHeaders {
		headers[k] = v
	}
	for k, v := range d.Headers {
		headers[k] = v
	}

	var body []byte
	if d.Body != nil {
		encode := d.Encode
		if encode == nil {
			encode = EncodeJSON
		}
		data, contentType, err := encode(d.Body)
		if err != nil {
			return nil, NewInvalidRequestError(fmt.Sprintf("body encoding failed: %v", err))
		}
		body = data
		if contentType != "" {
			if _, ok := headers["Content-Type"]; !ok {
				headers["Content-Type"] = contentType
			}
		}
	}

	return &Request{
		Method:  d.Method,
		URL:     u.String(),
		Headers: headers,
		Body:    body,
	}, nil
}

func (d *Descriptor[S, F]) decodeSuccess() Decoder[S] {
	if d.DecodeSuccess != nil {
		return d.DecodeSuccess
	}
	return defaultDecoder[S]()
}

func (d *Descriptor[S, F]) decodeFailure() Decoder[F] {
	if d.DecodeFailure != nil {
		return d.DecodeFailure
	}
	return defaultDecoder[F]()
}
