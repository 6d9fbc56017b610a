// Package multipart decodes fully buffered multipart/form-data bodies.
//
// The decoder is lenient: parts without a header/body separator
// or without a body are dropped rather than failing the request, and callers
// decide whether the fields that survived are sufficient.
package multipart

import (
	"bytes"
	"mime"
	"regexp"
	"strings"

	"github.com/ncecere/image_studio/internal/apierr"
)

var (
	crlf          = []byte("\r\n")
	headerBodySep = []byte("\r\n\r\n")

	nameAttr        = regexp.MustCompile(`(?i)(?:^|[;\s])name="([^"]*)"`)
	filenameAttr    = regexp.MustCompile(`(?i)filename="([^"]*)"`)
	contentTypeLine = regexp.MustCompile(`(?im)^content-type:[ \t]*([^\r\n]+)`)
)

// File is the part that carried a filename attribute.
type File struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Form holds the decoded fields. Parts that carry a filename land in Files,
// keyed by field name; the rest land in Values. Repeated names keep the last
// occurrence.
type Form struct {
	Values map[string]string
	Files  map[string]*File
}

// File returns the file part uploaded under the field name.
func (f *Form) File(name string) *File {
	if f == nil {
		return nil
	}
	return f.Files[name]
}

// Value returns the text field stored under name.
func (f *Form) Value(name string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.Values[name]
	return v, ok
}

// Empty reports whether no part survived decoding.
func (f *Form) Empty() bool {
	return f == nil || (len(f.Values) == 0 && len(f.Files) == 0)
}

// Boundary extracts the boundary parameter from a Content-Type header value.
func Boundary(contentType string) (string, error) {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if b := params["boundary"]; b != "" {
			return b, nil
		}
	}
	// mime.ParseMediaType rejects some headers clients send in practice, so
	// fall back to a plain parameter scan.
	idx := strings.Index(strings.ToLower(contentType), "boundary=")
	if idx < 0 {
		return "", apierr.New(apierr.KindMalformedRequest, "missing multipart boundary")
	}
	b := contentType[idx+len("boundary="):]
	if end := strings.IndexByte(b, ';'); end >= 0 {
		b = b[:end]
	}
	b = strings.Trim(strings.TrimSpace(b), `"`)
	if b == "" {
		return "", apierr.New(apierr.KindMalformedRequest, "missing multipart boundary")
	}
	return b, nil
}

// Decode splits body into fields using the boundary declared in contentType.
// The returned slices alias body; callers own body for the request lifetime.
func Decode(body []byte, contentType string) (*Form, error) {
	boundary, err := Boundary(contentType)
	if err != nil {
		return nil, err
	}
	form := &Form{Values: make(map[string]string), Files: make(map[string]*File)}

	segments := bytes.Split(body, []byte("--"+boundary))
	if len(segments) < 3 {
		return form, nil
	}
	for _, segment := range segments[1 : len(segments)-1] {
		rawHeaders, rawBody, ok := bytes.Cut(segment, headerBodySep)
		if !ok || len(bytes.TrimSpace(rawHeaders)) == 0 || len(rawBody) == 0 {
			continue
		}
		payload := bytes.TrimSuffix(rawBody, crlf)
		headers := string(rawHeaders)

		if m := filenameAttr.FindStringSubmatch(headers); m != nil {
			file := &File{
				Filename: m[1],
				Data:     payload,
			}
			if n := nameAttr.FindStringSubmatch(headers); n != nil {
				file.Field = n[1]
			}
			if ct := contentTypeLine.FindStringSubmatch(headers); ct != nil {
				file.ContentType = strings.TrimSpace(ct[1])
			}
			form.Files[file.Field] = file
			continue
		}
		if n := nameAttr.FindStringSubmatch(headers); n != nil && n[1] != "" {
			form.Values[n[1]] = string(payload)
		}
	}
	return form, nil
}
