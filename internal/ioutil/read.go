package ioutil

import (
	"errors"
	"fmt"
	"io"
)

// ErrBodyTooLarge is returned by ReadBody when the reader holds more than limit bytes.
var ErrBodyTooLarge = errors.New("body exceeds read limit")

// ReadLimited reads up to limit bytes from r and returns the content as a string.
// If reading fails, returns a string describing the read failure instead of silencing
// the error. This is intended for including response bodies in logs, never in
// responses sent to the browser.
func ReadLimited(r io.Reader, limit int64) string {
	body, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	return string(body)
}

// ReadBody reads the whole of r, failing with ErrBodyTooLarge instead of
// silently truncating when r holds more than limit bytes.
func ReadBody(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}
