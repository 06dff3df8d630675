package models

import "errors"

// Error taxonomy shared by services, routes and CLIs. Callers wrap these with
// fmt.Errorf("...: %w", ...) and match with errors.Is.
var (
	ErrInputMissing      = errors.New("input missing")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrTableNotFound     = errors.New("no table found in html")
	ErrModelError        = errors.New("model error")
	ErrFileNotFound      = errors.New("file not found")
)
