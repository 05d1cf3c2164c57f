package web

import "errors"

var (
	// ErrTemplate is returned when the embedded templates fail to parse.
	ErrTemplate = errors.New("template parse failed")
	// ErrRender is returned when a page fails to execute.
	ErrRender = errors.New("page render failed")
)
