package core

import "fmt"

// RenderErrorKind discriminates render failures so a caller can decide
// whether a retry makes sense (ConnectionFailure, Timeout) or the run should
// abort immediately (AuthFailure, MissingKey, TemplateSyntax).
type RenderErrorKind string

const (
	ConnectionFailure RenderErrorKind = "connection_failure"
	AuthFailure       RenderErrorKind = "auth_failure"
	MissingKey        RenderErrorKind = "missing_key"
	TemplateSyntax    RenderErrorKind = "template_syntax"
	Timeout           RenderErrorKind = "timeout"
)

// RenderError is any failure while resolving a template against the KV
// backends. Path is the key or secret path involved, or the template name
// for syntax errors.
type RenderError struct {
	Kind RenderErrorKind
	Path string
	Err  error
}

func NewRenderError(kind RenderErrorKind, path string, err error) *RenderError {
	return &RenderError{Kind: kind, Path: path, Err: err}
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("render: %s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("render: %s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// DeliveryErrorKind discriminates delivery failures. Every kind except
// CommitFailure guarantees the destination was left byte-identical to its
// pre-call content.
type DeliveryErrorKind string

const (
	ValidationFailed DeliveryErrorKind = "validation_failed"
	CommitFailure    DeliveryErrorKind = "commit_failure"
	PermissionDenied DeliveryErrorKind = "permission_denied"
	BackupFailed     DeliveryErrorKind = "backup_failed"
)

// DeliveryError is any failure while installing a rendered artifact at its
// destination.
type DeliveryError struct {
	Kind DeliveryErrorKind
	Path string
	Err  error
}

func NewDeliveryError(kind DeliveryErrorKind, path string, err error) *DeliveryError {
	return &DeliveryError{Kind: kind, Path: path, Err: err}
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("deliver: %s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("deliver: %s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
