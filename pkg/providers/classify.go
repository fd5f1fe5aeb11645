package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/mmorev/ctrender/pkg/core"
)

// classifyRenderError maps raw client errors onto the render error taxonomy
// so callers can tell retryable failures (connection, timeout) from fatal
// ones (auth).
func classifyRenderError(provider, path string, err error) error {
	return core.NewRenderError(classifyKind(err), path, fmt.Errorf("%s: %w", provider, err))
}

func classifyKind(err error) core.RenderErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.Timeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.Timeout
	}

	var respErr *vaultapi.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return core.AuthFailure
		}
		return core.ConnectionFailure
	}

	// the consul client reports HTTP failures as plain formatted errors
	msg := err.Error()
	if strings.Contains(msg, "Unexpected response code: 401") ||
		strings.Contains(msg, "Unexpected response code: 403") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "ACL not found") {
		return core.AuthFailure
	}
	if strings.Contains(msg, "i/o timeout") {
		return core.Timeout
	}

	return core.ConnectionFailure
}
