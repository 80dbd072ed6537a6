package engine

import (
	"context"
	"errors"
	"net"

	"sheetpilot/engine/internal/errinfo"
	"sheetpilot/engine/internal/llm"
)

func mapLLMError(phase string, err error) *errinfo.ErrorInfo {
	if errors.Is(err, llm.ErrUnauthorized) {
		return errinfo.ProviderAuthFailed(phase)
	}
	if errors.Is(err, llm.ErrEgressBlocked) {
		info := errinfo.EgressBlocked(phase)
		info.Detail = "provider endpoint not allowed"
		return info
	}
	if errors.Is(err, llm.ErrUnavailable) || errors.Is(err, llm.ErrRateLimited) {
		info := errinfo.ProviderUnavailable(phase)
		info.Detail = err.Error()
		return info
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		info := errinfo.NetworkUnavailable(phase)
		info.Detail = err.Error()
		return info
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		info := errinfo.NetworkUnavailable(phase)
		info.Detail = err.Error()
		return info
	}
	return errinfo.ValidationFailed(phase, err.Error())
}
