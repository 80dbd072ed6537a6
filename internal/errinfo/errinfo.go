package errinfo

// ErrorInfo is the structured error payload returned across the RPC boundary.
type ErrorInfo struct {
	ErrorCode string `json:"error_code"`
	Phase     string `json:"phase,omitempty"`
	Retryable bool   `json:"retryable"`
	ModelID   string `json:"model_id,omitempty"`
	SheetName string `json:"sheet_name,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

const (
	CodeEgressBlocked         = "EGRESS_BLOCKED_BY_POLICY"
	CodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	CodeProviderAuthFailed    = "PROVIDER_AUTH_FAILED"
	CodeProviderUnavailable   = "PROVIDER_UNAVAILABLE"
	CodeNetworkUnavailable    = "NETWORK_UNAVAILABLE"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeSheetNotFound         = "SHEET_NOT_FOUND"
	CodeFileReadFailed        = "FILE_READ_FAILED"
	CodeFileWriteFailed       = "FILE_WRITE_FAILED"
)

const (
	PhaseSheet    = "sheet"
	PhaseFormula  = "formula"
	PhaseAssist   = "assist"
	PhaseWorkbook = "workbook"
	PhaseSettings = "settings"
)

func ProviderNotConfigured(phase string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderNotConfigured,
		Phase:     phase,
		Retryable: false,
	}
}

func ProviderAuthFailed(phase string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderAuthFailed,
		Phase:     phase,
		Retryable: false,
	}
}

func ProviderUnavailable(phase string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeProviderUnavailable,
		Phase:     phase,
		Retryable: true,
	}
}

func NetworkUnavailable(phase string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeNetworkUnavailable,
		Phase:     phase,
		Retryable: true,
	}
}

func EgressBlocked(phase string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeEgressBlocked,
		Phase:     phase,
		Retryable: false,
	}
}

func ValidationFailed(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeValidationFailed,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func SheetNotFound(phase, name string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeSheetNotFound,
		Phase:     phase,
		Retryable: false,
		SheetName: name,
		Detail:    "sheet not found: " + name,
	}
}

func FileReadFailed(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeFileReadFailed,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}

func FileWriteFailed(phase, detail string) *ErrorInfo {
	return &ErrorInfo{
		ErrorCode: CodeFileWriteFailed,
		Phase:     phase,
		Retryable: false,
		Detail:    detail,
	}
}
