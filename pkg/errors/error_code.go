package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown     ErrorCode = 1
	ErrCodeComputation ErrorCode = 2

	// Validation errors (100-199)
	ErrCodeInvalidArgument      ErrorCode = 100
	ErrCodeInvalidWindow        ErrorCode = 101
	ErrCodeInvalidConfiguration ErrorCode = 102
	ErrCodeInsufficientData     ErrorCode = 103
	ErrCodeInvalidVersion       ErrorCode = 104
	ErrCodeInvalidSeries        ErrorCode = 105

	// Data/Resource errors (200-299)
	ErrCodeSymbolNotFound   ErrorCode = 200
	ErrCodeStoreUnavailable ErrorCode = 201
	ErrCodeQueryFailed      ErrorCode = 202
	ErrCodeLoadFailed       ErrorCode = 203

	// Indicator errors (300-399)
	ErrCodeUnknownIndicator ErrorCode = 300

	// Strategy errors (400-499)
	ErrCodeUnknownStrategy ErrorCode = 400

	// Portfolio errors (500-599)
	ErrCodeUnknownMethod     ErrorCode = 500
	ErrCodeDegenerateWeights ErrorCode = 501

	// Chart errors (600-699)
	ErrCodeChartRender ErrorCode = 600

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeInvalidProvider       ErrorCode = 702
)
