package constants

// structured logging keys
const (
	LOG_REQUEST_ID = "request_id"
	LOG_METHOD     = "method"
	LOG_URI        = "uri"
	LOG_USER_AGENT = "user_agent"
	LOG_REMOTE_ADR = "remote_addr"
	LOG_REFERER    = "referer"
)

// path parameters
const (
	PATH_PARAMETER_RUN_ID = "run_id"
)

// environment variables
const (
	EnvVarTerminationFile = "PROBE_HUB_TERMINATION_FILE"
)
