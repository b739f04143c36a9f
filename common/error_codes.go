package common

const ErrCodeBadRequest = "SR_BAD_REQUEST"
const ErrCodeInvalid = "SR_INVALID"
const ErrCodeConflict = "SR_CONFLICT"
const ErrCodeExtraction = "SR_EXTRACTION_FAILED"
const ErrCodeTooLarge = "SR_TOO_LARGE"
const ErrCodeNotFound = "SR_NOT_FOUND"
const ErrCodeMethodNotAllowed = "SR_METHOD_NOT_ALLOWED"
const ErrCodeUnknown = "SR_UNKNOWN"
