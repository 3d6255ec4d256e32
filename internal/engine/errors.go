package engine

import "fmt"

// Error codes surfaced by the object store.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeSchemaNotFound   = "SCHEMA_NOT_FOUND"
	CodeInstanceNotFound = "INSTANCE_NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeInvalidCondition = "INVALID_CONDITION"
	CodeConnection       = "CONNECTION_ERROR"
	CodeDatabase         = "DATABASE_ERROR"
	CodeSerialization    = "SERIALIZATION_ERROR"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func ValidationError(msg string) *AppError {
	return &AppError{Code: CodeValidation, Status: 422, Message: msg}
}

func SchemaNotFoundError(name string) *AppError {
	return &AppError{
		Code:    CodeSchemaNotFound,
		Status:  404,
		Message: fmt.Sprintf("Schema '%s' not found", name),
	}
}

func InstanceNotFoundError(id string) *AppError {
	return &AppError{
		Code:    CodeInstanceNotFound,
		Status:  404,
		Message: fmt.Sprintf("Instance with id '%s' not found", id),
	}
}

func ConflictError(msg string) *AppError {
	return &AppError{Code: CodeConflict, Status: 409, Message: msg}
}

func InvalidConditionError(msg string) *AppError {
	return &AppError{Code: CodeInvalidCondition, Status: 422, Message: msg}
}

func ConnectionError(err error) *AppError {
	return &AppError{Code: CodeConnection, Status: 500, Message: err.Error()}
}

func DatabaseError(err error) *AppError {
	return &AppError{Code: CodeDatabase, Status: 500, Message: err.Error()}
}

func SerializationError(err error) *AppError {
	return &AppError{Code: CodeSerialization, Status: 500, Message: err.Error()}
}
