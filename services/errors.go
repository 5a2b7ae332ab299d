package services

// ServiceError carries an HTTP status with a caller-safe message.
// Controllers map it straight onto the response.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}
