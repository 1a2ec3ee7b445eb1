// Package errors contains helper functions and types to work with errors
package errors

import (
	"errors"
	"net/http"
)

// Category defines error category
type Category int

const (
	// CategoryNoError means the operation completed without error.
	CategoryNoError Category = iota
	// CategoryDataError The client sends some invalid data in the request,
	// for example, missing or incorrect content in the payload or parameters.
	CategoryDataError
	// CategoryUnauthorized The client is not authorized to access the requested resource
	CategoryUnauthorized
	// CategoryResourceNotFound The client is attempting to access a resource that does not exist
	CategoryResourceNotFound
	// CategoryDataConflict The client send some data that can create conflict with existing data
	CategoryDataConflict
	// CategoryDependencyFailure A dependent service is throwing errors
	CategoryDependencyFailure
	// CategoryGeneralError The service failed in an unexpected way
	CategoryGeneralError
)

func (c Category) String() string {
	switch c {
	case CategoryDataError:
		return "CategoryDataError"
	case CategoryUnauthorized:
		return "CategoryUnauthorized"
	case CategoryResourceNotFound:
		return "CategoryResourceNotFound"
	case CategoryDataConflict:
		return "CategoryDataConflict"
	case CategoryDependencyFailure:
		return "CategoryDependencyFailure"
	default:
		return "CategoryGeneralError"
	}
}

// ServiceError represents service specific type that
// is used all over the services.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err ServiceError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err ServiceError) Unwrap() error {
	return err.Err
}

// Is implements the custom condition to check an error is equal to a service error
func (err ServiceError) Is(target error) bool {
	return err.Message == target.Error()
}

// StatusCode maps the error category to an HTTP status code
func (err ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryDataError:
		return http.StatusBadRequest
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryResourceNotFound:
		return http.StatusNotFound
	case CategoryDataConflict:
		return http.StatusConflict
	case CategoryDependencyFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Is checks that provided error is a ServiceError with desired Category
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category == cat {
		return true
	}
	return false
}

// BadRequestError returns a data error with the given message
func BadRequestError(err error, message string) error {
	return &ServiceError{
		Category: CategoryDataError,
		Message:  message,
		Err:      err,
	}
}

// UnAuthorizedError returns an unauthorized error with the given message
func UnAuthorizedError(err error, message string) error {
	return &ServiceError{
		Category: CategoryUnauthorized,
		Message:  message,
		Err:      err,
	}
}

// NotFoundError returns a resource-not-found error with the given message
func NotFoundError(err error, message string) error {
	return &ServiceError{
		Category: CategoryResourceNotFound,
		Message:  message,
		Err:      err,
	}
}

// DependencyError returns a dependency failure error with the given message
func DependencyError(err error, message string) error {
	return &ServiceError{
		Category: CategoryDependencyFailure,
		Message:  message,
		Err:      err,
	}
}

// GeneralError returns a general service error.
// The error message sent to the user is "Internal Server Error";
// the error passed is logged in the logger.
func GeneralError(err error) error {
	if err == nil {
		err = errors.New("internal server error")
	}
	return &ServiceError{
		Category: CategoryGeneralError,
		Message:  "Internal Server Error",
		Err:      err,
	}
}
