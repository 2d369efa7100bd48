package error

import "net/http"

// NotFoundError reports a missing resource, e.g. a history slug that was
// never saved or has been deleted.
type NotFoundError string

func (err NotFoundError) Error() string {
	return string(err)
}

func (err NotFoundError) ErrCode() string {
	return "NOT_FOUND_ERROR"
}

func (err NotFoundError) StatusCode() int {
	return http.StatusNotFound
}
