package error

// GenericError is implemented by application errors that know how to
// render themselves over HTTP.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}
