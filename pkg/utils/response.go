package utils

// ResponseData is the envelope every REST endpoint returns.
type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded panics when err is filled. The recovery middleware turns
// the panic into the proper HTTP response, so handlers stay linear.
func PanicIfNeeded(err any, message ...string) {
	if err != nil {
		panic(err)
	}
	if len(message) > 0 && message[0] != "" {
		panic(message[0])
	}
}
