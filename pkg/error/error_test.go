package error

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	cases := []struct {
		err    GenericError
		code   string
		status int
	}{
		{ValidationError("claim text is required"), "VALIDATION_ERROR", http.StatusBadRequest},
		{NotFoundError("history record not found"), "NOT_FOUND_ERROR", http.StatusNotFound},
		{InternalServerError("unexpected state"), "INTERNAL_SERVER_ERROR", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.ErrCode())
		assert.Equal(t, tc.status, tc.err.StatusCode())
		assert.NotEmpty(t, tc.err.Error())
	}
}
