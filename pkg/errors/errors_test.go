package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeInvalidParam:          http.StatusBadRequest,
		CodeUnsupportedCredential: http.StatusUnsupportedMediaType,
		CodeTokenExpired:          http.StatusUnauthorized,
		CodeTokenMissing:          http.StatusUnauthorized,
		CodeUnauthorized:          http.StatusUnauthorized,
		CodeTooManyRequests:       http.StatusTooManyRequests,
		CodePermissionDenied:      http.StatusForbidden,
		CodeImageFileNotFound:     http.StatusNotFound,
		CodeLabelDetectionFailed:  http.StatusBadGateway,
		CodeCredentialWriteFailed: http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, "code %s", code)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("quota exceeded")
	err := Wrap(cause, CodeLabelDetectionFailed, "label detection failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[4003] label detection failed: quota exceeded", err.Error())
}

func TestIsCodeAndAsAppErrorThroughWrapping(t *testing.T) {
	inner := New(CodeImageFileNotFound, "image file not found")
	outer := fmt.Errorf("handle message: %w", inner)

	assert.True(t, IsCode(outer, CodeImageFileNotFound))
	assert.False(t, IsCode(outer, CodeAttachmentNotFound))
	assert.Same(t, inner, AsAppError(outer))

	unknown := AsAppError(stderrors.New("plain"))
	assert.Equal(t, CodeUnknown, unknown.Code)
}
