package post

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"single char", "a", nil},
		{"at bound", strings.Repeat("a", MaxContentLength), nil},
		{"one over bound", strings.Repeat("a", MaxContentLength+1), ErrContentTooLong},
		{"empty", "", ErrEmptyContent},
		{"whitespace only", "  \n\t", ErrEmptyContent},
		{"multibyte at bound", strings.Repeat("é", MaxContentLength), nil},
		{"multibyte over bound", strings.Repeat("é", MaxContentLength+1), ErrContentTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(tt.content), tt.want)
			if tt.want == nil {
				assert.NoError(t, Validate(tt.content))
			}
		})
	}
}

func TestNormalizeAndRemaining(t *testing.T) {
	assert.Equal(t, "hello", Normalize("  hello \n"))
	assert.Equal(t, MaxContentLength-5, Remaining("hello"))
	assert.Equal(t, -1, Remaining(strings.Repeat("x", MaxContentLength+1)))
}

func TestIsOwnedBy(t *testing.T) {
	p := Post{ID: "p1", UserID: "u1"}
	assert.True(t, p.IsOwnedBy("u1"))
	assert.False(t, p.IsOwnedBy("u2"))
	assert.False(t, Post{}.IsOwnedBy(""))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindValidation, Classify(ErrContentTooLong))
	assert.Equal(t, KindAuth, Classify(NewAPIError(http.StatusUnauthorized, "Invalid token", "")))
	assert.Equal(t, KindRejected, Classify(NewAPIError(http.StatusForbidden, "", "")))
	assert.Equal(t, KindRejected, Classify(NewAPIError(http.StatusInternalServerError, "boom", "")))
	assert.Equal(t, KindRejected, Classify(fmt.Errorf("update: %w", ErrNotFound)))
	assert.Equal(t, KindTransport, Classify(&TransportError{Op: "create", Err: context.DeadlineExceeded}))
	assert.Equal(t, KindUnknown, Classify(errors.New("other")))
	assert.Equal(t, KindUnknown, Classify(nil))
}

func TestAPIErrorUnwrap(t *testing.T) {
	err := NewAPIError(http.StatusNotFound, "Post not found", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "api: 404 Post not found", err.Error())
	assert.Equal(t, "api: 502 Bad Gateway", NewAPIError(http.StatusBadGateway, "", "").Error())
}
