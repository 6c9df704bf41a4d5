// Package errors_test covers AppError, the factory functions and the
// error-chain helpers defined in pkg/errors/errors.go.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/MultiNLU/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TestNew
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"unknown locale", errors.ErrCodeUnknownLocale, "Locale fr not found"},
		{"invalid param", errors.CodeInvalidParam, "text is required"},
		{"parse failed", errors.ErrCodeParseFailed, "model server returned 500"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestAppError_ErrorFormat(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeMalformedTaxonomy, "malformed entity taxonomy")
	assert.Equal(t, "[NLU_001] malformed entity taxonomy", ae.Error())

	withDetail := ae.WithDetail("groups[0].name: missing")
	assert.Equal(t, "[NLU_001] malformed entity taxonomy: groups[0].name: missing", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")
}

func TestAppError_NilReceiverBuilders(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
}

func TestWrap_PreservesCauseChain(t *testing.T) {
	t.Parallel()

	root := stderrors.New("connection refused")
	wrapped := errors.Wrap(root, errors.ErrCodeParseFailed, "parse request failed")

	require.NotNil(t, wrapped)
	assert.True(t, stderrors.Is(wrapped, root))
	assert.Equal(t, root, stderrors.Unwrap(wrapped))
}

func TestWrap_CodeUnknownKeepsOriginalCode(t *testing.T) {
	t.Parallel()

	inner := errors.UnknownLocale("fr")
	outer := errors.Wrap(inner, errors.CodeUnknown, "dispatch failed")

	assert.Equal(t, errors.ErrCodeUnknownLocale, outer.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_FindsCodeThroughFmtWrapping(t *testing.T) {
	t.Parallel()

	base := errors.ModelLoadFailed("de", stderrors.New("boom"))
	err := fmt.Errorf("handler: %w", base)

	assert.True(t, errors.IsCode(err, errors.ErrCodeModelLoadFailed))
	assert.False(t, errors.IsCode(err, errors.ErrCodeUnknownLocale))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeUnknownLocale))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.UnknownLocale("fr")))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
	assert.False(t, errors.IsNotFound(stderrors.New("plain")))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeInvalidParam, errors.GetCode(errors.InvalidParam("bad")))
}

// ─────────────────────────────────────────────────────────────────────────────
// NLU factories
// ─────────────────────────────────────────────────────────────────────────────

func TestUnknownLocale_Message(t *testing.T) {
	t.Parallel()

	ae := errors.UnknownLocale("fr")
	assert.Equal(t, "Locale fr not found", ae.Message)
	assert.Equal(t, http.StatusNotFound, ae.HTTPStatus())
}

func TestModelLoadFailed_RetainsCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("artifact missing")
	ae := errors.ModelLoadFailed("en", cause)

	assert.Equal(t, errors.ErrCodeModelLoadFailed, ae.Code)
	assert.Contains(t, ae.Message, "en")
	assert.True(t, stderrors.Is(ae, cause))
	assert.Equal(t, http.StatusServiceUnavailable, ae.HTTPStatus())
	assert.Equal(t, "artifact missing", ae.Detail)
	assert.Equal(t, "[NLU_003] model for locale en failed to load: artifact missing", ae.Error())
}

func TestModelLoadFailed_NilCause(t *testing.T) {
	t.Parallel()

	ae := errors.ModelLoadFailed("en", nil)
	assert.Empty(t, ae.Detail)
	assert.Equal(t, "[NLU_003] model for locale en failed to load", ae.Error())
}

func TestMalformedTaxonomy_Detail(t *testing.T) {
	t.Parallel()

	ae := errors.MalformedTaxonomy("groups: missing")
	assert.Equal(t, errors.ErrCodeMalformedTaxonomy, ae.Code)
	assert.Equal(t, "groups: missing", ae.Detail)

	var target *errors.AppError
	require.True(t, errors.As(fmt.Errorf("load: %w", ae), &target))
	assert.Equal(t, ae.Code, target.Code)
}

//Personal.AI order the ending
