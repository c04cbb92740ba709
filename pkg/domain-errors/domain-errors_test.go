package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// =============================================================================
// Domain Errors Test Suite
// =============================================================================
// Justification: stores and services rely on Wrap keeping the first code in
// the chain, and on errors.Is matching by code, to map failures to the right
// HTTP status.

type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorString() {
	s.Equal("block not found", New(CodeNotFound, "block not found").Error())
	s.Equal("not_found", (&Error{Code: CodeNotFound}).Error())

	err := Wrap(errors.New("dial tcp: connection refused"), CodeUnavailable, "rate limit store unavailable")
	s.Equal("rate limit store unavailable: dial tcp: connection refused", err.Error())
}

func (s *DomainErrorsSuite) TestUnwrap() {
	inner := errors.New("redis connection refused")
	err := Wrap(inner, CodeUnavailable, "store error")

	s.ErrorIs(err, inner)
	s.Nil(errors.Unwrap(New(CodeNotFound, "missing")))
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	s.Run("same code, different message", func() {
		s.ErrorIs(New(CodeNotFound, "block not found"), &Error{Code: CodeNotFound})
	})

	s.Run("different code", func() {
		s.NotErrorIs(New(CodeNotFound, "missing"), &Error{Code: CodeUnavailable})
	})

	s.Run("through fmt wrapping", func() {
		err := fmt.Errorf("unblock: %w", New(CodeNotFound, "missing"))
		s.ErrorIs(err, &Error{Code: CodeNotFound})
	})
}

func (s *DomainErrorsSuite) TestWrapKeepsExistingCode() {
	s.Run("domain cause keeps its code", func() {
		err := Wrap(New(CodeNotFound, "no record"), CodeUnavailable, "lookup failed")
		s.Equal(CodeNotFound, CodeOf(err))
		s.Equal("lookup failed: no record", err.Error())
	})

	s.Run("plain cause takes the given code", func() {
		err := Wrap(errors.New("timeout"), CodeUnavailable, "lookup failed")
		s.Equal(CodeUnavailable, CodeOf(err))
	})
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.True(HasCode(New(CodeInvalidInput, "bad ip"), CodeInvalidInput))
	s.True(HasCode(fmt.Errorf("admin: %w", New(CodeInvalidInput, "bad ip")), CodeInvalidInput))
	s.False(HasCode(New(CodeInvalidInput, "bad ip"), CodeNotFound))
	s.False(HasCode(errors.New("plain"), CodeInternal))
	s.False(HasCode(nil, CodeInternal))
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeValidation, CodeOf(New(CodeValidation, "x")))
	s.Equal(Code(""), CodeOf(errors.New("plain")))
	s.Equal(Code(""), CodeOf(nil))
}
