//
// Package uerr enables chaining errors and has some error related utilities.
//
// To chain an error (works with errors.Is):
//
//	var cause error
//	err := uerr.Chainf(cause, "nasty problem %d", 5)
//
// Or use Const for package-level sentinel errors that can be declared
// as untyped constants:
//
//	const errClosed = uerr.Const("sftp: connection closed")
package uerr

import (
	"errors"
	"fmt"
)

type UError struct {
	Message string
	Cause   error
}

// impl error
func (this *UError) Error() string {
	return this.Message
}

// impl errors.Unwrap, supports errors.Is() and errors.As()
func (this *UError) Unwrap() error {
	return this.Cause
}

//
// create a new error based on cause, adding additional info
//
func Chainf(cause error, format string, args ...interface{}) *UError {
	return (&UError{}).chainf(cause, format, args...)
}

func (this *UError) chainf(
	cause error,
	format string, args ...interface{},
) *UError {

	this.Cause = cause

	var causeMsg string
	if nil != cause {
		causeMsg = cause.Error()
		if 0 == len(causeMsg) {
			causeMsg = fmt.Sprintf("%T", cause)
		}
	}

	if 0 != len(format) {
		msg := fmt.Sprintf(format, args...)
		if nil == cause {
			this.Message = msg
		} else {
			this.Message = msg + ", caused by: " + causeMsg
		}
	} else if nil != cause {
		this.Message = causeMsg
	}
	return this
}

//
// Does any error in the chain match criteria?
//
func CauseMatches(err error, criteria func(err error) bool) bool {
	for {
		if criteria(err) {
			return true
		}
		err = errors.Unwrap(err)
		if nil == err {
			return false
		}
	}
}

// Const is a string based error usable as a typed compile-time constant,
// e.g.
//
//	const errClosed = uerr.Const("sftp: connection closed")
//
// Unlike errors.New, a Const is comparable and safe to declare at
// package scope as a const, not just a var.
type Const string

func (e Const) Error() string { return string(e) }
