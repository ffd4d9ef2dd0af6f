package xfer

import (
	"errors"
	"testing"

	"github.com/wscp/sftpcore/sftp"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeOfNilIsOk(t *testing.T) {
	assert.Equal(t, Ok, outcomeOf(nil))
}

func TestOutcomeOfUnwrappedErrorIsSkip(t *testing.T) {
	assert.Equal(t, Skip, outcomeOf(errors.New("boom")))
}

func TestOutcomeOfControlErrorReturnsItsOwnOutcome(t *testing.T) {
	assert.Equal(t, Abort, outcomeOf(abortTransfer("f", nil)))
	assert.Equal(t, Skip, outcomeOf(skipFile("f", errors.New("io error"))))
	assert.Equal(t, Fatal, outcomeOf(fatalProtocol("f", nil)))
}

func TestSkipFileEscalatesProtocolErrorsToFatal(t *testing.T) {
	err := skipFile("f", &sftp.ProtocolError{})
	assert.Equal(t, Fatal, outcomeOf(err))
}

func TestSkipFileEscalatesConnectionLostToFatal(t *testing.T) {
	err := skipFile("f", sftp.ErrConnectionLost)
	assert.Equal(t, Fatal, outcomeOf(err))
}

func TestSkipFileLeavesOrdinaryErrorsAsSkip(t *testing.T) {
	err := skipFile("f", errors.New("disk full"))
	assert.Equal(t, Skip, outcomeOf(err))
}

func TestControlErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := skipFile("f", cause)
	assert.ErrorIs(t, err, cause)
}
