package pooledredis

import (
	"errors"

	"github.com/gomodule/redigo/redis"
	"github.com/joomcode/errorx"
)

var errHandleClosed = errors.New("handle closed")

// Errors is the errorx namespace which all errors generated by this package
// belong to.
var Errors = errorx.NewNamespace("pooledredis")

// The error types used by this package. Use the Is* functions, or
// errorx.IsOfType, to tell them apart.
var (
	// ErrConfiguration is returned when a Client or Pool is constructed with
	// invalid parameters, e.g. a connection URL with the wrong scheme. It is
	// never worth retrying.
	ErrConfiguration = Errors.NewType("configuration")

	// ErrAcquisition is returned when a Handle could not be acquired from a
	// Pool, e.g. because creating a new one failed. The failure of the
	// HandleFunc is kept as the error's Cause.
	ErrAcquisition = Errors.NewType("acquisition")

	// ErrPoolDrained is returned from Acquire once Drain has been called on the
	// Pool. It is a subtype of ErrAcquisition.
	ErrPoolDrained = ErrAcquisition.NewSubtype("pool_drained")

	// ErrNotFound is returned from read operations whose key (or field, or
	// element) doesn't exist. It carries the errorx.NotFound trait.
	ErrNotFound = Errors.NewType("not_found", errorx.NotFound())

	// ErrConditionFailed is returned when a conditional command completed
	// successfully on the server but did not have its intended effect, e.g. a
	// SET NX on a key which already exists.
	ErrConditionFailed = Errors.NewType("condition_failed")

	// ErrDecode is returned when a reply can't be decoded into the receiver
	// an Action was given.
	ErrDecode = Errors.NewType("decode")
)

// PropertyKey is attached to ErrNotFound and ErrConditionFailed errors and
// holds the key the failed command operated on.
var PropertyKey = errorx.RegisterProperty("key")

func notFound(key string) error {
	return ErrNotFound.New("%q not found", key).WithProperty(PropertyKey, key)
}

func conditionFailed(key, msg string) error {
	return ErrConditionFailed.New("%s: %q", msg, key).WithProperty(PropertyKey, key)
}

// IsConfigurationError returns true if the error is an ErrConfiguration.
func IsConfigurationError(err error) bool {
	return errorx.IsOfType(err, ErrConfiguration)
}

// IsAcquisitionError returns true if the error is an ErrAcquisition, which
// includes ErrPoolDrained.
func IsAcquisitionError(err error) bool {
	return errorx.IsOfType(err, ErrAcquisition)
}

// IsPoolDrained returns true if the error is an ErrPoolDrained.
func IsPoolDrained(err error) bool {
	return errorx.IsOfType(err, ErrPoolDrained)
}

// IsNotFound returns true if the error indicates a missing key rather than a
// failure to carry out the command.
func IsNotFound(err error) bool {
	return errorx.IsOfType(err, ErrNotFound)
}

// IsConditionFailed returns true if the error is an ErrConditionFailed.
func IsConditionFailed(err error) bool {
	return errorx.IsOfType(err, ErrConditionFailed)
}

// IsRemoteError returns true if the error is an error reply sent back by the
// redis server (e.g. "WRONGTYPE ..."), as opposed to a failure of the
// connection or of this package. Remote errors are returned to callers
// unchanged, so a Handle which produced one is still fit for use.
func IsRemoteError(err error) bool {
	if _, ok := err.(redis.Error); ok {
		return true
	}
	return isRedispipeResultErr(err)
}
