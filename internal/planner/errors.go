package planner

import "errors"

var (
	// ErrMalformedPayload is returned when import data lacks the expected shape.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrImportModeRequired is returned when the live roster is not empty and
	// the caller did not choose between overwrite and merge.
	ErrImportModeRequired = errors.New("import mode required")

	// ErrInvalidPlacement is returned when a status is applied to a day it
	// may not be placed on.
	ErrInvalidPlacement = errors.New("invalid placement")

	ErrMemberNotFound   = errors.New("member not found")
	ErrInvalidAllowance = errors.New("invalid vacation allowance")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidStatus    = errors.New("invalid status")
)

// ErrBlankName is returned when a new member is added without a name.
var ErrBlankName = errors.New("member name is blank")
