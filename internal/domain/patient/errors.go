package patient

import "errors"

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPatientAlreadyExists = errors.New("user is already registered as a patient")
	ErrConcurrentUpdate     = errors.New("patient record was modified concurrently, retry the operation")
	ErrInvalidStage         = errors.New("invalid stage value")
	ErrInvalidStatus        = errors.New("invalid status value")
)
