package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrHospitalNotFound = errors.New("hospital not found")
)
