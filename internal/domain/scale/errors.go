package scale

import "errors"

var (
	ErrConfigNotFound   = errors.New("scale config not found")
	ErrConfigInactive   = errors.New("scale is inactive and cannot be submitted")
	ErrRecordNotFound   = errors.New("scale record not found")
	ErrAnswerCountWrong = errors.New("answer count does not match the scale item count")
)
