package errs

import "errors"

var (
	// ErrRepairNotFound — квитанция с таким id отсутствует в хранилище.
	ErrRepairNotFound = errors.New("repair not found")
	// ErrInvalidStatus — статус не входит в словарь received / in-repair / ready / returned.
	ErrInvalidStatus = errors.New("invalid status")
)
