package feeders

import "errors"

// Feeder errors
var (
	ErrEnvInvalidStructure     = errors.New("env: invalid structure")
	ErrEnvEmptyPrefixAndSuffix = errors.New("env: prefix or suffix cannot be empty")
	ErrFieldCannotBeSet        = errors.New("field cannot be set")
	ErrUnsupportedFileType     = errors.New("unsupported config file type")
)
