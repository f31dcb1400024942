package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidKey        = errors.New("invalid key")
	ErrInvalidVersion    = errors.New("invalid version")
	ErrInvalidName       = errors.New("name is required")
	ErrInvalidItemType   = errors.New("itemType is required")
	ErrInvalidParent     = errors.New("invalid parent key")
	ErrInvalidConditions = errors.New("invalid search conditions")
	ErrInvalidTags       = errors.New("invalid tags")
	ErrInvalidCollection = errors.New("invalid collections")
	ErrInvalidRelations  = errors.New("invalid relations")
	ErrInvalidDeleted    = errors.New("invalid deleted flag")
	ErrEmptySettingValue = errors.New("setting has no value")
)
