package config

import "errors"

// Error kinds mirroring settings_error.rs's SettingError variants.
var (
	ErrFileNotFound = errors.New("config: settings file not found")
	ErrFieldNotFound = errors.New("config: required field missing")
	ErrTokenUnknown  = errors.New("config: unrecognized field")
	ErrParseError    = errors.New("config: could not parse field value")
)
