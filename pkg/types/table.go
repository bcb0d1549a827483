package types

import "errors"

// Filter narrows a Fetch. Keys are table specific; a value of the wrong type
// yields ErrInvalidFilter. A nil or empty filter matches every row.
type Filter map[string]any

// String returns the string value stored under key. ok is false when the key
// is absent; err is ErrInvalidFilter when the value is not a string.
func (f Filter) String(key string) (value string, ok bool, err error) {
	v, present := f[key]
	if !present {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, ErrInvalidFilter
	}
	return s, true, nil
}

// ID returns the int64 value stored under key. int and int64 values are
// accepted.
func (f Filter) ID(key string) (value int64, ok bool, err error) {
	v, present := f[key]
	if !present {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int64:
		return n, true, nil
	case int:
		return int64(n), true, nil
	default:
		return 0, false, ErrInvalidFilter
	}
}

// Bool returns the bool value stored under key.
func (f Filter) Bool(key string) (value bool, ok bool, err error) {
	v, present := f[key]
	if !present {
		return false, false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, false, ErrInvalidFilter
	}
	return b, true, nil
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrMigration       = errors.New("schema migration failed")
)

// Table operation errors.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidID       = errors.New("invalid entity ID")
	ErrDuplicateName   = errors.New("name already exists")
	ErrInvalidFilter   = errors.New("invalid filter value type")
	ErrUnknownRelation = errors.New("unknown association")
)

// Validation errors.
var (
	ErrInvalidTask        = errors.New("task must not be empty")
	ErrInvalidTheme       = errors.New("theme must not be empty")
	ErrInvalidTeam        = errors.New("team is not a known dependency team")
	ErrInvalidEstimation  = errors.New("estimation must be a non-negative integer")
	ErrInvalidName        = errors.New("name must not be empty")
	ErrInvalidTitle       = errors.New("title must not be empty")
	ErrInvalidDatetime    = errors.New("invalid meeting date/time")
	ErrInvalidNote        = errors.New("note must not be empty")
	ErrInvalidNoteType    = errors.New("invalid note type")
	ErrInvalidStatus      = errors.New("invalid status value")
	ErrEstimationRequired = errors.New("backlog has no estimation")
	ErrSplitTooFew        = errors.New("split needs at least two parts")
	ErrSplitMismatch      = errors.New("split estimations do not sum to the original")
	ErrMergeTooFew        = errors.New("merge needs at least two backlogs")
	ErrSurvivorNotMerged  = errors.New("surviving backlog is not among the merged backlogs")
	ErrMappingMissing     = errors.New("required column mapping is missing")
)
