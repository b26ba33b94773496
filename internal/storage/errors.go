package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrQuotaExceeded is returned by ConsumeDailyQuota when the key's daily
// budget is already spent for the current window.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// ErrDuplicateKey is returned when creating an API key whose ID or hash
// collides with an existing record.
var ErrDuplicateKey = errors.New("api key already exists")
