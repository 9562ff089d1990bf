package domain

import "errors"

var (
	// Provider errors
	ErrUnknownProvider = errors.New("unknown photo provider")

	// Carousel and favorites errors
	ErrNoFavorites = errors.New("no favorite photos saved")
	ErrNoPhoto     = errors.New("no photo is currently displayed")

	// Cache errors
	ErrCacheExpired = errors.New("cache expired")
	ErrCacheMiss    = errors.New("cache miss")

	// Storage errors
	ErrStoreClosed = errors.New("store is closed")
)
