package domain

import "errors"

var (
	ErrNotFound     = errors.New("item not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidPrice = errors.New("price must be greater than zero")
	ErrNotAvailable = errors.New("item is no longer available")
	ErrExpired      = errors.New("listing has expired")
	ErrSelfTrade    = errors.New("seller cannot buy their own item")
	ErrNotOwner     = errors.New("only the seller can unlist this item")
	ErrRateLimited  = errors.New("rate limited")
)
