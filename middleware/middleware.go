package middleware

import (
	"fmt"

	"ecommerce-backend/internal/auth"
)

type Mid struct {
	keys *auth.Keys
}

func NewMid(keys *auth.Keys) (Mid, error) {
	if keys == nil {
		return Mid{}, fmt.Errorf("auth keys not provided")
	}
	return Mid{keys: keys}, nil
}
