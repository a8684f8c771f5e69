package usm

import "errors"

var ErrNotFound = errors.New("user not found")

type UserRecord struct {
	UserId       string `json:"userId"`
	Username     string `json:"username"`
	Role         string `json:"role,omitempty"`
	MaxInstances int    `json:"maxInstances"`
}
