// Package utils holds small helpers shared by the services.
package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// adminProofCost is the bcrypt cost of a stored admin proof
const adminProofCost = bcrypt.DefaultCost

// ErrEmptyAdminCode is returned when there is no admin code to prove
var ErrEmptyAdminCode = errors.New("admin code is empty")

// NewAdminProof derives the value kept under @admin_code after an admin login.
// The secret itself is never stored.
func NewAdminProof(code string) (string, error) {
	if code == "" {
		return "", ErrEmptyAdminCode
	}
	b, err := bcrypt.GenerateFromPassword([]byte(code), adminProofCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyAdminProof reports whether proof was derived from code.
// A proof made under a rotated code, or a plaintext echo of the code, fails.
func VerifyAdminProof(code, proof string) bool {
	if code == "" || proof == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(proof), []byte(code)) == nil
}
