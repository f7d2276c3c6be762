package utils

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const otpIssuer = "Telehealth"

var otpOpts = totp.ValidateOpts{
	Period:    300,
	Skew:      0,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// NewOTPSecret creates a fresh TOTP secret for account.
func NewOTPSecret(account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      otpIssuer,
		AccountName: account,
		Period:      otpOpts.Period,
		Digits:      otpOpts.Digits,
		Algorithm:   otpOpts.Algorithm,
	})
	if err != nil {
		return "", fmt.Errorf("generate otp secret: %w", err)
	}
	return key.Secret(), nil
}

// OTPCode derives the six-digit code for secret as issued at issuedAt.
func OTPCode(secret string, issuedAt time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, issuedAt, otpOpts)
}

// CheckOTP reports whether code matches the one issued at issuedAt. Expiry is
// enforced separately by the caller.
func CheckOTP(code, secret string, issuedAt time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, issuedAt, otpOpts)
	return err == nil && ok
}
