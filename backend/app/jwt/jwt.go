package jwtutil

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims carry either an administrative identity (UserID/Role) or a robot
// identity (DeviceID). Token issuance for users lives in the external auth
// system; the gateway only parses and, for operational tooling, mints
// device tokens.
type Claims struct {
	UserID   uint   `json:"uid,omitempty"`
	Username string `json:"uname,omitempty"`
	Role     string `json:"role,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

type Signer struct {
	Secret []byte
	Issuer string
	ExpMin int
}

// SignDevice mints a robot token bound to one device id.
func (s *Signer) SignDevice(deviceID string) (string, error) {
	now := time.Now()
	exp := now.Add(time.Duration(s.ExpMin) * time.Minute)
	claims := Claims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) { return s.Secret, nil })
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
