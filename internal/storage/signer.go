package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// objectClaims authorize reading one private object until expiry.
type objectClaims struct {
	Bucket string `json:"bkt"`
	Key    string `json:"key"`
	jwt.RegisteredClaims
}

// Signer issues and checks time-limited object tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

func (s *Signer) Sign(bucket, key string, ttl time.Duration) (string, time.Time, error) {
	exp := s.now().Add(ttl)
	claims := objectClaims{
		Bucket: bucket,
		Key:    key,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign object url: %w", err)
	}
	return signed, exp, nil
}

// Verify reports an error unless token grants access to bucket/key.
func (s *Signer) Verify(token, bucket, key string) error {
	claims := &objectClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return err
	}
	if !parsed.Valid || claims.Bucket != bucket || claims.Key != key {
		return errors.New("token does not match object")
	}
	return nil
}
