package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// RelayClaims ties a gateway to node request to one session and one file.
type RelayClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	FileID    string `json:"fid"`
}

const relayIssuer = "gophrelay-gateway"

func GenerateRelayToken(sessionID, fileID string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RelayClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    relayIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		SessionID: sessionID,
		FileID:    fileID,
	})

	return token.SignedString(secretKey)
}

func ParseRelayToken(tokenString string, secretKey []byte) (*RelayClaims, error) {
	claims := &RelayClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(relayIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, err
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// VerifyRelayToken checks that the token was issued for this session and file.
func VerifyRelayToken(tokenString string, secretKey []byte, sessionID, fileID string) error {
	claims, err := ParseRelayToken(tokenString, secretKey)
	if err != nil {
		return err
	}
	if claims.SessionID != sessionID || claims.FileID != fileID {
		return common.ErrInvalidToken
	}
	return nil
}
