package ledger

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTTL = time.Minute

// GatewayClaims identify the calling account to the gateway.
type GatewayClaims struct {
	Contract string `json:"contract"`
	jwt.RegisteredClaims
}

// SignGatewayToken issues a short-lived HS256 token for one gateway request.
func SignGatewayToken(secret, account, contract string, now time.Time) (string, error) {
	c := GatewayClaims{
		Contract: contract,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   account,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString([]byte(secret))
}
