package jwtx

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 客户端侧解码出的凭证信息
//
// The client never holds the signing key, so claims are decoded
// best-effort without signature verification.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ExtractClaims 解码token， 不校验签名
func ExtractClaims(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("bearer token not found")
	}
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected jwt claims type: %T", token.Claims)
	}
	return fromMapClaims(mapClaims), nil
}

// VerifyToken 校验签名并解码token
//
// Only usable by deployments that share the backend signing secret.
func VerifyToken(signingKey, tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("bearer token not found")
	}
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected jwt signing method: %v", token.Header["alg"])
		}
		return []byte(signingKey), nil
	})
	if err != nil {
		return nil, err
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return fromMapClaims(mapClaims), nil
}

func fromMapClaims(mapClaims jwt.MapClaims) *Claims {
	c := &Claims{
		// 主体标识取值优先级: sub > user_id > id
		Subject: firstClaimString(mapClaims, "sub", "user_id", "id"),
		Email:   firstClaimString(mapClaims, "email"),
		Name:    firstClaimString(mapClaims, "name", "user_name"),
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	return c
}

// Expired reports whether the credential expiry is not strictly in the future.
// A credential with no exp claim is treated as expired.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return true
	}
	return !c.ExpiresAt.After(now)
}

// Remaining returns the time left before expiry. Zero or negative means expired.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

func firstClaimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		v, ok := claims[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case float64:
			return strconv.FormatInt(int64(val), 10)
		case int64:
			return strconv.FormatInt(val, 10)
		}
	}
	return ""
}
