package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims incluye los claims estándar JWT más los campos propios de la
// aplicación. Roles viaja en el token para que el middleware RBAC pueda tomar
// decisiones sin consultar la DB; el jti (RegisteredClaims.ID) permite revocar
// este token individual vía denylist.
type Claims struct {
	jwt.RegisteredClaims
	EntidadID string   `json:"entidad_id,omitempty"`
	Roles     []string `json:"roles"`
}

// Generate genera un access token firmado de vida corta con subject, roles,
// entidad y un jti fresco. Devuelve también el jti y la expiración para que el
// caller pueda denylistar el token en logout.
func Generate(secret, userID, entidadID string, roles []string, issuer string, expMinutes int) (token, jti string, expiresAt time.Time, err error) {
	if secret == "" {
		return "", "", time.Time{}, fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	expiresAt = now.Add(time.Duration(expMinutes) * time.Minute)
	jti = uuid.NewString()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		EntidadID: entidadID,
		Roles:     roles,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString([]byte(secret))
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, expiresAt, nil
}

// Parse valida firma y expiración y devuelve los claims.
// Retorna error si el token es inválido, expirado o con firma incorrecta.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims inválidos")
	}
	return claims, nil
}
