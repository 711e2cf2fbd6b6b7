// Package jwt firma y verifica los tokens de sesión de los operadores del punto de venta.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Operator identidad que viaja en el token: quién opera, desde qué sucursal y con qué rol.
type Operator struct {
	UserID   string
	BranchID string
	Role     string
}

type claims struct {
	jwt.RegisteredClaims
	BranchID string `json:"branch_id"`
	Role     string `json:"role"`
}

// Signer emite y valida tokens HS256 de un emisor.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner falla si el secreto está vacío o la vigencia no es positiva.
func NewSigner(secret, issuer string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt: secreto vacío")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("jwt: vigencia inválida %s", ttl)
	}
	return &Signer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// WithClock reemplaza el reloj usado para emitir y validar.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// Sign emite el token del operador. El usuario va en sub.
func (s *Signer) Sign(op Operator) (string, error) {
	if op.UserID == "" {
		return "", errors.New("jwt: operador sin usuario")
	}
	issued := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   op.UserID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.ttl)),
		},
		BranchID: op.BranchID,
		Role:     op.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Verify valida firma, algoritmo, emisor y vencimiento, y devuelve el operador.
func (s *Signer) Verify(token string) (Operator, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	var c claims
	if _, err := parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		return Operator{}, err
	}
	if c.Subject == "" {
		return Operator{}, errors.New("jwt: token sin sujeto")
	}
	return Operator{UserID: c.Subject, BranchID: c.BranchID, Role: c.Role}, nil
}
