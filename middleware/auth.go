package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const WalletAddressKey contextKey = "walletAddress"

// WalletAuthMiddleware validates wallet-session JWTs minted by the
// dashboard's wallet-connect layer (shared WALLET_JWT_SECRET, HS256,
// wallet address in the subject claim) and puts the caller address in
// the request context.
func WalletAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(os.Getenv("WALLET_JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			log.Printf("Token verification failed: %v", err)
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		subject, err := claims.GetSubject()
		if err != nil || subject == "" {
			respondWithError(w, http.StatusUnauthorized, "Token missing wallet address")
			return
		}

		ctx := context.WithValue(r.Context(), WalletAddressKey, strings.ToLower(subject))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetWalletAddress extracts the caller's wallet address from context.
func GetWalletAddress(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(WalletAddressKey).(string)
	return addr, ok
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(fmt.Sprintf(`{"error": "%s"}`, message)))
}
