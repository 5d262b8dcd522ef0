package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

const AuthTokenHeader = "x-auth-token"

func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", AuthTokenHeader},
		MaxAge:         300,
	})
}
