// Command devtoken prints a bearer token signed with JWT_SECRET for local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/config"
	"github.com/ariefcatur/go-cart-checkout/internal/httpx"
	"github.com/ariefcatur/go-cart-checkout/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	user := flag.String("user", "user-1", "user_id claim")
	role := flag.String("role", "", "role claim (admin for privileged routes)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	tok, err := httpx.NewAuth(cfg.JWTSecret, logging.Discard()).Issue(*user, *role, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
