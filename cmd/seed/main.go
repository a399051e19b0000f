// Command seed registers a user and prints a bearer token for it, for
// local development against a running relay.
package main

import (
	"chat-relay/auth"
	"chat-relay/repositories"
	"chat-relay/services"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

type Config struct {
	BadgerFilepath string        `env:"BADGER_FILEPATH,required=true"`
	JwtSecret      string        `env:"JWT_SECRET,required=true"`
	JwtIssuer      string        `env:"JWT_ISSUER,default=chat-relay"`
	JwtTTL         time.Duration `env:"JWT_TTL,default=24h"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	email := flag.String("email", "", "Email of the user to register")
	name := flag.String("name", "", "Optional display name")
	flag.Parse()

	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer db.Close()

	tokens := auth.NewTokenManager(config.JwtSecret, config.JwtIssuer, config.JwtTTL)
	user, token, err := services.NewAuthService(repositories.NewUserRepository(db), tokens).Register(*email, *name)
	if err != nil {
		return err
	}
	fmt.Printf("user_id=%s\nname=%s\ntoken=%s\n", user.ID, user.DisplayName(), token)
	return nil
}
