// Command devtoken mints access tokens for local development.  With
// -register it also stores the subject's display name in the users table so
// organizer views show it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/rangovai/internal/config"
	"github.com/iliyamo/rangovai/internal/database"
	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/repository"
	"github.com/iliyamo/rangovai/internal/utils"
)

func main() {
	_ = godotenv.Load()

	sub := flag.String("sub", "", "token subject (user id)")
	role := flag.String("role", model.RoleVolunteer, "VOLUNTEER or ORGANIZER")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to JWT_SECRET)")
	register := flag.Bool("register", false, "upsert the user row in MySQL")
	name := flag.String("name", "", "display name stored with -register")
	email := flag.String("email", "", "email stored with -register")
	flag.Parse()

	if strings.TrimSpace(*sub) == "" {
		log.Fatal("devtoken: -sub is required")
	}
	r := strings.ToUpper(strings.TrimSpace(*role))
	if r != model.RoleVolunteer && r != model.RoleOrganizer {
		log.Fatalf("devtoken: unknown role %q", *role)
	}
	if *secret == "" {
		log.Fatal("devtoken: no secret; set JWT_SECRET or pass -secret")
	}

	if *register {
		if err := upsert(*sub, *name, *email); err != nil {
			log.Fatalf("devtoken: register: %v", err)
		}
	}

	tok, err := utils.NewAccessToken(*secret, *sub, r, *ttl)
	if err != nil {
		log.Fatalf("devtoken: %v", err)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
	fmt.Println(tok.Token)
}

func upsert(id, name, email string) error {
	cfg := config.Load()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	users := repository.NewUserRepo(db)
	if err := users.Upsert(ctx, model.User{ID: id, Name: name, Email: email}); err != nil {
		return err
	}
	u, err := users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "registered %s (%q)\n", u.ID, u.Name)
	return nil
}
