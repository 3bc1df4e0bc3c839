// Package main mints bearer tokens for local development against the
// instructor verification API. Tokens are signed with the configured key,
// which defaults to the development key when JOJO_JWT_SIGNING_KEY is unset.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	jwttoken "jojo/internal/jwt_token"
	"jojo/internal/platform/config"
	id "jojo/pkg/domain"
	"jojo/pkg/requestcontext"
)

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]string `json:"claims"`
	Usage     map[string]string `json:"usage"`
}

type tokenFlags struct {
	userID    *string
	sessionID *string
	email     *string
	ttl       *time.Duration
	json      *bool
}

func register(fs *flag.FlagSet, defaultEmail string) tokenFlags {
	return tokenFlags{
		userID:    fs.String("user-id", "", "User ID (UUID). Generated if empty."),
		sessionID: fs.String("session-id", "", "Session ID (UUID). Omitted if empty."),
		email:     fs.String("email", defaultEmail, "Email claim"),
		ttl:       fs.Duration("ttl", time.Hour, "Token time-to-live"),
		json:      fs.Bool("json", false, "Output as JSON"),
	}
}

func main() {
	instructorCmd := flag.NewFlagSet("instructor", flag.ExitOnError)
	adminCmd := flag.NewFlagSet("admin", flag.ExitOnError)
	instructorFlags := register(instructorCmd, "instructor@example.com")
	adminFlags := register(adminCmd, "admin@codingjojo.com")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "instructor":
		_ = instructorCmd.Parse(os.Args[2:])
		generate(requestcontext.RoleInstructor, instructorFlags)
	case "admin":
		_ = adminCmd.Parse(os.Args[2:])
		generate(requestcontext.RoleAdmin, adminFlags)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate bearer tokens for the instructor verification API

WARNING: Tokens are signed with the locally configured key. Only use them for
         local development and testing.

Usage:
  tokengen <command> [flags]

Commands:
  instructor   Token for the /teacher/verification wizard
  admin        Token for the /admin/instructor-verifications review routes

Examples:
  tokengen instructor
  tokengen instructor -user-id "550e8400-e29b-41d4-a716-446655440000" -email ada@example.com
  tokengen admin -ttl 8h -json

Use "tokengen <command> -h" for more information about a command.`)
}

func generate(role requestcontext.Role, f tokenFlags) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	uid := id.UserID(parseOrGenerateUUID(*f.userID, "user-id"))
	var sid id.SessionID
	if *f.sessionID != "" {
		sid = id.SessionID(parseOrGenerateUUID(*f.sessionID, "session-id"))
	}

	svc := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, *f.ttl)
	token, err := svc.GenerateAccessToken(context.Background(), uid, sid, *f.email, role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *f.json {
		claims := map[string]string{
			"user_id": uid.String(),
			"email":   *f.email,
			"role":    string(role),
		}
		if !sid.IsNil() {
			claims["session_id"] = sid.String()
		}
		printJSON(tokenOutput{
			Token:     token,
			ExpiresIn: f.ttl.String(),
			Claims:    claims,
			Usage:     map[string]string{"header": "Authorization: Bearer <token>"},
		})
		return
	}

	fmt.Println("Access Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Role:        %s\n", role)
	fmt.Printf("Expires In:  %s\n", *f.ttl)
	fmt.Printf("User ID:     %s\n", uid)
	fmt.Printf("Email:       %s\n", *f.email)
	if !sid.IsNil() {
		fmt.Printf("Session ID:  %s\n", sid)
	}
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/teacher/verification/status")
}

func parseOrGenerateUUID(input, fieldName string) uuid.UUID {
	if input == "" {
		return uuid.New()
	}
	parsed, err := uuid.Parse(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid %s UUID: %s\n", fieldName, input)
		os.Exit(1)
	}
	return parsed
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
