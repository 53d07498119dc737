// Command token prints an API token for the postpub server.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	config "github.com/maheshrc27/postpub/configs"
	"github.com/maheshrc27/postpub/internal/api/middleware"
	"github.com/maheshrc27/postpub/pkg/utils"
	"github.com/spf13/pflag"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file", "error", err)
	}

	if err := run(config.LoadConfig(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("token", pflag.ContinueOnError)
	subject := flags.StringP("subject", "s", "dashboard", "token subject")
	ttl := flags.DurationP("ttl", "t", 30*24*time.Hour, "token lifetime")
	secret := flags.String("secret", cfg.SecretKey, "signing secret (defaults to SECRET_KEY)")
	cookie := flags.Bool("cookie", false, "print as a Cookie header for "+cfg.CookieName)
	if err := flags.Parse(args); err != nil {
		return err
	}

	token, err := utils.GenerateToken(*secret, *subject, middleware.APIScope, *ttl)
	if err != nil {
		return err
	}

	if *cookie {
		_, err = fmt.Fprintf(out, "Cookie: %s=%s\n", cfg.CookieName, token)
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
