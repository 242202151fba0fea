// oauth-init runs the OAuth consent flow once and stores the token used by
// the sheets backend and the mirror.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"cashback/internal/cli"
	"cashback/internal/log"

	"github.com/google/uuid"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	fs := ff.NewFlagSet("oauth-init")
	var (
		clientJSON   = fs.StringLong("client-json", os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"), "OAuth client JSON (or GOOGLE_OAUTH_CLIENT_JSON)")
		clientFile   = fs.StringLong("client-file", os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"), "OAuth client JSON file (or GOOGLE_OAUTH_CLIENT_FILE)")
		tokenFile    = fs.StringLong("token-file", envOr("GOOGLE_OAUTH_TOKEN_FILE", "token.json"), "where to save the token")
		redirectPort = fs.StringLong("redirect-port", envOr("OAUTH_REDIRECT_PORT", "8085"), "local port of the redirect URI")
		timeout      = fs.DurationLong("timeout", 5*time.Minute, "how long to wait for consent")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("CASHBACK")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	b, err := clientCredentials(*clientJSON, *clientFile)
	if err != nil {
		logger.Error("Cannot load OAuth client", log.FieldError, err)
		os.Exit(1)
	}
	cfg, err := google.ConfigFromJSON(b, sheets.SpreadsheetsScope)
	if err != nil {
		logger.Error("Invalid OAuth client", log.FieldError, err)
		os.Exit(1)
	}
	// The OAuth client must list this URI among its authorized redirect URIs.
	cfg.RedirectURL = "http://localhost:" + *redirectPort + "/callback"

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + *redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Callback server failed", log.FieldError, err)
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var code string
	select {
	case code = <-codeCh:
	case <-ctx.Done():
		logger.Error("Authorization not completed", log.FieldError, ctx.Err())
		os.Exit(1)
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		logger.Error("Token exchange failed", log.FieldError, err)
		os.Exit(1)
	}
	if err := saveToken(*tokenFile, tok); err != nil {
		logger.Error("Cannot save token", log.FieldError, err, "path", *tokenFile)
		os.Exit(1)
	}
	fmt.Printf("Saved token to %s\n", *tokenFile)
}

func clientCredentials(inline, file string) ([]byte, error) {
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		return os.ReadFile(file)
	default:
		return nil, errors.New("set --client-json or --client-file")
	}
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
