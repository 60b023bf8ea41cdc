package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"brhygiene/internal/auth"
	"brhygiene/internal/config"
)

func main() {
	subjectFlag := flag.String("subject", "prometheus", "Who the token is for")
	scopesFlag := flag.String("scopes", auth.ScopeMetrics, "Comma-separated scopes to grant")
	ttlFlag := flag.Duration("ttl", 0, "Token lifetime (default: OPS_TOKEN_TTL)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Auth.SecretKey == "" {
		logrus.Fatal("SECRET_KEY must be set to issue tokens")
	}

	ttl := cfg.Auth.TokenTTL
	if *ttlFlag > 0 {
		ttl = *ttlFlag
	}

	var scopes []string
	for _, s := range strings.Split(*scopesFlag, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}

	token, err := auth.NewTokenIssuer(cfg.Auth.SecretKey, ttl).Issue(*subjectFlag, scopes...)
	if err != nil {
		logrus.Fatalf("Failed to issue token: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"subject": *subjectFlag,
		"scopes":  scopes,
		"expires": time.Now().Add(ttl).UTC().Format(time.RFC3339),
	}).Info("Token issued")
	fmt.Println(token)
}
