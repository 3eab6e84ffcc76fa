//go:build setadmin && !local

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func main() {
	email := flag.String("email", "", "管理者にするユーザーのメールアドレス")
	flag.Parse()

	initLogger(true)
	defer syncLogger()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: setadmin -email user@example.com")
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatalw("failed to load config", "error", err)
	}
	ctx := context.Background()
	if err := initFirebase(ctx, cfg); err != nil {
		logger.Fatalw("failed to initialize firebase", "error", err)
	}
	defer closeFirebase()

	u, err := promoteToAdmin(ctx, newFirestoreStore(firestoreClient), *email)
	if err != nil {
		logger.Fatalw("failed to promote user", "email", *email, "error", err)
	}
	logger.Infow("user is now an admin", "uid", u.UID, "email", u.Email)
}
