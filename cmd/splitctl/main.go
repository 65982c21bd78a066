// Command splitctl manages the user directory and issues bearer tokens.
//
// Usage:
//
//	splitctl user -name Alice -email alice@example.com
//	splitctl friend -user <id> -friend <id>
//	splitctl friends -user <id>
//	splitctl token -user <id>
//
// DB_PATH, JWT_SECRET and CONFIG_FILE are read as for the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("load configuration: %v", err)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		fatalf("open storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	args := os.Args[2:]
	switch os.Args[1] {
	case "user":
		err = addUser(ctx, store, args)
	case "friend":
		err = addFriend(ctx, store, args)
	case "friends":
		err = listFriends(ctx, store, args)
	case "token":
		err = issueToken(ctx, store, auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration), args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		store.Close()
		fatalf("%s: %v", os.Args[1], err)
	}
}

func addUser(ctx context.Context, store storage.Store, args []string) error {
	fs := flag.NewFlagSet("user", flag.ExitOnError)
	name := fs.String("name", "", "Display name.")
	email := fs.String("email", "", "Email address, unique per user.")
	fs.Parse(args)
	if *name == "" || *email == "" {
		return errors.New("-name and -email are required")
	}

	user := &models.User{DisplayName: *name, Email: *email}
	if err := store.CreateUser(ctx, user); err != nil {
		return err
	}
	fmt.Println(user.ID)
	return nil
}

func addFriend(ctx context.Context, store storage.Store, args []string) error {
	fs := flag.NewFlagSet("friend", flag.ExitOnError)
	userID := fs.String("user", "", "User ID.")
	friendID := fs.String("friend", "", "Friend's user ID.")
	fs.Parse(args)
	if *userID == "" || *friendID == "" {
		return errors.New("-user and -friend are required")
	}

	for _, id := range []string{*userID, *friendID} {
		if _, err := store.GetUser(ctx, id); err != nil {
			return err
		}
	}
	return store.AddFriend(ctx, *userID, *friendID)
}

func listFriends(ctx context.Context, store storage.Store, args []string) error {
	fs := flag.NewFlagSet("friends", flag.ExitOnError)
	userID := fs.String("user", "", "User ID.")
	fs.Parse(args)

	friends, err := store.ListParticipants(ctx, *userID)
	if err != nil {
		return err
	}
	for _, f := range friends {
		fmt.Printf("%s\t%s\t%s\n", f.ID, f.DisplayName, f.Email)
	}
	return nil
}

func issueToken(ctx context.Context, store storage.Store, jm *auth.JWTManager, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.String("user", "", "User ID.")
	fs.Parse(args)

	user, err := store.GetUser(ctx, *userID)
	if err != nil {
		return err
	}
	token, err := jm.Generate(user)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: splitctl <user|friend|friends|token> [flags]")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "splitctl: "+format+"\n", args...)
	os.Exit(1)
}
