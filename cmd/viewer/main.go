// Viewer is a read-only inspector for the server's BadgerDB: it prints
// the stored users and the most recent messages without touching the
// running process.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"echoforge/domain"
	"echoforge/internal"
)

func main() {
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	color.Cyan.Println("== Users ==")
	if err := renderUsers(db); err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}

	color.Cyan.Println("== Messages ==")
	if err := renderMessages(db); err != nil {
		log.Fatalf("Failed to list messages: %v", err)
	}
}

func renderUsers(db *badger.DB) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Username", "Email", "Status", "Created"})

	err := scanPrefix(db, "user:", func(_ string, val []byte) error {
		var user domain.User
		if err := json.Unmarshal(val, &user); err != nil {
			return err
		}
		table.Append([]string{
			fmt.Sprintf("%d", user.ID),
			user.Username,
			user.Email,
			string(user.Status),
			user.CreatedAt.Format("2006-01-02 15:04"),
		})
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func renderMessages(db *badger.DB) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Kind", "Conversation", "Sender", "Content", "Lang", "At"})

	appendMessage := func(key string, val []byte) error {
		var message domain.Message
		if err := json.Unmarshal(val, &message); err != nil {
			return err
		}
		kind := "channel"
		if message.IsDirect {
			kind = "dm"
		}
		// The conversation is the key prefix up to the timestamp.
		parts := strings.Split(key, ":")
		conversation := strings.Join(parts[1:len(parts)-2], ":")

		table.Append([]string{
			kind,
			conversation,
			fmt.Sprintf("%d", message.SenderID),
			truncate(message.Content, 40),
			message.Lang,
			message.CreatedAt.Format("15:04:05"),
		})
		return nil
	}

	if err := scanPrefix(db, "msg:", appendMessage); err != nil {
		return err
	}
	if err := scanPrefix(db, "dm:", appendMessage); err != nil {
		return err
	}
	table.Render()
	return nil
}

func scanPrefix(db *badger.DB, prefix string, fn func(key string, val []byte) error) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
