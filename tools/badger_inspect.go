package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"presence-hub/domain"
	"presence-hub/repositories"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Prints archived messages. With -room, pages through that room's history
// the way the API does; without it, dumps every "msg:" key in key order.
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	room := flag.String("room", "", "Room to page through, newest first")
	limit := flag.Int("limit", 50, "Page size when -room is set")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Room", "At", "Author", "Content"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	if *room != "" {
		err = pageRoom(db, domain.RoomID(*room), *limit, table)
	} else {
		err = scanAll(db, table)
	}
	if err != nil {
		log.Fatal(err)
	}
	table.Render()
}

func pageRoom(db *badger.DB, room domain.RoomID, limit int, table *tablewriter.Table) error {
	repository := repositories.NewMessageRepository(db, slog.Default(), &limit)
	var cursor *string
	for {
		messages, next, err := repository.GetMessages(room, cursor)
		if err != nil {
			return err
		}
		for _, m := range messages {
			appendRow(table, m.ID, m)
		}
		if next == nil {
			return nil
		}
		cursor = next
	}
}

func scanAll(db *badger.DB, table *tablewriter.Table) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("msg:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())
			err := item.Value(func(v []byte) error {
				m, err := repositories.UnmarshalDiskMessage(v)
				if err != nil {
					// Keep going, one bad value should not hide the rest
					fmt.Printf("Error unmarshaling key %s: %v\n", rawKey, err)
					return nil
				}
				appendRow(table, rawKey, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func appendRow(table *tablewriter.Table, key string, m repositories.DiskMessage) {
	content := m.Content
	if len(content) > 60 {
		content = content[:60] + "..."
	}
	table.Append([]string{key, m.Room, m.At.Format("2006-01-02 15:04:05"), m.AuthorName, content})
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil && strings.Contains(err.Error(), "Log truncate required") {
		// A crashed writer left the value log dirty: let a writable open
		// truncate it, then reopen read-only.
		repaired, repairErr := badger.Open(badger.DefaultOptions(path).WithLogger(nil).WithBypassLockGuard(true))
		if repairErr != nil {
			return nil, fmt.Errorf("repair failed: %w", repairErr)
		}
		_ = repaired.Close()
		return badger.Open(opts)
	}
	return db, err
}
