package main

import (
	"chat-relay/domain"
	"chat-relay/infrastructure/storage"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Inspect error: %v\n", err)
	}
	os.Exit(code)
}

// run keeps every defer (database close included) ahead of os.Exit.
func run(args []string, out io.Writer) (int, error) {
	flags := flag.NewFlagSet("inspect", flag.ContinueOnError)
	dbPath := flags.String("db", "./data/messages", "Path to badger DB")
	to := flags.String("to", "", "Only messages sent to this participant")
	limit := flags.Int("limit", 50, "Maximum number of messages to print")
	if err := flags.Parse(args); err != nil {
		return exitConfig, err
	}
	if *limit < 1 {
		return exitConfig, fmt.Errorf("limit must be positive, got %d", *limit)
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return exitRuntime, fmt.Errorf("error while opening Badger: %w", err)
	}
	defer db.Close()

	repository := storage.NewMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelError), nil, lo.ToPtr(*limit))
	// An empty recipient lists every stored message
	messages, _, err := repository.GetMessages(domain.ParticipantID(*to), nil)
	if err != nil {
		return exitRuntime, err
	}
	render(out, messages)
	return exitOK, nil
}

func render(out io.Writer, messages []domain.Message) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Created At", "ID", "From", "To", "Message"})
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

	table.AppendBulk(lo.Map(messages, func(m domain.Message, _ int) []string {
		// First 8 characters of the id are enough to tell records apart
		return []string{
			m.CreatedAt.Format("2006-01-02 15:04:05.000"),
			m.ID.String()[:8],
			m.FromUID.String(),
			m.ToUID.String(),
			m.Text,
		}
	}))
	table.Render()
	_, _ = fmt.Fprintf(out, "%d message(s)\n", len(messages))
}
