package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nickyhof/BatchDB"
	"github.com/nickyhof/BatchDB/core"
	"github.com/nickyhof/BatchDB/db"
	"github.com/nickyhof/BatchDB/runner"
	"github.com/spf13/pflag"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the CLI state
type CLI struct {
	instance    *BatchDB.Instance
	out         io.Writer
	history     []string
	historyFile string
	database    string // current database context
}

func main() {
	baseDir := pflag.String("base-dir", ".", "Directory holding the database files")
	driver := pflag.String("driver", "sqlite3", "Storage engine: sqlite3 or duckdb")
	archive := pflag.String("archive", "", "Archive deleted databases to s3://bucket/prefix or git://dir")
	database := pflag.String("db", "", "Database to open on start")
	sqlFile := pflag.String("sql-file", "", "SQL file to execute as one batch (non-interactive)")
	// glog registers -v and -log_dir on the standard flag set
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	printBanner()

	ctx := context.Background()
	instance, err := BatchDB.Open(ctx, BatchDB.Config{
		Driver:        *driver,
		BaseDir:       *baseDir,
		ArchiveTarget: *archive,
	})
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
	defer instance.Shutdown(ctx)
	fmt.Printf("%sUsing %s storage in %s%s\n", SuccessColor, *driver, *baseDir, ResetColor)

	cli := &CLI{
		instance:    instance,
		out:         os.Stdout,
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
	}

	if *database != "" {
		cli.open(*database)
	}

	if *sqlFile != "" {
		if cli.database == "" {
			fmt.Printf("%sError: --sql-file needs --db%s\n", ErrorColor, ResetColor)
			os.Exit(1)
		}
		if err := cli.importFile(*sqlFile); err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	cli.loadHistory()
	cli.run(os.Stdin)
	cli.saveHistory()
}

func printBanner() {
	fmt.Println()
	fmt.Printf("%s%sBatchDB v%s%s\n", BoldColor, PromptColor, Version, ResetColor)
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run(in io.Reader) {
	reader := bufio.NewReader(in)
	var multiLineBuffer strings.Builder

	for {
		fmt.Fprint(cli.out, cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		// Special commands only outside multi-line mode
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(input, ".") {
			if !cli.handleCommand(input) {
				fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
				return
			}
			continue
		}

		// Multi-line support: accumulate until we see a semicolon
		multiLineBuffer.WriteString(input)

		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}

		sql := strings.TrimSuffix(trimmed, ";")
		multiLineBuffer.Reset()

		if strings.TrimSpace(sql) == "" {
			continue
		}

		cli.addToHistory(sql + ";")
		cli.execute(sql)
	}
}

// execute runs sql as a one-statement batch on the current database.
func (cli *CLI) execute(sql string) {
	if cli.database == "" {
		fmt.Fprintf(cli.out, "%s✗ No database selected (use .open <name>)%s\n", ErrorColor, ResetColor)
		return
	}

	start := time.Now()
	outcomes, err := cli.instance.SubmitSync(cli.database, []core.Statement{core.NewStatement(sql)})
	if err != nil {
		fmt.Fprintf(cli.out, "%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	db.Display(cli.out, outcomes[0], time.Since(start))
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}

	dbPart := ""
	if cli.database != "" {
		dbPart = fmt.Sprintf(" (%s)", cli.database)
	}

	return fmt.Sprintf("%sbatchdb%s>%s ", PromptColor, dbPart, ResetColor)
}

// handleCommand runs a dot command. It returns false when the CLI should
// exit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return true
	}

	arg := func() string {
		if len(parts) > 1 {
			return parts[1]
		}
		return cli.database
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		return false

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".open":
		if len(parts) > 1 {
			cli.open(parts[1])
		} else {
			cli.fail("Usage: .open <database>")
		}

	case ".use":
		if len(parts) > 1 {
			cli.database = parts[1]
			fmt.Fprintf(cli.out, "%s✓ Using database: %s%s\n", SuccessColor, cli.database, ResetColor)
		} else {
			cli.fail("Usage: .use <database>")
		}

	case ".close":
		if name := arg(); name != "" {
			cli.report(cli.instance.CloseSync(name), "Closed "+name)
			if name == cli.database {
				cli.database = ""
			}
		} else {
			cli.fail("Usage: .close <database>")
		}

	case ".delete":
		if len(parts) > 1 {
			cli.report(cli.instance.DeleteSync(parts[1]), "Deleted "+parts[1])
			if parts[1] == cli.database {
				cli.database = ""
			}
		} else {
			cli.fail("Usage: .delete <database>")
		}

	case ".databases", ".dbs":
		for _, name := range cli.instance.Names() {
			fmt.Fprintln(cli.out, name)
		}

	case ".tables":
		cli.execute(cli.tablesQuery())

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "BatchDB version %s\n", Version)

	case ".import":
		if len(parts) > 1 {
			if err := cli.importFile(parts[1]); err != nil {
				cli.fail(err.Error())
			}
		} else {
			cli.fail("Usage: .import <file.sql>")
		}

	default:
		cli.fail(fmt.Sprintf("Unknown command: %s (type .help for commands)", parts[0]))
	}

	return true
}

func (cli *CLI) open(name string) {
	err := cli.instance.OpenSync(name, runner.OpenOptions{})
	if err != nil && !runner.IsAlreadyOpen(err) {
		cli.fail(err.Error())
		return
	}
	cli.database = name
	fmt.Fprintf(cli.out, "%s✓ Using database: %s%s\n", SuccessColor, name, ResetColor)
}

func (cli *CLI) report(err error, success string) {
	if err != nil {
		cli.fail(err.Error())
		return
	}
	fmt.Fprintf(cli.out, "%s✓ %s%s\n", SuccessColor, success, ResetColor)
}

func (cli *CLI) fail(message string) {
	fmt.Fprintf(cli.out, "%s✗ %s%s\n", ErrorColor, message, ResetColor)
}

func (cli *CLI) tablesQuery() string {
	if cli.instance.Config.Driver == "duckdb" {
		return "SELECT table_name AS name FROM information_schema.tables ORDER BY table_name"
	}
	return "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name"
}

func (cli *CLI) printHelp() {
	fmt.Fprintln(cli.out)
	fmt.Fprintf(cli.out, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out, "  .help, .h          Show this help message")
	fmt.Fprintln(cli.out, "  .quit, .exit       Exit the CLI")
	fmt.Fprintln(cli.out, "  .open <db>         Open a database and use it")
	fmt.Fprintln(cli.out, "  .use <db>          Set the current database context")
	fmt.Fprintln(cli.out, "  .close [db]        Close a database")
	fmt.Fprintln(cli.out, "  .delete <db>       Close and delete a database")
	fmt.Fprintln(cli.out, "  .databases         List open databases")
	fmt.Fprintln(cli.out, "  .tables            List tables in the current database")
	fmt.Fprintln(cli.out, "  .import <file>     Execute a SQL file as one batch")
	fmt.Fprintln(cli.out, "  .history           Show command history")
	fmt.Fprintln(cli.out, "  .clear             Clear the screen")
	fmt.Fprintln(cli.out, "  .version           Show version info")
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, "Any other input is SQL, run when it ends with ';'.")
	fmt.Fprintln(cli.out)
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".batchdb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile runs every statement of a SQL file as one batch on the
// current database and prints one line per outcome.
func (cli *CLI) importFile(filename string) error {
	if cli.database == "" {
		return fmt.Errorf("no database selected")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	sqls := splitStatements(string(data))
	statements := make([]core.Statement, 0, len(sqls))
	for _, sql := range sqls {
		statements = append(statements, core.NewStatement(sql))
	}
	if len(statements) == 0 {
		return fmt.Errorf("no statements in %s", filename)
	}

	outcomes, err := cli.instance.SubmitSync(cli.database, statements)
	if err != nil {
		return err
	}

	successCount := 0
	errorCount := 0
	for i, outcome := range outcomes {
		stmt := truncate(sqls[i], 50)
		if !outcome.IsSuccess() {
			fmt.Fprintf(cli.out, "%s[%d] ✗ %s%s\n", ErrorColor, i+1, stmt, ResetColor)
			fmt.Fprintf(cli.out, "      Error: %s\n", outcome.Failure.Message)
			errorCount++
			continue
		}

		successCount++
		result := outcome.Result
		switch {
		case result.Rows != nil:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s (%d rows)%s\n", SuccessColor, i+1, stmt, len(result.Rows), ResetColor)
		case result.RowsAffected != nil && *result.RowsAffected > 0:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s (%d affected)%s\n", SuccessColor, i+1, stmt, *result.RowsAffected, ResetColor)
		default:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s%s\n", SuccessColor, i+1, stmt, ResetColor)
		}
	}

	fmt.Fprintf(cli.out, "\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return nil
}

// splitStatements splits SQL content into individual statements
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if (ch == '\'' || ch == '"') && (i == 0 || content[i-1] != '\\') {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
		}

		// Skip comments to end of line
		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			continue
		}

		if !inString && ch == ';' {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	// Last statement without semicolon
	stmt := strings.TrimSpace(current.String())
	if stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
