package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nickyhof/BatchDB"
)

func setupTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	ctx := context.Background()
	instance, err := BatchDB.Open(ctx, BatchDB.Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to open instance: %v", err)
	}
	t.Cleanup(func() { instance.Shutdown(ctx) })

	var out bytes.Buffer
	return &CLI{
		instance: instance,
		out:      &out,
		history:  make([]string, 0),
	}, &out
}

func TestCLIExecuteWithoutDatabase(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.execute("SELECT 1")
	if !strings.Contains(out.String(), "No database selected") {
		t.Errorf("Unexpected output: %s", out.String())
	}
}

func TestCLISession(t *testing.T) {
	cli, out := setupTestCLI(t)

	input := strings.Join([]string{
		".open shop.db",
		"CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT);",
		"INSERT INTO products (name)",
		"  VALUES ('Widget');",
		"SELECT id, name FROM products;",
		"INSERT INTO products VALUES (1, 'Dup');",
		".tables",
		".quit",
	}, "\n") + "\n"
	cli.run(strings.NewReader(input))

	output := out.String()
	for _, want := range []string{
		"Using database: shop.db",
		"1 row(s) affected, insert id 1",
		"Widget",
		"1 rows",
		"Error (code 6): constraint failure: ",
		"products",
		"Goodbye!",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, output)
		}
	}
	if len(cli.history) != 4 {
		t.Errorf("Expected 4 history entries, got %d", len(cli.history))
	}
}

func TestCLICloseAndDelete(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.handleCommand(".open app.db")
	cli.handleCommand(".databases")
	if !strings.Contains(out.String(), "app.db\n") {
		t.Errorf("Expected app.db in database list: %s", out.String())
	}

	cli.handleCommand(".close")
	if cli.database != "" {
		t.Errorf("Expected no current database, got %q", cli.database)
	}

	cli.handleCommand(".open app.db")
	cli.handleCommand(".delete app.db")
	if names := cli.instance.Names(); len(names) != 0 {
		t.Errorf("Expected no open databases, got %v", names)
	}
	if !strings.Contains(out.String(), "Deleted app.db") {
		t.Errorf("Unexpected output: %s", out.String())
	}
}

func TestCLIOpenTwiceKeepsDatabase(t *testing.T) {
	cli, out := setupTestCLI(t)

	cli.open("app.db")
	cli.open("app.db")
	if strings.Contains(out.String(), "✗") {
		t.Errorf("Unexpected error output: %s", out.String())
	}
	if cli.database != "app.db" {
		t.Errorf("Expected app.db, got %q", cli.database)
	}
}

func TestCLIAddToHistory(t *testing.T) {
	cli, _ := setupTestCLI(t)

	cli.addToHistory("SELECT * FROM test")
	cli.addToHistory("INSERT INTO test VALUES (1)")

	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(cli.history))
	}

	// Adding duplicate of last command should not increase count
	cli.addToHistory("INSERT INTO test VALUES (1)")
	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries after duplicate, got %d", len(cli.history))
	}
}

func TestCLIHistoryLimit(t *testing.T) {
	cli, _ := setupTestCLI(t)

	for i := 0; i < 1100; i++ {
		cli.addToHistory("SELECT " + string(rune(i)))
	}

	if len(cli.history) > 1000 {
		t.Errorf("Expected history to be limited to 1000, got %d", len(cli.history))
	}
}

func TestCLIGetPrompt(t *testing.T) {
	cli, _ := setupTestCLI(t)

	prompt := cli.getPrompt(false)
	if !strings.Contains(prompt, "batchdb") {
		t.Error("Expected prompt to contain 'batchdb'")
	}

	prompt = cli.getPrompt(true)
	if !strings.Contains(prompt, "...>") {
		t.Error("Expected multi-line prompt to contain '...>'")
	}

	cli.database = "mydb"
	prompt = cli.getPrompt(false)
	if !strings.Contains(prompt, "mydb") {
		t.Error("Expected prompt to contain database name")
	}
}

func TestCLIHandleCommand(t *testing.T) {
	cli, _ := setupTestCLI(t)

	tests := []struct {
		command  string
		expected bool // false only for commands that exit
	}{
		{".help", true},
		{".version", true},
		{".history", true},
		{".databases", true},
		{".unknown", true},
		{".quit", false},
		{".EXIT", false},
	}

	for _, test := range tests {
		result := cli.handleCommand(test.command)
		if result != test.expected {
			t.Errorf("handleCommand(%s) = %v, expected %v", test.command, result, test.expected)
		}
	}
}

func TestCLIUseDatabase(t *testing.T) {
	cli, _ := setupTestCLI(t)

	cli.handleCommand(".use testdb")

	if cli.database != "testdb" {
		t.Errorf("Expected database to be 'testdb', got '%s'", cli.database)
	}
}

func TestVersionVariable(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"single statement", "SELECT * FROM test", 1},
		{"two statements", "SELECT * FROM a; SELECT * FROM b", 2},
		{"with semicolons", "INSERT INTO t VALUES (1); INSERT INTO t VALUES (2);", 2},
		{"with comments", "-- comment\nSELECT * FROM test", 1},
		{"multiline", "CREATE TABLE t (\n  id INT,\n  name TEXT\n);", 1},
		{"empty", "", 0},
		{"only semicolons", ";;;", 0},
		{"string with semicolon", "INSERT INTO t (s) VALUES ('a;b')", 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := splitStatements(test.input)
			if len(result) != test.expected {
				t.Errorf("splitStatements(%q) = %d statements, expected %d", test.input, len(result), test.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"short", 10, "short"},
		{"this is a long string", 10, "this is..."},
		{"exact", 5, "exact"},
		{"ab", 10, "ab"},
	}

	for _, test := range tests {
		result := truncate(test.input, test.max)
		if result != test.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q", test.input, test.max, result, test.expected)
		}
	}
}

func TestImportFile(t *testing.T) {
	cli, out := setupTestCLI(t)
	cli.open("shop.db")

	file := filepath.Join(t.TempDir(), "shop.sql")
	script := `-- shop fixture
CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT, price REAL);
INSERT INTO products (name, price) VALUES ('Laptop', 999.99);
INSERT INTO products (name, price) VALUES ('Mouse; wireless', 25.5);
INSERT INTO products VALUES (1, 'Duplicate', 1);
SELECT * FROM products;
`
	if err := os.WriteFile(file, []byte(script), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	if err := cli.importFile(file); err != nil {
		t.Fatalf("importFile failed: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "Import complete: 4 succeeded, 1 failed") {
		t.Errorf("Unexpected summary:\n%s", output)
	}
	if !strings.Contains(output, "(2 rows)") {
		t.Errorf("Expected 2 rows in final select:\n%s", output)
	}
}

func TestImportFileNotFound(t *testing.T) {
	cli, _ := setupTestCLI(t)
	cli.open("shop.db")

	err := cli.importFile("nonexistent.sql")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestImportCommand(t *testing.T) {
	cli, _ := setupTestCLI(t)

	result := cli.handleCommand(".import")
	if !result {
		t.Error("Expected .import to be handled")
	}
}
