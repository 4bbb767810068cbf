package sql

import "strconv"

// PlaceholderStyle selects how "$NNN" parameters are counted.
type PlaceholderStyle int

const (
	// NamedDollar treats "$NNN" as a name taking the next slot, as SQLite
	// does.
	NamedDollar PlaceholderStyle = iota
	// NumberedDollar treats "$NNN" as addressing slot NNN, as DuckDB does.
	NumberedDollar
)

// CountPlaceholders returns the number of parameter slots a statement
// declares under SQLite rules.
func CountPlaceholders(query string) int {
	return CountPlaceholdersStyle(query, NamedDollar)
}

// CountPlaceholdersStyle returns the number of parameter slots a statement
// declares. Anonymous "?" takes the next slot, "?NNN" addresses slot NNN,
// and each distinct ":name", "@name" or "$name" takes one slot. "$NNN"
// follows style. Placeholders inside string literals, quoted identifiers
// and comments are ignored.
func CountPlaceholdersStyle(query string, style PlaceholderStyle) int {
	slots := 0
	named := map[string]int{}

	next := func() {
		slots++
	}
	address := func(index int) {
		if index > slots {
			slots = index
		}
	}

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			i = skipQuoted(query, i, ch)

		case ch == '[':
			i = skipUntil(query, i+1, "]")

		case ch == '-' && i+1 < len(query) && query[i+1] == '-':
			i = skipUntil(query, i+2, "\n")

		case ch == '/' && i+1 < len(query) && query[i+1] == '*':
			i = skipUntil(query, i+2, "*/")

		case ch == ':' && i+1 < len(query) && query[i+1] == ':':
			// type cast
			i++

		case ch == '?':
			end := scanDigits(query, i+1)
			if end == i+1 {
				next()
			} else {
				n, err := strconv.Atoi(query[i+1 : end])
				if err == nil {
					address(n)
				}
			}
			i = end - 1

		case ch == '$' && style == NumberedDollar:
			end := scanDigits(query, i+1)
			if end > i+1 {
				n, err := strconv.Atoi(query[i+1 : end])
				if err == nil {
					address(n)
				}
				i = end - 1
				continue
			}
			fallthrough

		case ch == ':' || ch == '@' || ch == '$':
			end := scanName(query, i+1)
			if end == i+1 {
				continue
			}
			name := query[i+1 : end]
			if _, seen := named[name]; !seen {
				next()
				named[name] = slots
			}
			i = end - 1
		}
	}

	return slots
}

// skipQuoted returns the index of the closing quote, honoring doubled
// quotes as escapes.
func skipQuoted(query string, start int, quote byte) int {
	for i := start + 1; i < len(query); i++ {
		if query[i] == quote {
			if i+1 < len(query) && query[i+1] == quote {
				i++
				continue
			}
			return i
		}
	}
	return len(query)
}

// skipUntil returns the index of the last byte of terminator, or the end of
// the query when it never appears.
func skipUntil(query string, from int, terminator string) int {
	for i := from; i+len(terminator) <= len(query); i++ {
		if query[i:i+len(terminator)] == terminator {
			return i + len(terminator) - 1
		}
	}
	return len(query)
}

func scanDigits(query string, from int) int {
	i := from
	for i < len(query) && query[i] >= '0' && query[i] <= '9' {
		i++
	}
	return i
}

func scanName(query string, from int) int {
	i := from
	for i < len(query) {
		ch := query[i]
		if ch == '_' || ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= 0x80 {
			i++
			continue
		}
		break
	}
	return i
}
