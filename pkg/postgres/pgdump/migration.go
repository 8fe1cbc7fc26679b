package pgdump

import (
	"bytes"
	"strings"
)

// GooseMigration turns a stripped schema dump into the body of a goose SQL migration. Statements
// are the blank-line separated blocks of schema. Blocks with a dollar-quoted body ($$ or $tag$,
// as in functions and triggers) are wrapped in StatementBegin/StatementEnd so goose does not split
// them on semicolons.
func GooseMigration(schema []byte) []byte {
	blocks := statementBlocks(string(schema))
	if len(blocks) == 0 {
		return nil
	}
	var out bytes.Buffer
	out.WriteString("-- +goose Up\n")
	for i, blk := range blocks {
		if i > 0 {
			out.WriteByte('\n')
		}
		if blk.dollarQuoted {
			out.WriteString("-- +goose StatementBegin\n")
		}
		out.WriteString(blk.text)
		out.WriteByte('\n')
		if blk.dollarQuoted {
			out.WriteString("-- +goose StatementEnd\n")
		}
	}
	return out.Bytes()
}

type block struct {
	text         string
	dollarQuoted bool
}

// statementBlocks splits s on blank lines outside of quoted literals and dollar-quoted bodies.
func statementBlocks(s string) []block {
	var (
		blocks  []block
		lines   []string
		dollar  bool
		scanner qualifierStripper
	)
	flush := func() {
		if len(lines) > 0 {
			blocks = append(blocks, block{text: strings.Join(lines, "\n"), dollarQuoted: dollar})
			lines, dollar = lines[:0], false
		}
	}
	for line := range strings.SplitSeq(strings.TrimSpace(s), "\n") {
		if !scanner.quoted() && strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		lines = append(lines, line)
		for i := 0; i < len(line); i++ {
			if line[i] == '$' && dollarTagAt(line[i:]) != "" {
				dollar = true
				break
			}
		}
		// Only the quoting state is needed here, the rewritten line is discarded.
		scanner.strip(line)
	}
	flush()
	return blocks
}
