// Package align wraps the external similarity-search collaborator (DIAMOND
// blastp) and parses its tabular hit output. The pipeline consumes only the
// first two columns of each hit row and is otherwise agnostic to search
// parameters.
package align

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/csbl/reconstructor/internal/model"
)

// DefaultExecutable is the binary looked up on PATH when no explicit DIAMOND
// path is configured.
const DefaultExecutable = "diamond"

// Hit is one similarity-search result row. QueryID is sanitized to the
// restricted identifier character set; SubjectID is the raw reference gene
// code (e.g. "aai:AARI_04680").
type Hit struct {
	QueryID   string
	SubjectID string
}

// RunBlast invokes DIAMOND blastp on the query file against the reference
// protein database, writing the tabular hits file to output. A processors
// value of zero lets DIAMOND pick its own worker count. The search may use
// multiple threads internally but RunBlast blocks until it finishes.
func RunBlast(ctx context.Context, exe, input, output, database string, processors int, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exe == "" {
		exe = DefaultExecutable
	}
	args := []string{
		"blastp",
		"--db", database,
		"--query", input,
		"--out", output,
		"--more-sensitive",
		"--max-target-seqs", "1",
	}
	if processors > 0 {
		args = append(args, "-p", strconv.Itoa(processors))
	}

	logger.Info("running similarity search",
		zap.String("exe", exe),
		zap.String("query", input),
		zap.String("database", database),
		zap.Int("processors", processors),
	)
	cmd := exec.CommandContext(ctx, exe, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("align: diamond blastp failed: %w, output: %s", err, string(out))
	}
	return nil
}

// ReadHits parses a tabular blast output file. Rows need at least a query ID
// and a subject ID; extra columns are ignored, blank lines skipped.
func ReadHits(path string) ([]Hit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("align: open hits %s: %w", path, err)
	}
	defer f.Close()

	var hits []Hit
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("align: %s:%d: expected at least 2 columns, got %d", path, lineNo, len(fields))
		}
		hits = append(hits, Hit{
			QueryID:   model.SanitizeID(fields[0]),
			SubjectID: fields[1],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("align: read hits %s: %w", path, err)
	}
	return hits, nil
}

// LooksLikeFasta sniffs the first non-blank byte of a file for the FASTA
// header marker. Used only for input validation messages.
func LooksLikeFasta(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		return strings.HasPrefix(line, ">")
	}
	return false
}
