// Package pipeline reads training and prediction inputs from disk and prepares
// datasets for the learners.
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"langclass/features"
	"langclass/ml"
)

const maxLineBytes = 1 << 20

// IngestionStats summarises one read.
type IngestionStats struct {
	Lines    int           `json:"lines"`
	Examples int           `json:"examples"`
	English  int           `json:"en"`
	Dutch    int           `json:"nl"`
	Cleaning CleaningStats `json:"cleaning"`
}

// decoder strips a leading byte order mark and replaces invalid UTF-8.
func decoder(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

func scanLines(r io.Reader, cleaner *LineCleaner, fn func(lineNo int, line string) error) (int, error) {
	sc := bufio.NewScanner(decoder(r))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line, ok := cleaner.Clean(sc.Text())
		if !ok {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return lineNo, err
		}
	}
	if err := sc.Err(); err != nil {
		return lineNo, fmt.Errorf("read input: %w", err)
	}
	return lineNo, nil
}

// ReadLabeled parses "lang|sentence" lines into a dataset.
func ReadLabeled(r io.Reader) (ml.Dataset, IngestionStats, error) {
	var (
		ds    ml.Dataset
		stats IngestionStats
	)
	cleaner := NewLineCleaner()
	lines, err := scanLines(r, cleaner, func(lineNo int, line string) error {
		ex, err := features.ParseLabeledLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		ds = append(ds, ex)
		if ex.Label == ml.English {
			stats.English++
		} else {
			stats.Dutch++
		}
		return nil
	})
	stats.Lines = lines
	stats.Examples = len(ds)
	stats.Cleaning = cleaner.Stats()
	if err != nil {
		return nil, stats, err
	}
	return ds, stats, nil
}

// LoadLabeledFile is ReadLabeled over the file at path.
func LoadLabeledFile(path string) (ml.Dataset, IngestionStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, IngestionStats{}, err
	}
	defer f.Close()
	return ReadLabeled(f)
}

// ReadSentences returns one cleaned sentence per line of r. Blank and
// comment-like lines are kept.
func ReadSentences(r io.Reader) ([]string, error) {
	var sentences []string
	_, err := scanLines(r, NewLineCleaner(SentenceCleaningRules()...), func(_ int, line string) error {
		sentences = append(sentences, line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sentences, nil
}

// LoadSentencesFile is ReadSentences over the file at path.
func LoadSentencesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSentences(f)
}
