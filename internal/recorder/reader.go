package recorder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/verte-zerg/alphacmp/internal/trial"
)

// Entry is one parsed log row.
type Entry struct {
	SubjectID     string
	Left          string
	Right         string
	Correct       trial.Side
	Picked        trial.Side
	IsCorrect     bool
	Difficulty    string
	Distance      int
	LeftSize      int
	RightSize     int
	BiggerCorrect bool
	ResponseTime  time.Duration
	RecordedAt    time.Time
	Round         int
}

// ReadLog parses a results log written by Record.
func ReadLog(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return parseLog(file)
}

func parseLog(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, name := range Header {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected column %d: %q (want %q)", i+1, header[i], name)
		}
	}

	var entries []Entry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		entry, err := parseEntry(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseEntry(rec []string) (Entry, error) {
	var (
		e   Entry
		err error
	)
	e.SubjectID = rec[0]
	e.Left = rec[1]
	e.Right = rec[2]
	if e.Correct, err = parseSide(rec[3]); err != nil {
		return Entry{}, err
	}
	if e.Picked, err = parseSide(rec[4]); err != nil {
		return Entry{}, err
	}
	switch rec[5] {
	case "yes":
		e.IsCorrect = true
	case "no":
	default:
		return Entry{}, fmt.Errorf("invalid correct value %q", rec[5])
	}
	e.Difficulty = rec[6]
	if e.Distance, err = strconv.Atoi(rec[7]); err != nil {
		return Entry{}, fmt.Errorf("invalid distance: %w", err)
	}
	if e.LeftSize, err = strconv.Atoi(rec[8]); err != nil {
		return Entry{}, fmt.Errorf("invalid left size: %w", err)
	}
	if e.RightSize, err = strconv.Atoi(rec[9]); err != nil {
		return Entry{}, fmt.Errorf("invalid right size: %w", err)
	}
	switch rec[10] {
	case "Bigger":
		e.BiggerCorrect = true
	case "Smaller":
	default:
		return Entry{}, fmt.Errorf("invalid size value %q", rec[10])
	}
	secs, err := strconv.ParseFloat(rec[11], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid response time: %w", err)
	}
	e.ResponseTime = time.Duration(math.Round(secs * float64(time.Second)))
	if e.RecordedAt, err = time.ParseInLocation(TimestampLayout, rec[12], time.Local); err != nil {
		return Entry{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	if e.Round, err = strconv.Atoi(rec[13]); err != nil {
		return Entry{}, fmt.Errorf("invalid round: %w", err)
	}
	return e, nil
}

func parseSide(v string) (trial.Side, error) {
	switch v {
	case "left":
		return trial.Left, nil
	case "right":
		return trial.Right, nil
	default:
		return 0, fmt.Errorf("invalid side %q", v)
	}
}
