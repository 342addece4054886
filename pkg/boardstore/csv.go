package boardstore

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/capstone/board-back/pkg/types"
)

// LoadFromCSV restores the boards of a CSV file into a Store, and returns the
// number of boards inserted.
//
// The CSV records must have 8 columns: number, title, content, write_datetime
// (yyyy-MM-dd HH:mm:ss), favorite_count, comment_count, view_count,
// writer_email.
func LoadFromCSV(store Store, data io.Reader, hasHeader bool) (uint, error) {
	reader := csv.NewReader(data)

	reader.FieldsPerRecord = len(boardColumns)
	reader.ReuseRecord = true

	counter := uint(0)

	for {
		record, err := reader.Read()

		if err == io.EOF {
			break
		}

		if err != nil {
			return counter, errors.Wrap(err, "Error while decoding CSV file")
		}

		counter++

		if hasHeader && counter == 1 {
			hasHeader = false
			counter = 0
			continue
		}

		board, err := parseRecord(record)

		if err != nil {
			return counter, errors.Wrapf(err, "Error while parsing record %d", counter)
		}

		if err := store.Restore(board); err != nil {
			return counter, errors.Wrapf(err, "Error while inserting board for record %d", counter)
		}
	}

	return counter, nil
}

func parseRecord(record []string) (types.Board, error) {
	number, err := strconv.ParseInt(record[0], 10, 64)

	if err != nil {
		return types.Board{}, errors.Wrap(err, "Invalid board number")
	}

	for _, field := range []struct {
		index, max int
	}{
		{1, types.MaxTitleLength},
		{2, types.MaxContentLength},
		{7, types.MaxEmailLength},
	} {
		if utf8.RuneCountInString(record[field.index]) > field.max {
			return types.Board{}, errors.Errorf("Invalid %s (should not be longer than %d characters)", boardColumns[field.index], field.max)
		}
	}

	if _, err := time.ParseInLocation(types.DatetimeLayout, record[3], time.Local); err != nil {
		return types.Board{}, errors.Wrap(err, "Invalid write datetime")
	}

	counts := make([]int, 3)

	for i := range counts {
		count, err := strconv.Atoi(record[4+i])

		if err != nil {
			return types.Board{}, errors.Wrapf(err, "Invalid %s", boardColumns[4+i])
		}

		if count < 0 {
			return types.Board{}, errors.Errorf("Invalid %s (should not be negative)", boardColumns[4+i])
		}

		counts[i] = count
	}

	return types.HydrateBoard(number, record[1], record[2], record[3], counts[0], counts[1], counts[2], record[7]), nil
}
