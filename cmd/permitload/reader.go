// CSV reader: строки файла -> документы API.
// Обязательна колонка content; пустой id заменяется на UUID.
// Остальные колонки идут в metadata: как числа, если колонка указана
// в -numeric-fields, иначе как строки. Пустые значения пропускаются.
package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	permitsearch "github.com/openpermit/permitsearch/pkg/client"
)

type csvReader struct {
	r       *csv.Reader
	cols    map[string]int
	numeric map[string]bool
	line    int // номер строки данных, с 1
}

func newCSVReader(r io.Reader, numericFields []string) (*csvReader, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["content"]; !ok {
		return nil, errors.New(`column "content" is required`)
	}

	numeric := make(map[string]bool, len(numericFields))
	for _, name := range numericFields {
		name = strings.ToLower(name)
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("numeric column %q not present in header", name)
		}
		numeric[name] = true
	}

	return &csvReader{r: cr, cols: cols, numeric: numeric}, nil
}

// ReadAll streams documents to fn. Malformed rows are logged and counted
// in skipped, not fatal. fn returning false stops the stream early.
func (r *csvReader) ReadAll(fn func(doc permitsearch.Document) bool) (skipped int, err error) {
	for {
		rec, err := r.r.Read()
		if errors.Is(err, io.EOF) {
			return skipped, nil
		}
		r.line++
		if err != nil {
			log.Printf("line %d: %v, row skipped", r.line, err)
			skipped++
			continue
		}

		doc, err := r.toDocument(rec)
		if err != nil {
			log.Printf("%v, row skipped", err)
			skipped++
			continue
		}
		if !fn(doc) {
			return skipped, nil
		}
	}
}

func (r *csvReader) toDocument(rec []string) (permitsearch.Document, error) {
	content := r.field(rec, "content")
	if content == "" {
		return permitsearch.Document{}, fmt.Errorf("line %d: empty content", r.line)
	}

	id := r.field(rec, "id")
	if id == "" {
		id = uuid.NewString()
	}

	var meta map[string]any
	for name, idx := range r.cols {
		if name == "id" || name == "content" || idx >= len(rec) {
			continue
		}
		v := strings.TrimSpace(rec[idx])
		if v == "" {
			continue
		}
		if meta == nil {
			meta = make(map[string]any)
		}
		if r.numeric[name] {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return permitsearch.Document{}, fmt.Errorf(
					"line %d: column %q: %q is not a number", r.line, name, v,
				)
			}
			meta[name] = n
		} else {
			meta[name] = v
		}
	}

	return permitsearch.Document{ID: id, Content: content, Metadata: meta}, nil
}

func (r *csvReader) field(rec []string, name string) string {
	idx, ok := r.cols[name]
	if !ok || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}
