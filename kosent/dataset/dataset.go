package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Record is one labeled headline. Label is strictly binary; rows that cannot
// satisfy that are dropped at load time, not surfaced as errors.
type Record struct {
	Title string
	Body  string
	Label int
}

// Dataset is an ordered, immutable-by-convention sequence of records. All
// operations return new Dataset values; nothing mutates shared state.
type Dataset struct {
	Records []Record
}

// Len returns the record count.
func (d Dataset) Len() int { return len(d.Records) }

// Titles projects the text fed to the sequence encoder, in record order.
func (d Dataset) Titles() []string {
	out := make([]string, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Title
	}
	return out
}

// Labels projects the binary labels, in record order.
func (d Dataset) Labels() []int {
	out := make([]int, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Label
	}
	return out
}

// LabelCounts returns the number of records per class.
func (d Dataset) LabelCounts() (neg, pos int) {
	for _, r := range d.Records {
		if r.Label == 0 {
			neg++
		} else {
			pos++
		}
	}
	return neg, pos
}

// LoadCSV reads a headline dataset from a CSV file with a header row. Rows
// with a missing title, body or label, or a label that is not 0/1, are
// dropped; the drop count is logged since this is silent data loss.
func LoadCSV(path, titleCol, bodyCol, labelCol string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return readCSV(f, path, titleCol, bodyCol, labelCol)
}

func readCSV(r io.Reader, name, titleCol, bodyCol, labelCol string) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return Dataset{}, fmt.Errorf("read header: %w", err)
	}
	titleIdx, bodyIdx, labelIdx := -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case titleCol:
			titleIdx = i
		case bodyCol:
			bodyIdx = i
		case labelCol:
			labelIdx = i
		}
	}
	if titleIdx < 0 || bodyIdx < 0 || labelIdx < 0 {
		return Dataset{}, fmt.Errorf("dataset %s missing required columns %q, %q, %q", name, titleCol, bodyCol, labelCol)
	}

	var records []Record
	var dropped int
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("read row: %w", err)
		}
		maxIdx := titleIdx
		if bodyIdx > maxIdx {
			maxIdx = bodyIdx
		}
		if labelIdx > maxIdx {
			maxIdx = labelIdx
		}
		if len(row) <= maxIdx {
			dropped++
			continue
		}
		title := strings.TrimSpace(row[titleIdx])
		body := strings.TrimSpace(row[bodyIdx])
		rawLabel := strings.TrimSpace(row[labelIdx])
		if title == "" || body == "" || rawLabel == "" {
			dropped++
			continue
		}
		label, err := strconv.Atoi(rawLabel)
		if err != nil || (label != 0 && label != 1) {
			dropped++
			continue
		}
		records = append(records, Record{Title: title, Body: body, Label: label})
	}

	slog.Info("loaded dataset", "path", name, "records", len(records), "dropped", dropped)
	return Dataset{Records: records}, nil
}

// Balance caps each class at an equal count, keeping the first cap+1 records
// of each class in original order (inclusive slice). Classes smaller than the
// cap keep everything they have.
func (d Dataset) Balance(cap int) Dataset {
	if cap < 0 {
		return Dataset{Records: append([]Record(nil), d.Records...)}
	}
	quota := cap + 1
	taken := [2]int{}
	out := make([]Record, 0, 2*quota)
	for _, r := range d.Records {
		if taken[r.Label] >= quota {
			continue
		}
		taken[r.Label]++
		out = append(out, r)
	}
	neg, pos := Dataset{Records: out}.LabelCounts()
	slog.Info("rebalanced dataset", "cap", cap, "negative", neg, "positive", pos)
	return Dataset{Records: out}
}

// WritePredictions emits one prediction per record, in record order, next to
// the original title and label.
func WritePredictions(path string, d Dataset, preds []int) error {
	if len(preds) != len(d.Records) {
		return fmt.Errorf("prediction count %d does not match record count %d", len(preds), len(d.Records))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create predictions file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"title", "label", "prediction"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range d.Records {
		row := []string{r.Title, strconv.Itoa(r.Label), strconv.Itoa(preds[i])}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush predictions: %w", err)
	}
	return nil
}
