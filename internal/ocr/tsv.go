package ocr

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

// Word is one word-level row of tesseract's TSV output, in image pixels.
type Word struct {
	Text       string
	Left       int
	Top        int
	Width      int
	Height     int
	Confidence float64
}

const wordLevel = 5

var tsvColumns = []string{"level", "left", "top", "width", "height", "conf", "text"}

// ParseTSV reads the word rows of a tesseract TSV document. Rows for pages,
// blocks, paragraphs and lines carry no text and are skipped.
func ParseTSV(data []byte) ([]Word, error) {
	rows := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(rows) == 0 || strings.TrimSpace(rows[0]) == "" {
		return nil, nil
	}

	col := make(map[string]int)
	for i, name := range strings.Split(rows[0], "\t") {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range tsvColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("tsv header missing %q column", name)
		}
	}

	var words []Word
	for _, row := range rows[1:] {
		if row == "" {
			continue
		}
		cells := strings.Split(row, "\t")
		if len(cells) <= col["text"] {
			continue
		}
		if level, err := strconv.Atoi(cells[col["level"]]); err != nil || level != wordLevel {
			continue
		}
		text := strings.TrimSpace(cells[col["text"]])
		if text == "" {
			continue
		}
		w := Word{Text: text}
		var err error
		if w.Left, err = strconv.Atoi(cells[col["left"]]); err != nil {
			continue
		}
		if w.Top, err = strconv.Atoi(cells[col["top"]]); err != nil {
			continue
		}
		if w.Width, err = strconv.Atoi(cells[col["width"]]); err != nil {
			continue
		}
		if w.Height, err = strconv.Atoi(cells[col["height"]]); err != nil {
			continue
		}
		if w.Confidence, err = strconv.ParseFloat(cells[col["conf"]], 64); err != nil {
			continue
		}
		words = append(words, w)
	}
	return words, nil
}

var reBoxNoise = regexp.MustCompile(`^[_\-|=~.]{2,}$`)

// Assemble filters words below minConf and rebuilds the page's reading
// order: words whose vertical centers fall within half a word height of a
// row join that row, rows run top to bottom and words left to right.
func Assemble(words []Word, page int, dpi, minConf float64) Result {
	kept := make([]Word, 0, len(words))
	var confSum float64
	for _, w := range words {
		if w.Confidence < minConf || reBoxNoise.MatchString(w.Text) {
			continue
		}
		kept = append(kept, w)
		confSum += w.Confidence
	}

	res := Result{Words: len(kept)}
	if len(kept) == 0 {
		return res
	}
	res.Confidence = confSum / float64(len(kept)) / 100

	scale := 72 / dpi
	res.Spans = make([]hvac.TextSpan, 0, len(kept))
	for _, w := range kept {
		res.Spans = append(res.Spans, hvac.TextSpan{
			Text:     w.Text,
			X:        float64(w.Left) * scale,
			Y:        float64(w.Top) * scale,
			X1:       float64(w.Left+w.Width) * scale,
			Y1:       float64(w.Top+w.Height) * scale,
			Page:     page,
			FontSize: float64(w.Height) * scale,
		})
	}

	for _, row := range rows(kept) {
		parts := make([]string, len(row))
		for i, w := range row {
			parts[i] = w.Text
		}
		res.Lines = append(res.Lines, strings.Join(parts, " "))
	}
	res.Text = strings.Join(res.Lines, "\n")
	return res
}

func rows(words []Word) [][]Word {
	sorted := append([]Word(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return center(sorted[i]) < center(sorted[j])
	})

	var out [][]Word
	var rowCenter, rowHeight float64
	for _, w := range sorted {
		c := center(w)
		if len(out) > 0 && c-rowCenter <= rowHeight/2 {
			last := len(out) - 1
			out[last] = append(out[last], w)
			continue
		}
		out = append(out, []Word{w})
		rowCenter, rowHeight = c, float64(w.Height)
	}
	for _, row := range out {
		sort.SliceStable(row, func(i, j int) bool { return row[i].Left < row[j].Left })
	}
	return out
}

func center(w Word) float64 {
	return float64(w.Top) + float64(w.Height)/2
}
